package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCode(t *testing.T) {
	t.Run("Known codes map to sentinels", func(t *testing.T) {
		// When: mapping the codes the remote service sends
		// Then: each one should resolve to its sentinel
		assert.ErrorIs(t, FromCode("PlayerNotFound"), ErrOpponentNotFound)
		assert.ErrorIs(t, FromCode("OpponentNotFound"), ErrOpponentNotFound)
		assert.ErrorIs(t, FromCode("OpponentInAnotherGame"), ErrOpponentBusy)
		assert.ErrorIs(t, FromCode("NameAlreadyExists"), ErrNameAlreadyExists)
		assert.ErrorIs(t, FromCode("InvalidName"), ErrInvalidName)
		assert.ErrorIs(t, FromCode("InvalidMove"), ErrIllegalMove)
	})

	t.Run("Unknown codes are kept as CodeError", func(t *testing.T) {
		// When: mapping a code the client does not know
		err := FromCode("StartGameError")

		// Then: the code should survive the round trip
		var codeErr *CodeError
		require.ErrorAs(t, err, &codeErr)
		assert.Equal(t, "StartGameError", codeErr.Code)
		assert.Equal(t, "StartGameError", Code(err))
	})
}

func TestCode(t *testing.T) {
	t.Run("Wrapped sentinels keep their code", func(t *testing.T) {
		// Given: a sentinel wrapped twice
		err := fmt.Errorf("failed to start session: %w", fmt.Errorf("remote: %w", ErrOpponentBusy))

		// Then: the UI code should still be found
		assert.Equal(t, "OpponentInAnotherGame", Code(err))
	})

	t.Run("Nil and foreign errors", func(t *testing.T) {
		assert.Equal(t, "", Code(nil))
		assert.Equal(t, "Unknown", Code(errors.New("boom")))
	})
}
