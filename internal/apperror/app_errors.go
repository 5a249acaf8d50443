package apperror

import (
	"errors"
	"fmt"
)

// engine contract violations.
var (
	ErrInvalidDimension = errors.New("invalid board dimension")
	ErrOutOfBounds      = errors.New("position is out of bounds")
)

// session level errors.
var (
	ErrIllegalMove       = errors.New("illegal move")
	ErrNoLegalMoves      = errors.New("no legal moves")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrGameFinished      = errors.New("game is already finished")
	ErrGameCancelled     = errors.New("game cancelled")
	ErrNoActiveSession   = errors.New("no active session")
	ErrConsistencyFault  = errors.New("local board diverged from the authority")
	ErrRemoteUnavailable = errors.New("remote game service unavailable")
)

// remote errors surfaced to the UI by code.
var (
	ErrOpponentNotFound  = errors.New("opponent not found")
	ErrOpponentBusy      = errors.New("opponent is in another game")
	ErrNameAlreadyExists = errors.New("name already exists")
	ErrInvalidName       = errors.New("invalid name")
	ErrNoActiveGame      = errors.New("no active game")
	ErrWrongPlayer       = errors.New("wrong player")
)

var codes = map[error]string{
	ErrInvalidDimension:  "InvalidDimension",
	ErrOutOfBounds:       "OutOfBounds",
	ErrIllegalMove:       "IllegalMove",
	ErrNoLegalMoves:      "NoLegalMoves",
	ErrNotYourTurn:       "NotYourTurn",
	ErrGameFinished:      "GameOver",
	ErrGameCancelled:     "GameCancelled",
	ErrNoActiveSession:   "NoActiveSession",
	ErrConsistencyFault:  "ConsistencyFault",
	ErrRemoteUnavailable: "RemoteUnavailable",
	ErrOpponentNotFound:  "PlayerNotFound",
	ErrOpponentBusy:      "OpponentInAnotherGame",
	ErrNameAlreadyExists: "NameAlreadyExists",
	ErrInvalidName:       "InvalidName",
	ErrNoActiveGame:      "NoSelfGame",
	ErrWrongPlayer:       "WrongPlayer",
}

// CodeError is a remote error code the client has no sentinel for.
type CodeError struct {
	Code string
}

func (that *CodeError) Error() string {
	return fmt.Sprintf("remote error: %s", that.Code)
}

// FromCode maps a remote error code to its sentinel, or a *CodeError when unknown.
func FromCode(code string) error {
	for err, c := range codes {
		if c == code {
			return err
		}
	}

	// the remote service spells a few codes differently from the client.
	switch code {
	case "OpponentNotFound":
		return ErrOpponentNotFound
	case "OpponentBusy":
		return ErrOpponentBusy
	case "InvalidMove":
		return ErrIllegalMove
	}

	return &CodeError{Code: code}
}

// Code returns the user-visible error code for err, "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}

	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}

	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return "Unknown"
}
