package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
)

const (
	testInterval = 5 * time.Millisecond
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

var errRedisDown = errors.New("redis down")

// fakeAuthority plays the remote game service: it serves a snapshot and records moves.
type fakeAuthority struct {
	mu       sync.Mutex
	game     *entity.Game
	fetchErr error
	fetches  int
	submits  []entity.Move
}

func (that *fakeAuthority) FetchActiveGame(_ context.Context) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.fetches++
	if that.fetchErr != nil {
		return nil, that.fetchErr
	}

	if that.game == nil {
		return nil, nil
	}

	return that.game.Clone(), nil
}

func (that *fakeAuthority) SubmitMove(_ context.Context, row, col int) (entity.MoveOutcome, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	move := entity.Move(row*that.game.Dimension + col)
	that.submits = append(that.submits, move)
	that.game.Moves = append(that.game.Moves, move)
	that.game.Next = that.game.Next.Opponent()

	return entity.MoveAccepted, nil
}

func (that *fakeAuthority) update(fn func(game *entity.Game)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	fn(that.game)
}

func (that *fakeAuthority) set(game *entity.Game, err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.game = game
	that.fetchErr = err
}

func (that *fakeAuthority) stats() (int, []entity.Move) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.fetches, append([]entity.Move(nil), that.submits...)
}

type mockRemote struct {
	mock.Mock
}

func (that *mockRemote) FetchActiveGame(ctx context.Context) (*entity.Game, error) {
	args := that.Called(ctx)
	game, _ := args.Get(0).(*entity.Game)

	return game, args.Error(1)
}

func (that *mockRemote) SubmitMove(ctx context.Context, row, col int) (entity.MoveOutcome, error) {
	args := that.Called(ctx, row, col)

	return args.Get(0).(entity.MoveOutcome), args.Error(1)
}

func TestSession_Run(t *testing.T) {
	t.Run("Catches up with the authority and redraws", func(t *testing.T) {
		// Given: a running session on a fresh game
		authority := &fakeAuthority{game: newGame(nil, entity.Black)}

		var redraws atomic.Int32
		session := newSession(t, authority, "bob", WithOnChange(func(View) { redraws.Add(1) }))
		_, errCh := start(t, session)

		// When: black plays on the authority
		authority.update(func(game *entity.Game) {
			game.Moves = []entity.Move{19}
			game.Next = entity.White
		})

		// Then: the session should catch up and give bob the turn
		require.Eventually(t, func() bool {
			view := mustView(t, session)
			return view.Applied == 1 && view.MyTurn
		}, waitFor, tick)
		assert.Positive(t, redraws.Load())
		assert.Empty(t, errCh)
	})

	t.Run("Local move is shown at once and submitted once", func(t *testing.T) {
		// Given: alice (black) to move
		authority := &fakeAuthority{game: newGame(nil, entity.Black)}
		session := newSession(t, authority, "alice")
		start(t, session)

		// When: alice plays (2,3)
		require.NoError(t, session.Move(context.Background(), 2, 3))

		// Then: the board should change before the authority answers
		view := mustView(t, session)
		assert.Equal(t, 1, view.Applied)
		assert.False(t, view.MyTurn)
		assert.Equal(t, Score{Black: 4, White: 1}, view.Score)

		// And: the authority should receive the move exactly once and the echo should not re-apply it
		require.Eventually(t, func() bool {
			fetches, submits := authority.stats()
			return len(submits) == 1 && fetches > 2
		}, waitFor, tick)

		_, submits := authority.stats()
		assert.Equal(t, []entity.Move{19}, submits)
		assert.Equal(t, 1, mustView(t, session).Applied)
		assert.Zero(t, mustView(t, session).Faults)
	})

	t.Run("Fetch failures are retried", func(t *testing.T) {
		// Given: an authority that is down
		authority := &fakeAuthority{game: newGame(nil, entity.Black)}
		session := newSession(t, authority, "bob")
		authority.set(newGame(nil, entity.Black), errRedisDown)
		start(t, session)

		require.Eventually(t, func() bool {
			fetches, _ := authority.stats()
			return fetches >= 2
		}, waitFor, tick)

		// When: it comes back with a new move
		authority.set(newGame([]entity.Move{19}, entity.White), nil)

		// Then: the session should recover
		require.Eventually(t, func() bool {
			return mustView(t, session).Applied == 1
		}, waitFor, tick)
	})

	t.Run("Cancelled game ends the loop", func(t *testing.T) {
		// Given: a running session
		authority := &fakeAuthority{game: newGame([]entity.Move{19}, entity.White)}
		session := newSession(t, authority, "alice")
		_, errCh := start(t, session)

		// When: the opponent leaves
		authority.update(func(game *entity.Game) { game.White.Name = "" })

		// Then: Run should report the cancellation
		select {
		case err := <-errCh:
			require.ErrorIs(t, err, apperror.ErrGameCancelled)
		case <-time.After(waitFor):
			t.Fatal("session did not stop")
		}

		// And: the final view stays readable while moves are refused
		assert.Equal(t, StatusCancelled, mustView(t, session).Status)
		require.ErrorIs(t, session.Move(context.Background(), 2, 2), apperror.ErrGameCancelled)
	})

	t.Run("Finished game ends the loop", func(t *testing.T) {
		// Given: a running session recording the statuses it redraws
		authority := &fakeAuthority{game: newGame([]entity.Move{19}, entity.White)}

		var (
			mu       sync.Mutex
			statuses []Status
		)
		session := newSession(t, authority, "alice", WithOnChange(func(view View) {
			mu.Lock()
			defer mu.Unlock()

			statuses = append(statuses, view.Status)
		}))
		_, errCh := start(t, session)

		// When: the authority publishes a result without a new move
		authority.update(func(game *entity.Game) { game.Result = &entity.Result{Black: 4, White: 1} })

		// Then: Run should end cleanly
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("session did not stop")
		}

		view := mustView(t, session)
		assert.Equal(t, StatusFinished, view.Status)
		require.NotNil(t, view.Result)
		assert.Equal(t, 4, view.Result.Black)

		// And: subscribers should have been shown the finished game
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []Status{StatusFinished}, statuses)
	})

	t.Run("Unreplayable log is reported once", func(t *testing.T) {
		// Given: a running session counting redraws
		authority := &fakeAuthority{game: newGame(nil, entity.Black)}

		var redraws atomic.Int32
		session := newSession(t, authority, "bob", WithOnChange(func(View) { redraws.Add(1) }))
		_, errCh := start(t, session)

		// When: the authority serves a log with a move off the board
		authority.update(func(game *entity.Game) {
			game.Moves = []entity.Move{64}
			game.Next = entity.White
		})

		// Then: one fault should be shown and the board kept
		require.Eventually(t, func() bool {
			return mustView(t, session).Faults == 1
		}, waitFor, tick)

		fetches, _ := authority.stats()
		require.Eventually(t, func() bool {
			later, _ := authority.stats()
			return later > fetches+2
		}, waitFor, tick)

		view := mustView(t, session)
		assert.Equal(t, 1, view.Faults)
		assert.Zero(t, view.Applied)
		assert.Equal(t, StatusActive, view.Status)
		assert.Equal(t, int32(1), redraws.Load())
		assert.Empty(t, errCh)
	})

	t.Run("No redraw after stop", func(t *testing.T) {
		// Given: a running session counting redraws
		authority := &fakeAuthority{game: newGame(nil, entity.Black)}

		var redraws atomic.Int32
		session := newSession(t, authority, "bob", WithOnChange(func(View) { redraws.Add(1) }))
		cancel, errCh := start(t, session)

		// When: the session is stopped and the authority keeps changing
		cancel()
		require.NoError(t, <-errCh)

		before := redraws.Load()
		authority.update(func(game *entity.Game) {
			game.Moves = []entity.Move{19}
			game.Next = entity.White
		})
		time.Sleep(10 * testInterval)

		// Then: no hook should fire
		assert.Equal(t, before, redraws.Load())
		require.ErrorIs(t, session.Move(context.Background(), 2, 3), apperror.ErrNoActiveSession)
	})

	t.Run("Run only once", func(t *testing.T) {
		authority := &fakeAuthority{game: newGame(nil, entity.Black)}
		session := newSession(t, authority, "bob")
		start(t, session)
		mustView(t, session)

		require.ErrorIs(t, session.Run(context.Background()), apperror.ErrNoActiveSession)
	})
}

func TestSession_Move(t *testing.T) {
	t.Run("Not your turn never reaches the authority", func(t *testing.T) {
		// Given: black to move and bob seated as white
		remote := &mockRemote{}
		remote.On("FetchActiveGame", mock.Anything).Return(newGame(nil, entity.Black), nil).Maybe()

		session := newSession(t, remote, "bob")
		start(t, session)

		// When: bob tries to play
		err := session.Move(context.Background(), 2, 3)

		// Then: the move should be refused locally
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, 0, mustView(t, session).Applied)
		remote.AssertNotCalled(t, "SubmitMove", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Submission failure is advisory", func(t *testing.T) {
		// Given: an authority that accepts fetches but fails submissions
		remote := &mockRemote{}
		remote.On("FetchActiveGame", mock.Anything).Return(newGame(nil, entity.Black), nil).Maybe()
		submitted := make(chan struct{})
		remote.On("SubmitMove", mock.Anything, 2, 3).
			Return(entity.MoveOutcome(""), errRedisDown).
			Run(func(mock.Arguments) { close(submitted) }).
			Once()

		session := newSession(t, remote, "alice", WithInterval(time.Hour))
		start(t, session)

		// When: alice plays
		require.NoError(t, session.Move(context.Background(), 2, 3))

		// Then: the move stays on the board until the authority proves otherwise
		select {
		case <-submitted:
		case <-time.After(waitFor):
			t.Fatal("move was not submitted")
		}
		assert.Equal(t, 1, mustView(t, session).Applied)
	})
}

func newSession(t *testing.T, remote remoteService, player string, opts ...Option) *Session {
	t.Helper()

	remoteGame, err := remote.FetchActiveGame(context.Background())
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	opts = append([]Option{WithInterval(testInterval)}, opts...)

	session, err := New(logger, remote, remoteGame, player, opts...)
	require.NoError(t, err)

	return session
}

func start(t *testing.T, session *Session) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() {
		errCh <- session.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-session.Done()
	})

	return cancel, errCh
}

func mustView(t *testing.T, session *Session) View {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	view, err := session.View(ctx)
	require.NoError(t, err)

	return view
}
