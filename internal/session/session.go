package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
)

const DefaultInterval = time.Second

type remoteService interface {
	FetchActiveGame(ctx context.Context) (*entity.Game, error)
	SubmitMove(ctx context.Context, row, col int) (entity.MoveOutcome, error)
}

type Option func(*Session)

// WithInterval sets the delay between the end of one fetch and the start of the next.
func WithInterval(interval time.Duration) Option {
	return func(s *Session) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithOnChange registers a redraw hook. It runs on the session goroutine and must not block.
func WithOnChange(fn func(View)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

type moveRequest struct {
	row, col int
	reply    chan error
}

type fetchResult struct {
	game    *entity.Game
	err     error
	settled bool
	seq     int
}

type submitResult struct {
	move    entity.Move
	outcome entity.MoveOutcome
	err     error
}

// Session owns the local view of one game. All state changes happen on the goroutine
// started by Run; Move and View talk to it over channels.
type Session struct {
	logger   *slog.Logger
	remote   remoteService
	interval time.Duration
	onChange func(View)

	state *viewState

	moves     chan moveRequest
	views     chan chan View
	fetched   chan fetchResult
	submitted chan submitResult
	done      chan struct{}
	started   atomic.Bool
}

// New mounts a session on an authoritative snapshot. The session is Active (or Finished
// when the snapshot already carries a result) but does not poll until Run is called.
func New(logger *slog.Logger, remote remoteService, game *entity.Game, playerName string, opts ...Option) (*Session, error) {
	state := &viewState{}
	if err := state.begin(game, playerName); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	session := &Session{
		logger:   logger.With("component", "session", "game_id", game.ID, "player", playerName),
		remote:   remote,
		interval: DefaultInterval,

		state: state,

		moves:     make(chan moveRequest),
		views:     make(chan chan View),
		fetched:   make(chan fetchResult),
		submitted: make(chan submitResult),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(session)
	}

	return session, nil
}

// Run polls the authority and serves local moves until the game ends or ctx is cancelled.
// It returns nil when the game finishes or ctx ends, ErrGameCancelled when the game is
// cancelled. No hook fires after Run returns.
func (that *Session) Run(ctx context.Context) error {
	if !that.started.CompareAndSwap(false, true) {
		return apperror.ErrNoActiveSession
	}

	return that.run(ctx)
}

// Done is closed once Run has returned.
func (that *Session) Done() <-chan struct{} {
	return that.done
}

// Move plays (row, col) for the local player. The board changes immediately; the
// submission to the authority happens in the background.
func (that *Session) Move(ctx context.Context, row, col int) error {
	req := moveRequest{row: row, col: col, reply: make(chan error, 1)}

	select {
	case that.moves <- req:
		return <-req.reply
	case <-that.done:
		return that.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the current projection. After Run returns it reports the final state.
func (that *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)

	select {
	case that.views <- reply:
		return <-reply, nil
	case <-that.done:
		return that.state.view(), nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// closedErr must only be called once done is closed.
func (that *Session) closedErr() error {
	if err := that.state.checkActive(); err != nil {
		return err
	}

	return apperror.ErrNoActiveSession
}

func (that *Session) run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer close(that.done)

	if that.state.status.IsTerminal() {
		return that.exitErr()
	}

	timer := time.NewTimer(that.interval)
	timer.Stop()
	defer timer.Stop()

	// pending counts submissions in flight, seq counts local moves. A snapshot may only
	// roll back speculation when neither changed while it was fetched.
	pending, seq := 0, 0
	that.fetch(ctx, true, seq)

	for {
		select {
		case <-ctx.Done():
			log.Info("session stopped", "reason", ctx.Err())
			return nil

		case <-timer.C:
			that.fetch(ctx, pending == 0, seq)

		case res := <-that.fetched:
			if res.err != nil {
				log.Warn("failed to fetch active game", "error", res.err)
				timer.Reset(that.interval)

				continue
			}

			outcome, err := that.state.reconcile(res.game, res.settled && pending == 0 && res.seq == seq)
			if err != nil {
				log.Error("failed to reconcile", "error", err)
				timer.Reset(that.interval)

				continue
			}

			that.report(log, outcome)

			if outcome.Status.IsTerminal() {
				return that.exitErr()
			}

			timer.Reset(that.interval)

		case req := <-that.moves:
			move, err := that.state.applyLocal(req.row, req.col)
			req.reply <- err

			if err != nil {
				log.Info("move rejected", "row", req.row, "col", req.col, "error", err)
				continue
			}

			pending++
			seq++
			that.notify()
			that.submit(ctx, move, req.row, req.col)

		case res := <-that.submitted:
			pending--

			if res.err != nil {
				// the next poll decides what the authority actually recorded
				log.Warn("move submission failed", "move", res.move, "error", res.err)
				continue
			}

			log.Debug("move submitted", "move", res.move, "outcome", res.outcome)

		case reply := <-that.views:
			reply <- that.state.view()
		}
	}
}

// fetch runs one request to the authority. Its result re-enters the loop through
// that.fetched unless ctx ends first.
func (that *Session) fetch(ctx context.Context, settled bool, seq int) {
	go func() {
		game, err := that.remote.FetchActiveGame(ctx)

		select {
		case that.fetched <- fetchResult{game: game, err: err, settled: settled, seq: seq}:
		case <-ctx.Done():
		}
	}()
}

// submit sends the move without waiting. A submission outlives ctx so the authority
// still receives a move the player already sees, but its result is dropped.
func (that *Session) submit(ctx context.Context, move entity.Move, row, col int) {
	go func() {
		outcome, err := that.remote.SubmitMove(context.WithoutCancel(ctx), row, col)

		select {
		case that.submitted <- submitResult{move: move, outcome: outcome, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (that *Session) report(log *slog.Logger, outcome Outcome) {
	if outcome.Fault != nil {
		log.Error("consistency fault",
			"moves", outcome.Fault.MoveCount,
			"reason", outcome.Fault.Reason,
			"local", outcome.Fault.Local,
			"remote", outcome.Fault.Remote,
			"error", outcome.Fault.Err,
		)
	}

	if !outcome.Redraw() {
		return
	}

	log.Info("session updated", "change", outcome.Change, "status", outcome.Status, "applied", outcome.Applied)
	that.notify()
}

func (that *Session) notify() {
	if that.onChange != nil {
		that.onChange(that.state.view())
	}
}

func (that *Session) exitErr() error {
	if that.state.status == StatusCancelled {
		return apperror.ErrGameCancelled
	}

	return nil
}

// IsClosed reports whether err means the session can no longer take moves.
func IsClosed(err error) bool {
	return errors.Is(err, apperror.ErrGameFinished) ||
		errors.Is(err, apperror.ErrGameCancelled) ||
		errors.Is(err, apperror.ErrNoActiveSession)
}
