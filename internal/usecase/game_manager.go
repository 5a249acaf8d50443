package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
	"github.com/rocketscienceinc/reversi-client/internal/reversi"
	"github.com/rocketscienceinc/reversi-client/internal/session"
)

// Hint is a suggested placement for the player to move.
type Hint struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type remoteService interface {
	Player() string
	RegisterParticipant(ctx context.Context, name string) (*entity.ParticipantInfo, error)
	StartSession(ctx context.Context, opponent string, dimension int) (*entity.Game, error)
	FetchActiveGame(ctx context.Context) (*entity.Game, error)
	SubmitMove(ctx context.Context, row, col int) (entity.MoveOutcome, error)
	ListPlayers(ctx context.Context) (*entity.PlayerLists, error)
}

// GameManager is the entry point for the UI: it registers the player, mounts at most one
// session view at a time and fans redraws out to subscribers.
type GameManager struct {
	logger     *slog.Logger
	remote     remoteService
	dimensions []int
	interval   time.Duration

	mu      sync.Mutex
	current *session.Session
	stop    context.CancelFunc

	rngMu sync.Mutex
	rng   *rand.Rand

	subsMu      sync.RWMutex
	subscribers map[int]func(session.View)
	nextSubID   int
}

func NewGameManager(logger *slog.Logger, remote remoteService, dimensions []int, interval time.Duration) *GameManager {
	return &GameManager{
		logger:     logger.With("component", "game_manager"),
		remote:     remote,
		dimensions: dimensions,
		interval:   interval,

		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint: gosec // hints need no crypto

		subscribers: make(map[int]func(session.View)),
	}
}

// Register registers name with the game service. A blank name is refused without a round trip.
func (that *GameManager) Register(ctx context.Context, name string) (*entity.ParticipantInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ErrInvalidName
	}

	info, err := that.remote.RegisterParticipant(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	that.logger.Info("player registered", "player", info.Name)

	return info, nil
}

// StartSession starts a game of player against opponent and mounts its session view.
// An empty opponent waits for anyone to join. A previously mounted view is unmounted first.
func (that *GameManager) StartSession(ctx context.Context, player, opponent string, dimension int) (session.View, error) {
	log := that.logger.With("method", "StartSession")

	player = strings.TrimSpace(player)
	opponent = strings.TrimSpace(opponent)

	if !slices.Contains(that.dimensions, dimension) {
		return session.View{}, fmt.Errorf("%w: %d", apperror.ErrInvalidDimension, dimension)
	}

	if that.remote.Player() != player {
		if _, err := that.Register(ctx, player); err != nil {
			return session.View{}, err
		}
	}

	game, err := that.remote.StartSession(ctx, opponent, dimension)
	if err != nil {
		return session.View{}, fmt.Errorf("failed to start session: %w", err)
	}

	current, err := that.mount(game, player)
	if err != nil {
		return session.View{}, err
	}

	log.Info("session mounted", "game_id", game.ID, "player", player, "opponent", opponent, "dimension", dimension)

	view, err := current.View(ctx)
	if err != nil {
		return session.View{}, fmt.Errorf("failed to read session: %w", err)
	}

	that.broadcast(view)

	return view, nil
}

// Move plays (row, col) in the mounted session.
func (that *GameManager) Move(ctx context.Context, row, col int) error {
	current, err := that.mounted()
	if err != nil {
		return err
	}

	if err = current.Move(ctx, row, col); err != nil {
		return fmt.Errorf("failed to move: %w", err)
	}

	return nil
}

// View returns the mounted session's projection. A finished or cancelled session stays
// readable until Leave.
func (that *GameManager) View(ctx context.Context) (session.View, error) {
	current, err := that.mounted()
	if err != nil {
		return session.View{}, err
	}

	view, err := current.View(ctx)
	if err != nil {
		return session.View{}, fmt.Errorf("failed to read session: %w", err)
	}

	return view, nil
}

// Hint suggests a placement on the mounted session's latest board.
func (that *GameManager) Hint(ctx context.Context) (Hint, error) {
	view, err := that.View(ctx)
	if err != nil {
		return Hint{}, err
	}

	switch {
	case view.Status == session.StatusFinished:
		return Hint{}, apperror.ErrGameFinished
	case view.Status == session.StatusCancelled:
		return Hint{}, apperror.ErrGameCancelled
	case !view.MyTurn:
		return Hint{}, apperror.ErrNotYourTurn
	}

	board, err := entity.ParseBoard(view.Dimension, view.Board)
	if err != nil {
		return Hint{}, fmt.Errorf("failed to read board: %w", err)
	}

	if reversi.MustPass(board, view.PlayerColor) {
		that.logger.Info("no placement available, waiting for the authority to pass", "game_id", view.GameID)
		return Hint{}, apperror.ErrNoLegalMoves
	}

	that.rngMu.Lock()
	move, err := reversi.Suggest(board, view.PlayerColor, that.rng)
	that.rngMu.Unlock()

	if err != nil {
		return Hint{}, fmt.Errorf("failed to suggest a move: %w", err)
	}

	row, col := move.Position(view.Dimension)

	return Hint{Row: row, Col: col}, nil
}

// Leave unmounts the session view; its loop is stopped before Leave returns.
func (that *GameManager) Leave() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.unmount()
}

// Players returns the service's leaderboard charts.
func (that *GameManager) Players(ctx context.Context) (*entity.PlayerLists, error) {
	lists, err := that.remote.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	return lists, nil
}

// Subscribe registers fn for redraws of the mounted session. fn must not block.
func (that *GameManager) Subscribe(fn func(session.View)) func() {
	that.subsMu.Lock()
	defer that.subsMu.Unlock()

	id := that.nextSubID
	that.nextSubID++
	that.subscribers[id] = fn

	return func() {
		that.subsMu.Lock()
		defer that.subsMu.Unlock()

		delete(that.subscribers, id)
	}
}

func (that *GameManager) mounted() (*session.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.current == nil {
		return nil, apperror.ErrNoActiveSession
	}

	return that.current, nil
}

// mount replaces the mounted session with one on game and starts its loop.
func (that *GameManager) mount(game *entity.Game, player string) (*session.Session, error) {
	log := that.logger.With("method", "mount", "game_id", game.ID)

	that.mu.Lock()
	defer that.mu.Unlock()

	that.unmount()

	current, err := session.New(that.logger, that.remote, game, player,
		session.WithInterval(that.interval),
		session.WithOnChange(that.broadcast),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mount session: %w", err)
	}

	runCtx, stop := context.WithCancel(context.Background())
	that.current = current
	that.stop = stop

	go func() {
		if runErr := current.Run(runCtx); runErr != nil {
			log.Info("session ended", "error", runErr)
			return
		}

		log.Info("session ended")
	}()

	return current, nil
}

// unmount must be called with mu held.
func (that *GameManager) unmount() {
	if that.current == nil {
		return
	}

	that.stop()
	<-that.current.Done()

	that.current = nil
	that.stop = nil
}

func (that *GameManager) broadcast(view session.View) {
	that.subsMu.RLock()
	defer that.subsMu.RUnlock()

	for _, fn := range that.subscribers {
		fn(view)
	}
}

// IsUserError reports whether err is a refusal the UI should show rather than a fault.
func IsUserError(err error) bool {
	var codeErr *apperror.CodeError

	return errors.As(err, &codeErr) ||
		errors.Is(err, apperror.ErrInvalidName) ||
		errors.Is(err, apperror.ErrNameAlreadyExists) ||
		errors.Is(err, apperror.ErrOpponentNotFound) ||
		errors.Is(err, apperror.ErrOpponentBusy) ||
		errors.Is(err, apperror.ErrInvalidDimension) ||
		errors.Is(err, apperror.ErrIllegalMove) ||
		errors.Is(err, apperror.ErrNotYourTurn) ||
		session.IsClosed(err)
}
