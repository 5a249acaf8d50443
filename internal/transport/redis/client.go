package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
)

const (
	RequestQueue = "reversi:requests"
	ReplyPrefix  = "reversi:reply:"
	GamePrefix   = "game:"

	DefaultTimeout = 5 * time.Second
)

// Operation names understood by the game service.
const (
	OpRegister = "register_participant"
	OpStart    = "start_session"
	OpSubmit   = "submit_move"
	OpList     = "list_players"
)

var ErrNotRegistered = errors.New("participant is not registered")

// Request is queued on RequestQueue; the service answers on ReplyPrefix+ID.
type Request struct {
	ID        string `json:"id"`
	Op        string `json:"op"`
	Player    string `json:"player,omitempty"`
	Opponent  string `json:"opponent,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
	Row       *int   `json:"row,omitempty"`
	Col       *int   `json:"col,omitempty"`
}

type Reply struct {
	Error   string                  `json:"error,omitempty"`
	Game    *entity.Game            `json:"game,omitempty"`
	Info    *entity.ParticipantInfo `json:"info,omitempty"`
	Outcome entity.MoveOutcome      `json:"outcome,omitempty"`
	Players *entity.PlayerLists     `json:"players,omitempty"`
}

// Client talks to the authoritative game service through a shared redis instance.
// Snapshots are read directly; every other operation is a queued request with a reply list.
type Client struct {
	logger  *slog.Logger
	client  *redis.Client
	timeout time.Duration

	mu     sync.RWMutex
	player string
}

func New(logger *slog.Logger, client *redis.Client, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		logger:  logger.With("component", "remote"),
		client:  client,
		timeout: timeout,
	}
}

// Player returns the registered identity, "" before RegisterParticipant succeeds.
func (that *Client) Player() string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.player
}

// RegisterParticipant registers name with the service and binds the client to it.
func (that *Client) RegisterParticipant(ctx context.Context, name string) (*entity.ParticipantInfo, error) {
	reply, err := that.call(ctx, Request{Op: OpRegister, Player: name})
	if err != nil {
		return nil, fmt.Errorf("failed to register %q: %w", name, err)
	}

	info := reply.Info
	if info == nil {
		info = &entity.ParticipantInfo{Name: name}
	}

	that.mu.Lock()
	that.player = info.Name
	that.mu.Unlock()

	return info, nil
}

// StartSession asks the service to seat the player against opponent on a board of dimension.
func (that *Client) StartSession(ctx context.Context, opponent string, dimension int) (*entity.Game, error) {
	player, err := that.registered()
	if err != nil {
		return nil, err
	}

	reply, err := that.call(ctx, Request{Op: OpStart, Player: player, Opponent: opponent, Dimension: dimension})
	if err != nil {
		return nil, fmt.Errorf("failed to start session against %q: %w", opponent, err)
	}

	if reply.Game == nil {
		return nil, fmt.Errorf("failed to start session against %q: %w", opponent, apperror.ErrNoActiveGame)
	}

	return reply.Game, nil
}

// FetchActiveGame reads the player's current snapshot. It returns nil, nil when none exists.
func (that *Client) FetchActiveGame(ctx context.Context) (*entity.Game, error) {
	player, err := that.registered()
	if err != nil {
		return nil, err
	}

	val, err := that.client.Get(ctx, GamePrefix+player).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint: nilnil // absence of a session is not an error
	} else if err != nil {
		return nil, fmt.Errorf("failed to get active game: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(val), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game data: %w", err)
	}

	return &game, nil
}

// SubmitMove sends a placement for the player. The outcome is advisory.
func (that *Client) SubmitMove(ctx context.Context, row, col int) (entity.MoveOutcome, error) {
	player, err := that.registered()
	if err != nil {
		return "", err
	}

	reply, err := that.call(ctx, Request{Op: OpSubmit, Player: player, Row: &row, Col: &col})
	if err != nil {
		return "", fmt.Errorf("failed to submit move (%d, %d): %w", row, col, err)
	}

	if reply.Outcome == "" {
		return entity.MoveAccepted, nil
	}

	return reply.Outcome, nil
}

// ListPlayers returns the service's player charts. It needs no registration.
func (that *Client) ListPlayers(ctx context.Context) (*entity.PlayerLists, error) {
	reply, err := that.call(ctx, Request{Op: OpList, Player: that.Player()})
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	if reply.Players == nil {
		return &entity.PlayerLists{}, nil
	}

	return reply.Players, nil
}

func (that *Client) registered() (string, error) {
	player := that.Player()
	if player == "" {
		return "", ErrNotRegistered
	}

	return player, nil
}

// call queues req and waits for its reply up to the client timeout.
func (that *Client) call(ctx context.Context, req Request) (*Reply, error) {
	log := that.logger.With("method", "call", "op", req.Op)

	req.ID = uuid.NewString()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err = that.client.RPush(ctx, RequestQueue, payload).Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemoteUnavailable, err)
	}

	replyKey := ReplyPrefix + req.ID
	values, err := that.client.BLPop(ctx, that.timeout, replyKey).Result()
	if errors.Is(err, redis.Nil) {
		log.Warn("request timed out", "request_id", req.ID, "timeout", that.timeout)
		return nil, fmt.Errorf("%w: no reply to %s within %s", apperror.ErrRemoteUnavailable, req.Op, that.timeout)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemoteUnavailable, err)
	}

	// values is [key, value]
	var reply Reply
	if err = json.Unmarshal([]byte(values[1]), &reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}

	if reply.Error != "" {
		log.Info("request refused", "request_id", req.ID, "code", reply.Error)
		return nil, apperror.FromCode(reply.Error)
	}

	return &reply, nil
}
