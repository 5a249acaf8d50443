package session

import (
	"fmt"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
	"github.com/rocketscienceinc/reversi-client/internal/reversi"
)

// Status is the session lifecycle: Uninitialized -> Active -> {Finished, Cancelled}.
type Status int

const (
	StatusUninitialized Status = iota
	StatusActive
	StatusFinished
	StatusCancelled
)

func (that Status) String() string {
	switch that {
	case StatusActive:
		return "active"
	case StatusFinished:
		return "finished"
	case StatusCancelled:
		return "cancelled"
	default:
		return "uninitialized"
	}
}

func (that Status) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

func (that *Status) UnmarshalText(text []byte) error {
	for _, status := range []Status{StatusUninitialized, StatusActive, StatusFinished, StatusCancelled} {
		if status.String() == string(text) {
			*that = status
			return nil
		}
	}

	return fmt.Errorf("unknown session status %q", text)
}

func (that Status) IsTerminal() bool {
	return that == StatusFinished || that == StatusCancelled
}

// viewState is the client-owned LocalViewState. boards[k] is the board after k moves,
// so len(boards) == applied+1 at all times. It is not safe for concurrent use; the
// Session goroutine is its only writer.
type viewState struct {
	game        *entity.Game
	boards      []reversi.Snapshot
	applied     int
	playerName  string
	playerColor entity.Cell
	nextColor   entity.Cell
	status      Status
	faults      int
	unreplayed  int // 1 + length of the last authoritative log the engine rejected, 0 when none
}

// begin initializes the state from the authoritative snapshot by replaying its log.
func (that *viewState) begin(game *entity.Game, playerName string) error {
	if that.status != StatusUninitialized {
		return fmt.Errorf("session already %s", that.status)
	}

	if game == nil {
		return apperror.ErrNoActiveGame
	}

	_, boards, err := reversi.Replay(game.Dimension, game.Moves)
	if err != nil {
		return fmt.Errorf("failed to replay game %s: %w", game.ID, err)
	}

	that.playerName = playerName
	that.playerColor = game.ColorOf(playerName)
	if that.playerColor == entity.Empty {
		that.playerColor = entity.Black
	}

	that.game = game
	that.boards = boards
	that.applied = len(game.Moves)
	that.nextColor = game.Next
	that.status = StatusActive

	if game.IsFinished() {
		that.status = StatusFinished
	}

	return nil
}

func (that *viewState) latest() *entity.Board {
	return that.boards[len(that.boards)-1].Board
}

// reconcile diffs an authoritative snapshot against the local state. settled is true
// when no local submission was in flight while the snapshot was fetched, which is what
// allows a local lead over the authority to be treated as rejected speculation.
// A log the engine cannot replay is reported once as a fault and leaves the state as is.
func (that *viewState) reconcile(game *entity.Game, settled bool) (Outcome, error) {
	if that.status != StatusActive {
		return Outcome{Change: ChangeNone, Status: that.status}, nil
	}

	if game == nil {
		that.status = StatusCancelled
		return Outcome{Change: ChangeCancelled, Status: that.status}, nil
	}

	prev := that.game
	outcome := Outcome{Change: ChangeNone}

	switch {
	case seatVacated(prev, game):
		that.game = game
		that.status = StatusCancelled

		return Outcome{Change: ChangeCancelled, Status: that.status}, nil

	case seatChanged(prev, game):
		if err := that.resync(game); err != nil {
			return that.unreplayable(game, err), nil
		}

		if color := game.ColorOf(that.playerName); color != entity.Empty {
			that.playerColor = color
		}

		outcome.Change = ChangeReset

	case len(game.Moves) > that.applied:
		if fault := that.diverged(game); fault != nil {
			if err := that.resync(game); err != nil {
				return that.unreplayable(game, err), nil
			}

			outcome.Change = ChangeResynced
			outcome.Fault = fault

			break
		}

		from := that.applied
		if err := that.catchUp(game); err != nil {
			return that.unreplayable(game, err), nil
		}

		outcome.Change = ChangeCaughtUp
		outcome.Applied = that.applied - from

		if fault := that.verify(game); fault != nil {
			if err := that.resync(game); err != nil {
				return that.unreplayable(game, err), nil
			}

			outcome.Change = ChangeResynced
			outcome.Fault = fault
		}

	case len(game.Moves) < that.applied && settled:
		// the authority never took our speculative move
		fault := &ConsistencyFault{
			MoveCount: len(game.Moves),
			Local:     that.latest().String(),
			Remote:    game.Board,
			Reason:    fmt.Sprintf("authority has %d moves, %d applied locally", len(game.Moves), that.applied),
		}
		if err := that.resync(game); err != nil {
			return that.unreplayable(game, err), nil
		}

		outcome.Change = ChangeResynced
		outcome.Fault = fault

	case len(game.Moves) == that.applied:
		fault := that.diverged(game)
		if fault == nil {
			fault = that.verify(game)
		}

		switch {
		case fault != nil:
			if err := that.resync(game); err != nil {
				return that.unreplayable(game, err), nil
			}

			outcome.Change = ChangeResynced
			outcome.Fault = fault
		case game.Next != that.nextColor:
			that.nextColor = game.Next
			outcome.Change = ChangeTurn
		}
	}

	if outcome.Fault != nil {
		that.faults++
	}

	that.game = game
	that.unreplayed = 0

	if game.IsFinished() {
		that.status = StatusFinished
		if outcome.Change == ChangeNone {
			outcome.Change = ChangeFinished
		}
	}

	outcome.Status = that.status

	return outcome, nil
}

// unreplayable records a fault for an authoritative log the engine rejects. The local
// state is kept; the same log length is not reported again.
func (that *viewState) unreplayable(game *entity.Game, err error) Outcome {
	if that.unreplayed == len(game.Moves)+1 {
		return Outcome{Change: ChangeNone, Status: that.status}
	}

	that.unreplayed = len(game.Moves) + 1
	that.faults++

	return Outcome{
		Change: ChangeFaulted,
		Status: that.status,
		Fault: &ConsistencyFault{
			MoveCount: len(game.Moves),
			Local:     that.latest().String(),
			Remote:    game.Board,
			Reason:    "authoritative log cannot be replayed",
			Err:       err,
		},
	}
}

// diverged compares the locally applied moves with the authoritative log where both
// have them.
func (that *viewState) diverged(game *entity.Game) *ConsistencyFault {
	shared := min(that.applied, len(game.Moves))
	for i := range shared {
		local := that.boards[i+1].Move
		if local != game.Moves[i] {
			return &ConsistencyFault{
				MoveCount: len(game.Moves),
				Local:     that.latest().String(),
				Remote:    game.Board,
				Reason:    fmt.Sprintf("move %d is %d locally, %d at the authority", i, local, game.Moves[i]),
			}
		}
	}

	return nil
}

// catchUp applies the authoritative moves not yet applied locally.
func (that *viewState) catchUp(game *entity.Game) error {
	boards := that.boards
	for i := that.applied; i < len(game.Moves); i++ {
		snapshot, err := reversi.Step(boards[len(boards)-1].Board, i, game.Moves[i])
		if err != nil {
			return fmt.Errorf("failed to catch up: %w", err)
		}

		boards = append(boards, snapshot)
	}

	that.boards = boards
	that.applied = len(game.Moves)
	that.nextColor = game.Next

	return nil
}

// verify compares the local board with the authoritative serialization.
func (that *viewState) verify(game *entity.Game) *ConsistencyFault {
	if game.Board == "" {
		return nil
	}

	local := that.latest()

	remote, err := entity.ParseBoard(game.Dimension, game.Board)
	if err != nil {
		return &ConsistencyFault{
			MoveCount: len(game.Moves),
			Local:     local.String(),
			Remote:    game.Board,
			Reason:    "unreadable authoritative board",
			Err:       err,
		}
	}

	if local.Equal(remote) {
		return nil
	}

	return &ConsistencyFault{
		MoveCount: len(game.Moves),
		Local:     local.String(),
		Remote:    game.Board,
		Reason:    "board mismatch",
	}
}

// resync rebuilds the boards from the authoritative log.
func (that *viewState) resync(game *entity.Game) error {
	_, boards, err := reversi.Replay(game.Dimension, game.Moves)
	if err != nil {
		return fmt.Errorf("failed to resync: %w", err)
	}

	that.boards = boards
	that.applied = len(game.Moves)
	that.nextColor = game.Next

	return nil
}

// applyLocal plays the local player's move optimistically.
func (that *viewState) applyLocal(row, col int) (entity.Move, error) {
	if err := that.checkActive(); err != nil {
		return entity.Pass, err
	}

	if that.playerColor != that.nextColor {
		return entity.Pass, apperror.ErrNotYourTurn
	}

	board := that.latest()
	next, err := reversi.ApplyMove(board, that.playerColor, row, col)
	if err != nil {
		return entity.Pass, err
	}

	move, err := entity.NewMove(board.Size(), row, col)
	if err != nil {
		return entity.Pass, err
	}

	that.boards = append(that.boards, reversi.Snapshot{Move: move, Color: that.playerColor, Board: next})
	that.applied++
	that.nextColor = that.playerColor.Opponent()

	return move, nil
}

func (that *viewState) checkActive() error {
	switch that.status {
	case StatusActive:
		return nil
	case StatusFinished:
		return apperror.ErrGameFinished
	case StatusCancelled:
		return apperror.ErrGameCancelled
	default:
		return apperror.ErrNoActiveSession
	}
}

func (that *viewState) view() View {
	if that.status == StatusUninitialized {
		return View{Status: that.status}
	}

	board := that.latest()
	view := View{
		GameID:      that.game.ID,
		Dimension:   that.game.Dimension,
		Black:       that.game.Black,
		White:       that.game.White,
		Board:       board.String(),
		Boards:      append([]reversi.Snapshot(nil), that.boards...),
		Applied:     that.applied,
		PlayerColor: that.playerColor,
		NextColor:   that.nextColor,
		Status:      that.status,
		Score: Score{
			Black: board.Count(entity.Black),
			White: board.Count(entity.White),
		},
		Faults: that.faults,
	}

	if that.game.Result != nil {
		result := *that.game.Result
		view.Result = &result
		view.Winner = that.game.Winner()
	}

	if view.Status == StatusActive && that.playerColor == that.nextColor {
		view.MyTurn = true
		view.LegalMoves = reversi.LegalMoves(board, that.playerColor)
	}

	return view
}

func seatVacated(prev, next *entity.Game) bool {
	return (prev.Black.Name != "" && next.Black.Name == "") ||
		(prev.White.Name != "" && next.White.Name == "")
}

func seatChanged(prev, next *entity.Game) bool {
	return prev.Black.Name != next.Black.Name || prev.White.Name != next.White.Name
}
