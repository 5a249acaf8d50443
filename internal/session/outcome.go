package session

import (
	"fmt"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
	"github.com/rocketscienceinc/reversi-client/internal/reversi"
)

// Change tags what a reconciliation did to the local state.
type Change string

const (
	ChangeNone      Change = "unchanged"
	ChangeCaughtUp  Change = "caught_up"
	ChangeResynced  Change = "resynced"
	ChangeTurn      Change = "turn_changed"
	ChangeReset     Change = "reset"
	ChangeFinished  Change = "finished"
	ChangeCancelled Change = "cancelled"
	ChangeFaulted   Change = "faulted"
)

// Outcome is the result of reconciling one authoritative snapshot.
type Outcome struct {
	Change  Change
	Status  Status
	Applied int
	Fault   *ConsistencyFault
}

// Redraw reports whether the outcome is visible to the player.
func (that Outcome) Redraw() bool {
	return that.Change != "" && that.Change != ChangeNone
}

// ConsistencyFault records a divergence between the local replay and the authority.
// The local state is rebuilt from the authoritative log when one is raised.
type ConsistencyFault struct {
	MoveCount int
	Local     string
	Remote    string
	Reason    string
	Err       error
}

func (that *ConsistencyFault) Error() string {
	if that.Err != nil {
		return fmt.Sprintf("consistency fault after %d moves: %s: %v", that.MoveCount, that.Reason, that.Err)
	}

	return fmt.Sprintf("consistency fault after %d moves: %s", that.MoveCount, that.Reason)
}

func (that *ConsistencyFault) Unwrap() []error {
	if that.Err == nil {
		return []error{apperror.ErrConsistencyFault}
	}

	return []error{apperror.ErrConsistencyFault, that.Err}
}

// Score is the piece count per colour on the current board.
type Score struct {
	Black int `json:"black"`
	White int `json:"white"`
}

// View is a read-only projection of the session for rendering.
type View struct {
	GameID      string             `json:"game_id,omitempty"`
	Dimension   int                `json:"dimension,omitempty"`
	Black       entity.Participant `json:"black"`
	White       entity.Participant `json:"white"`
	Board       string             `json:"board,omitempty"`
	Boards      []reversi.Snapshot `json:"boards,omitempty"`
	Applied     int                `json:"applied"`
	PlayerColor entity.Cell        `json:"player_color"`
	NextColor   entity.Cell        `json:"next_color"`
	Status      Status             `json:"status"`
	MyTurn      bool               `json:"my_turn"`
	LegalMoves  []entity.Move      `json:"legal_moves,omitempty"`
	Score       Score              `json:"score"`
	Result      *entity.Result     `json:"result,omitempty"`
	Winner      entity.Cell        `json:"winner,omitempty"`
	Faults      int                `json:"faults"`
}
