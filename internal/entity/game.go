package entity

// Participant is one seat. An empty Name means the seat is free or its occupant left.
type Participant struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Result holds the final piece counts.
type Result struct {
	Black int `json:"black"`
	White int `json:"white"`
}

// Game is the authoritative snapshot published by the remote service.
type Game struct {
	ID        string      `json:"id"`
	Dimension int         `json:"dimension"`
	Black     Participant `json:"black"`
	White     Participant `json:"white"`
	Moves     []Move      `json:"moves"`
	Board     string      `json:"board,omitempty"`
	Next      Cell        `json:"next"`
	Result    *Result     `json:"result,omitempty"`
}

func (that *Game) IsFinished() bool {
	return that.Result != nil
}

// Winner returns the colour with more pieces, Empty while running or on a tie.
func (that *Game) Winner() Cell {
	if that.Result == nil {
		return Empty
	}

	switch {
	case that.Result.Black > that.Result.White:
		return Black
	case that.Result.White > that.Result.Black:
		return White
	default:
		return Empty
	}
}

// ColorOf returns the seat the named participant occupies, Empty when none.
func (that *Game) ColorOf(name string) Cell {
	switch {
	case name == "":
		return Empty
	case that.White.Name == name:
		return White
	case that.Black.Name == name:
		return Black
	default:
		return Empty
	}
}

func (that *Game) Clone() *Game {
	clone := *that
	clone.Moves = append([]Move(nil), that.Moves...)

	if that.Result != nil {
		result := *that.Result
		clone.Result = &result
	}

	return &clone
}
