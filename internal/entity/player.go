package entity

// ParticipantInfo is what the remote service keeps about a registered player.
type ParticipantInfo struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	GamesPlayed int    `json:"games_played"`
}

// PlayerLists are the leaderboard charts published by the remote service.
type PlayerLists struct {
	Top       []ParticipantInfo `json:"top"`
	Recent    []ParticipantInfo `json:"recent"`
	Available []ParticipantInfo `json:"available"`
}
