package models

// TournamentParticipant хранит статистику игрока в рамках одного турнира.
type TournamentParticipant struct {
	TournamentID    int `json:"tournament_id" db:"tournament_id"`
	PlayerProfileID int `json:"player_profile_id" db:"player_profile_id"`
	Wins            int `json:"wins" db:"wins"`
	Losses          int `json:"losses" db:"losses"`
	Draws           int `json:"draws" db:"draws"`
	Points          int `json:"points" db:"points"`
}

// Standing is a league table row.
type Standing struct {
	Position        int    `json:"position"`
	PlayerProfileID int    `json:"player_profile_id"`
	FullName        string `json:"full_name"`
	Wins            int    `json:"wins"`
	Losses          int    `json:"losses"`
	Draws           int    `json:"draws"`
	Points          int    `json:"points"`
}
