package models

import "time"

type TournamentFormat string

const (
	TournamentFormatKnockout TournamentFormat = "Knockout"
	TournamentFormatLeague   TournamentFormat = "League"
)

// TournamentStatus представляет статус турнира, соответствующий ENUM в БД.
type TournamentStatus string

const (
	TournamentStatusOpen       TournamentStatus = "open"
	TournamentStatusInProgress TournamentStatus = "in_progress"
	TournamentStatusConcluded  TournamentStatus = "concluded"
)

// Tournament представляет турнир.
type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Title           string           `json:"title" db:"title"`
	Format          TournamentFormat `json:"format" db:"format"`
	MatchFormat     string           `json:"match_format" db:"match_format"`
	Prize           *int             `json:"prize,omitempty" db:"prize"`
	Status          TournamentStatus `json:"status" db:"status"`
	CurrentRound    int              `json:"current_round" db:"current_round"`
	WinnerProfileID *int             `json:"winner_profile_id,omitempty" db:"winner_profile_id"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Matches   []Match    `json:"matches,omitempty" db:"-"`
	Standings []Standing `json:"standings,omitempty" db:"-"`
}
