package models

import (
	"encoding/json"
	"time"
)

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusFinished  MatchStatus = "finished"
)

type Match struct {
	ID             int               `json:"id" db:"id"`
	Format         string            `json:"format" db:"format"`
	Date           time.Time         `json:"date" db:"date"`
	TournamentID   *int              `json:"tournament_id,omitempty" db:"tournament_id"`
	TournamentType *TournamentFormat `json:"tournament_type,omitempty" db:"tournament_type"`
	Round          *int              `json:"round,omitempty" db:"round"`
	Status         MatchStatus       `json:"status" db:"status"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`

	// Заполняются сервисом/репозиторием, в таблице matches не хранятся
	Participants    []MatchParticipant `json:"participants" db:"-"`
	TournamentTitle *string            `json:"tournament_title,omitempty" db:"-"`
}

// Finished is the legacy boolean view of Status.
func (m *Match) Finished() bool {
	return m.Status == MatchStatusFinished
}

// MarshalJSON adds the boolean "finished" flag next to status.
func (m Match) MarshalJSON() ([]byte, error) {
	type plain Match
	return json.Marshal(struct {
		plain
		Finished bool `json:"finished"`
	}{plain: plain(m), Finished: m.Finished()})
}

// MatchParticipant связывает матч с профилем игрока и хранит его счёт.
type MatchParticipant struct {
	MatchID         int    `json:"match_id" db:"match_id"`
	PlayerProfileID int    `json:"player_profile_id" db:"player_profile_id"`
	Score           int    `json:"score" db:"score"`
	FullName        string `json:"full_name" db:"-"`
}

// Outcome describes how a finished match was resolved.
type Outcome struct {
	MatchID      int   `json:"match_id"`
	TournamentID *int  `json:"tournament_id,omitempty"`
	IsDraw       bool  `json:"is_draw"`
	WinnerIDs    []int `json:"winner_ids"`
	LoserIDs     []int `json:"loser_ids"`
	DrawIDs      []int `json:"draw_ids"`

	// TournamentConcluded is set when this result finished the last open match of a league.
	TournamentConcluded bool `json:"tournament_concluded,omitempty"`
}

// Winner returns the single winning profile id, if the match produced one.
func (o *Outcome) Winner() (int, bool) {
	if o == nil || len(o.WinnerIDs) != 1 {
		return 0, false
	}
	return o.WinnerIDs[0], true
}
