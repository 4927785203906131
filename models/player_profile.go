package models

import "time"

// PlayerProfile представляет профиль игрока. Статистика (wins/losses/draws) глобальная.
type PlayerProfile struct {
	ID         int       `json:"id" db:"id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Country    *string   `json:"country,omitempty" db:"country"`
	SportsClub *string   `json:"sports_club,omitempty" db:"sports_club"`
	Wins       int       `json:"wins" db:"wins"`
	Losses     int       `json:"losses" db:"losses"`
	Draws      int       `json:"draws" db:"draws"`
	UserID     *int      `json:"user_id,omitempty" db:"user_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`

	AvatarKey *string `json:"-" db:"avatar_key"`
	AvatarURL *string `json:"avatar_url,omitempty" db:"-"`
}

// IsLinked reports whether a user account owns this profile.
func (p *PlayerProfile) IsLinked() bool {
	return p.UserID != nil
}
