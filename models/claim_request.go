package models

import "time"

type ClaimType string

const (
	ClaimTypePlayer   ClaimType = "player"
	ClaimTypeDirector ClaimType = "director"
)

// ClaimRequest: заявка пользователя на привязку профиля игрока или на роль директора.
// ApprovedOrDenied == nil означает, что заявка ещё не рассмотрена.
type ClaimRequest struct {
	ID               int       `json:"id" db:"id"`
	UserID           int       `json:"user_id" db:"user_id"`
	PlayerProfileID  *int      `json:"player_profile_id,omitempty" db:"player_profile_id"`
	ApprovedOrDenied *bool     `json:"approved_or_denied,omitempty" db:"approved_or_denied"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (c *ClaimRequest) Type() ClaimType {
	if c.PlayerProfileID == nil {
		return ClaimTypeDirector
	}
	return ClaimTypePlayer
}

func (c *ClaimRequest) IsPending() bool {
	return c.ApprovedOrDenied == nil
}
