package models

type DashboardStats struct {
	PlayersTotal         int `json:"players_total"`
	LinkedPlayers        int `json:"linked_players"`
	UsersTotal           int `json:"users_total"`
	MatchesTotal         int `json:"matches_total"`
	MatchesFinished      int `json:"matches_finished"`
	TournamentsTotal     int `json:"tournaments_total"`
	TournamentsConcluded int `json:"tournaments_concluded"`
	PendingClaims        int `json:"pending_claims"`
}
