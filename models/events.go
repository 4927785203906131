package models

// Типы сообщений, которые рассылаются подписчикам комнаты турнира
const (
	EventMatchScoreUpdated   = "MATCH_SCORE_UPDATED"
	EventMatchFinished       = "MATCH_FINISHED"
	EventRoundAdvanced       = "ROUND_ADVANCED"
	EventTournamentConcluded = "TOURNAMENT_CONCLUDED"
)
