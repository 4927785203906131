package services

import (
	"fmt"

	"github.com/Dosada05/match-score/models"
)

// Очки турнирной таблицы
const (
	pointsWin  = 3
	pointsDraw = 1
	pointsLoss = 0
)

// computeOutcome decides a finished match from integer scores.
//
// Every participant level: everyone draws. Otherwise the top score wins when a
// single participant holds it; several participants sharing the top score draw
// with each other. Everyone below the top score loses. With two participants
// this is the plain win/loss/draw rule.
func computeOutcome(matchID int, tournamentID *int, participants []models.MatchParticipant) (*models.Outcome, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: match %d has %d participants", ErrInsufficientParticipants, matchID, len(participants))
	}

	top, bottom := participants[0].Score, participants[0].Score
	for _, p := range participants[1:] {
		top = max(top, p.Score)
		bottom = min(bottom, p.Score)
	}

	outcome := &models.Outcome{
		MatchID:      matchID,
		TournamentID: tournamentID,
		WinnerIDs:    []int{},
		LoserIDs:     []int{},
		DrawIDs:      []int{},
	}

	if top == bottom {
		outcome.IsDraw = true
		for _, p := range participants {
			outcome.DrawIDs = append(outcome.DrawIDs, p.PlayerProfileID)
		}
		return outcome, nil
	}

	leaders := make([]int, 0, 1)
	for _, p := range participants {
		if p.Score == top {
			leaders = append(leaders, p.PlayerProfileID)
		} else {
			outcome.LoserIDs = append(outcome.LoserIDs, p.PlayerProfileID)
		}
	}
	if len(leaders) == 1 {
		outcome.WinnerIDs = leaders
	} else {
		outcome.IsDraw = true
		outcome.DrawIDs = leaders
	}
	return outcome, nil
}

type resultDelta struct {
	wins, losses, draws, points int
}

// outcomeDeltas lists the statistics change of every participant.
func outcomeDeltas(o *models.Outcome) map[int]resultDelta {
	deltas := make(map[int]resultDelta, len(o.WinnerIDs)+len(o.LoserIDs)+len(o.DrawIDs))
	for _, id := range o.WinnerIDs {
		deltas[id] = resultDelta{wins: 1, points: pointsWin}
	}
	for _, id := range o.LoserIDs {
		deltas[id] = resultDelta{losses: 1, points: pointsLoss}
	}
	for _, id := range o.DrawIDs {
		deltas[id] = resultDelta{draws: 1, points: pointsDraw}
	}
	return deltas
}
