package brackets

import (
	"fmt"
	"time"

	"github.com/Dosada05/match-score/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

func (g *RoundRobinGenerator) Format() models.TournamentFormat {
	return models.TournamentFormatLeague
}

func (g *RoundRobinGenerator) MatchOffset(order int) time.Duration {
	return time.Duration(order+1) * time.Hour
}

// GeneratePairings creates every unordered pair once, n*(n-1)/2 matches in
// total, all of them up front.
func (g *RoundRobinGenerator) GeneratePairings(participantIDs []int) ([]Pairing, error) {
	n := len(participantIDs)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d, need at least 2", ErrNotEnoughParticipants, n)
	}

	pairings := make([]Pairing, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairings = append(pairings, Pairing{
				Order:   len(pairings),
				Player1: participantIDs[i],
				Player2: participantIDs[j],
			})
		}
	}
	return pairings, nil
}
