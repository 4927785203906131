package brackets

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Dosada05/match-score/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to pair")
	ErrOddParticipants       = errors.New("participant count must be even")
)

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

type SingleEliminationGenerator struct {
	shuffle ShuffleFunc
}

// NewSingleEliminationGenerator uses shuffle to randomize the opening round.
// A nil shuffle falls back to math/rand/v2.
func NewSingleEliminationGenerator(shuffle ShuffleFunc) BracketGenerator {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &SingleEliminationGenerator{shuffle: shuffle}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) Format() models.TournamentFormat {
	return models.TournamentFormatKnockout
}

// Матчи первого раунда разносятся по дням
func (g *SingleEliminationGenerator) MatchOffset(order int) time.Duration {
	return time.Duration(order+1) * 24 * time.Hour
}

// GeneratePairings shuffles the participants and pairs neighbours:
// shuffled[0] vs shuffled[1], shuffled[2] vs shuffled[3] and so on.
func (g *SingleEliminationGenerator) GeneratePairings(participantIDs []int) ([]Pairing, error) {
	n := len(participantIDs)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d, need at least 2", ErrNotEnoughParticipants, n)
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrOddParticipants, n)
	}

	shuffled := make([]int, n)
	copy(shuffled, participantIDs)
	g.shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	return pairNeighbours(shuffled), nil
}

// NextRoundPairings pairs winners in the order they were collected, without
// reshuffling: winners[0] vs winners[1], winners[2] vs winners[3]. Only the
// opening round is random; later rounds keep the bracket halves together.
func NextRoundPairings(winners []int) ([]Pairing, error) {
	if len(winners) < 2 {
		return nil, fmt.Errorf("%w: got %d winners", ErrNotEnoughParticipants, len(winners))
	}
	if len(winners)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d winners", ErrOddParticipants, len(winners))
	}
	return pairNeighbours(winners), nil
}

func pairNeighbours(ids []int) []Pairing {
	pairings := make([]Pairing, 0, len(ids)/2)
	for i := 0; i+1 < len(ids); i += 2 {
		pairings = append(pairings, Pairing{
			Order:   len(pairings),
			Player1: ids[i],
			Player2: ids[i+1],
		})
	}
	return pairings
}
