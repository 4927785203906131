package brackets

import (
	"time"

	"github.com/Dosada05/match-score/models"
)

// Pairing is one generated match between two player profiles.
type Pairing struct {
	Order   int
	Player1 int
	Player2 int
}

// BracketGenerator turns the registered participants of a tournament into
// the matches it opens with.
type BracketGenerator interface {
	GeneratePairings(participantIDs []int) ([]Pairing, error)

	// MatchOffset is how far from the seeding moment the match with the
	// given order (starting at 0) is scheduled.
	MatchOffset(order int) time.Duration

	Format() models.TournamentFormat

	GetName() string
}

// NewGenerator returns the generator for a tournament format, or nil if the
// format is unknown.
func NewGenerator(format models.TournamentFormat, shuffle ShuffleFunc) BracketGenerator {
	switch format {
	case models.TournamentFormatKnockout:
		return NewSingleEliminationGenerator(shuffle)
	case models.TournamentFormatLeague:
		return NewRoundRobinGenerator()
	default:
		return nil
	}
}
