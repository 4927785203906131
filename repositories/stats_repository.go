package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/match-score/models"
	sq "github.com/Masterminds/squirrel"
)

type StatSubject string

const (
	StatPlayers              StatSubject = "players"
	StatLinkedPlayers        StatSubject = "linked_players"
	StatUsers                StatSubject = "users"
	StatMatches              StatSubject = "matches"
	StatFinishedMatches      StatSubject = "finished_matches"
	StatTournaments          StatSubject = "tournaments"
	StatConcludedTournaments StatSubject = "concluded_tournaments"
	StatPendingClaims        StatSubject = "pending_claims"
)

type StatsRepository interface {
	Count(ctx context.Context, exec SQLExecutor, subject StatSubject) (int, error)
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

func countQuery(subject StatSubject) (sq.SelectBuilder, error) {
	count := psql.Select("COUNT(*)")
	switch subject {
	case StatPlayers:
		return count.From("player_profiles"), nil
	case StatLinkedPlayers:
		return count.From("player_profiles").Where(sq.NotEq{"user_id": nil}), nil
	case StatUsers:
		return count.From("users"), nil
	case StatMatches:
		return count.From("matches"), nil
	case StatFinishedMatches:
		return count.From("matches").Where(sq.Eq{"status": models.MatchStatusFinished}), nil
	case StatTournaments:
		return count.From("tournaments"), nil
	case StatConcludedTournaments:
		return count.From("tournaments").Where(sq.Eq{"status": models.TournamentStatusConcluded}), nil
	case StatPendingClaims:
		return count.From("claim_requests").Where(sq.Eq{"approved_or_denied": nil}), nil
	default:
		return sq.SelectBuilder{}, fmt.Errorf("unknown stat subject %q", subject)
	}
}

func (r *postgresStatsRepository) Count(ctx context.Context, exec SQLExecutor, subject StatSubject) (int, error) {
	builder, err := countQuery(subject)
	if err != nil {
		return 0, err
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build %s count query: %w", subject, err)
	}

	var n int
	if err := pickExecutor(exec, r.db).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", subject, err)
	}
	return n, nil
}
