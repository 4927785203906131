package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/match-score/models"
)

var (
	ErrTournamentParticipantNotFound          = errors.New("tournament participant not found")
	ErrTournamentParticipantProfileInvalid    = errors.New("tournament participant profile conflict or invalid")
	ErrTournamentParticipantTournamentInvalid = errors.New("tournament participant tournament conflict or invalid")
)

type TournamentParticipantRepository interface {
	// Register adds the profile with zeroed statistics. Registering an already
	// registered profile is a no-op.
	Register(ctx context.Context, exec SQLExecutor, tournamentID, profileID int) error
	// ApplyResult atomically adds the given deltas to the tournament-scoped statistics.
	ApplyResult(ctx context.Context, exec SQLExecutor, tournamentID, profileID int, wins, losses, draws, points int) error
	// ListStandings orders by points only; rows with equal points come back in
	// whatever order the database yields them.
	ListStandings(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Standing, error)
	DeleteByProfile(ctx context.Context, exec SQLExecutor, profileID int) error
}

type postgresTournamentParticipantRepository struct {
	db *sql.DB
}

func NewPostgresTournamentParticipantRepository(db *sql.DB) TournamentParticipantRepository {
	return &postgresTournamentParticipantRepository{db: db}
}

func (r *postgresTournamentParticipantRepository) Register(ctx context.Context, exec SQLExecutor, tournamentID, profileID int) error {
	query := `
		INSERT INTO tournament_participants (tournament_id, player_profile_id, wins, losses, draws, points)
		VALUES ($1, $2, 0, 0, 0, 0)
		ON CONFLICT (tournament_id, player_profile_id) DO NOTHING`

	_, err := pickExecutor(exec, r.db).ExecContext(ctx, query, tournamentID, profileID)
	if err != nil {
		if code, constraint, ok := pqErrorCode(err); ok {
			switch {
			case code == pqForeignKeyViolation && constraint == "tournament_participants_player_profile_id_fkey":
				return ErrTournamentParticipantProfileInvalid
			case code == pqForeignKeyViolation && constraint == "tournament_participants_tournament_id_fkey":
				return ErrTournamentParticipantTournamentInvalid
			}
		}
		return fmt.Errorf("failed to register player profile %d in tournament %d: %w", profileID, tournamentID, err)
	}
	return nil
}

func (r *postgresTournamentParticipantRepository) ApplyResult(ctx context.Context, exec SQLExecutor, tournamentID, profileID int, wins, losses, draws, points int) error {
	query := `
		UPDATE tournament_participants
		SET wins = wins + $1, losses = losses + $2, draws = draws + $3, points = points + $4
		WHERE tournament_id = $5 AND player_profile_id = $6`

	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, wins, losses, draws, points, tournamentID, profileID)
	if err != nil {
		return fmt.Errorf("failed to update standings of tournament %d: %w", tournamentID, err)
	}
	return checkAffectedRows(result, ErrTournamentParticipantNotFound)
}

func (r *postgresTournamentParticipantRepository) ListStandings(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Standing, error) {
	query := `
		SELECT tp.player_profile_id, pp.full_name, tp.wins, tp.losses, tp.draws, tp.points
		FROM tournament_participants tp
		JOIN player_profiles pp ON pp.id = tp.player_profile_id
		WHERE tp.tournament_id = $1
		ORDER BY tp.points DESC`

	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	standings := make([]models.Standing, 0)
	for rows.Next() {
		var s models.Standing
		if err := rows.Scan(&s.PlayerProfileID, &s.FullName, &s.Wins, &s.Losses, &s.Draws, &s.Points); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		s.Position = len(standings) + 1
		standings = append(standings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standings of tournament %d: %w", tournamentID, err)
	}
	return standings, nil
}

func (r *postgresTournamentParticipantRepository) DeleteByProfile(ctx context.Context, exec SQLExecutor, profileID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx, `DELETE FROM tournament_participants WHERE player_profile_id = $1`, profileID)
	if err != nil {
		return fmt.Errorf("failed to remove player profile %d from tournaments: %w", profileID, err)
	}
	return nil
}
