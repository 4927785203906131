package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/match-score/models"
	sq "github.com/Masterminds/squirrel"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentInvalidFormat = errors.New("invalid tournament format")
	ErrTournamentWinnerInvalid = errors.New("tournament winner profile conflict or invalid")
	ErrTournamentPrizeNegative = errors.New("tournament prize cannot be negative")
)

const tournamentColumns = `id, title, format, match_format, prize, status, current_round, winner_profile_id, created_at`

type ListTournamentsFilter struct {
	Search string
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetForUpdate reads the tournament and locks its row until the
	// surrounding transaction ends. exec must be a transaction.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateRound(ctx context.Context, exec SQLExecutor, id int, round int) error
	Conclude(ctx context.Context, exec SQLExecutor, id int, winnerProfileID *int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	if t.Status == "" {
		t.Status = models.TournamentStatusOpen
	}
	if t.CurrentRound == 0 {
		t.CurrentRound = 1
	}
	query := `
		INSERT INTO tournaments (title, format, match_format, prize, status, current_round)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		t.Title, t.Format, t.MatchFormat, t.Prize, t.Status, t.CurrentRound,
	).Scan(&t.ID, &t.CreatedAt)
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return scanTournament(pickExecutor(exec, r.db).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return scanTournament(pickExecutor(exec, r.db).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]models.Tournament, error) {
	builder := psql.Select(tournamentColumns).From("tournaments").OrderBy("created_at DESC", "id DESC")

	if s := strings.TrimSpace(filter.Search); s != "" {
		builder = builder.Where(sq.Expr("title ILIKE ?", likePattern(s)))
	}
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tournament list query: %w", err)
	}

	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateRound(ctx context.Context, exec SQLExecutor, id int, round int) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `UPDATE tournaments SET current_round = $1 WHERE id = $2`, round, id)
	if err != nil {
		return fmt.Errorf("failed to update round of tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Conclude(ctx context.Context, exec SQLExecutor, id int, winnerProfileID *int) error {
	query := `UPDATE tournaments SET status = $1, winner_profile_id = $2 WHERE id = $3`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, models.TournamentStatusConcluded, winnerProfileID, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqErrorCode(err); ok {
		switch {
		case code == pqForeignKeyViolation && constraint == "tournaments_winner_profile_id_fkey":
			return ErrTournamentWinnerInvalid
		case code == pqCheckViolation && constraint == "tournaments_prize_check":
			return ErrTournamentPrizeNegative
		case code == "22P02":
			// invalid_text_representation: значение не входит в ENUM tournament_format
			return ErrTournamentInvalidFormat
		}
	}
	return err
}

func scanTournament(row interface{ Scan(dest ...interface{}) error }) (*models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(
		&t.ID, &t.Title, &t.Format, &t.MatchFormat, &t.Prize,
		&t.Status, &t.CurrentRound, &t.WinnerProfileID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	return &t, nil
}
