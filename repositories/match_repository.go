package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/match-score/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound             = errors.New("match not found")
	ErrMatchTournamentInvalid    = errors.New("match tournament conflict or invalid")
	ErrMatchParticipantInvalid   = errors.New("match participant conflict or invalid")
	ErrMatchParticipantDuplicate = errors.New("player already participates in this match")
	ErrMatchParticipantNotFound  = errors.New("player does not participate in this match")
	ErrMatchAlreadyFinished      = errors.New("match is already finished")
	ErrMatchScoreNegative        = errors.New("match score cannot become negative")
)

const matchColumns = `m.id, m.format, m.date, m.tournament_id, m.tournament_type, m.round, m.status, m.created_at, t.title`

type MatchFilter struct {
	TournamentID     *int
	TournamentSearch string
	Status           *models.MatchStatus
	Round            *int
	Limit            int
	Offset           int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	AddParticipant(ctx context.Context, exec SQLExecutor, matchID, profileID int) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetForScoring reads the match under a share lock; it waits for a running
	// finalization and fails with ErrMatchAlreadyFinished once it commits.
	GetForScoring(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// List returns matches with participants (insertion order), newest date first
	// unless a tournament is given, in which case matches come in creation order.
	List(ctx context.Context, exec SQLExecutor, filter MatchFilter) ([]models.Match, error)
	ListParticipants(ctx context.Context, exec SQLExecutor, matchID int) ([]models.MatchParticipant, error)
	// IncrementScore atomically adds delta and returns the resulting score.
	IncrementScore(ctx context.Context, exec SQLExecutor, matchID, profileID, delta int) (int, error)
	MarkFinished(ctx context.Context, exec SQLExecutor, id int) error
	UpdateDate(ctx context.Context, exec SQLExecutor, id int, date time.Time) error
	LastDateInTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*time.Time, error)
	CountUnfinishedInTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	DeleteParticipantsByProfile(ctx context.Context, exec SQLExecutor, profileID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	if m.Status == "" {
		m.Status = models.MatchStatusScheduled
	}
	query := `
		INSERT INTO matches (format, date, tournament_id, tournament_type, round, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		m.Format, m.Date.UTC(), m.TournamentID, m.TournamentType, m.Round, m.Status,
	).Scan(&m.ID, &m.CreatedAt)
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) AddParticipant(ctx context.Context, exec SQLExecutor, matchID, profileID int) error {
	query := `INSERT INTO match_participants (match_id, player_profile_id, score) VALUES ($1, $2, 0)`
	_, err := pickExecutor(exec, r.db).ExecContext(ctx, query, matchID, profileID)
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches m
		LEFT JOIN tournaments t ON t.id = m.tournament_id
		WHERE m.id = $1`

	m, err := scanMatch(pickExecutor(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) GetForScoring(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches m
		LEFT JOIN tournaments t ON t.id = m.tournament_id
		WHERE m.id = $1
		FOR SHARE OF m`

	m, err := scanMatch(pickExecutor(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if m.Finished() {
		return nil, ErrMatchAlreadyFinished
	}
	return m, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, exec SQLExecutor, filter MatchFilter) ([]models.Match, error) {
	executor := pickExecutor(exec, r.db)

	builder := psql.Select(matchColumns).
		From("matches m").
		LeftJoin("tournaments t ON t.id = m.tournament_id")

	if filter.TournamentID != nil {
		builder = builder.Where(sq.Eq{"m.tournament_id": *filter.TournamentID}).OrderBy("m.id ASC")
	} else {
		builder = builder.OrderBy("m.date DESC", "m.id DESC")
	}
	if s := strings.TrimSpace(filter.TournamentSearch); s != "" {
		builder = builder.Where(sq.Expr("t.title ILIKE ?", likePattern(s)))
	}
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"m.status": *filter.Status})
	}
	if filter.Round != nil {
		builder = builder.Where(sq.Eq{"m.round": *filter.Round})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build match list query: %w", err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}

	if err := r.attachParticipants(ctx, executor, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// attachParticipants loads participants of all matches with one query and
// groups them by match id.
func (r *postgresMatchRepository) attachParticipants(ctx context.Context, executor SQLExecutor, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	ids := make([]int64, len(matches))
	index := make(map[int]int, len(matches))
	for i, m := range matches {
		ids[i] = int64(m.ID)
		index[m.ID] = i
		matches[i].Participants = make([]models.MatchParticipant, 0, 2)
	}

	query := `
		SELECT mp.match_id, mp.player_profile_id, mp.score, pp.full_name
		FROM match_participants mp
		JOIN player_profiles pp ON pp.id = mp.player_profile_id
		WHERE mp.match_id = ANY($1)
		ORDER BY mp.match_id, mp.id`

	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load match participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mp models.MatchParticipant
		if err := rows.Scan(&mp.MatchID, &mp.PlayerProfileID, &mp.Score, &mp.FullName); err != nil {
			return fmt.Errorf("failed to scan match participant: %w", err)
		}
		if i, ok := index[mp.MatchID]; ok {
			matches[i].Participants = append(matches[i].Participants, mp)
		}
	}
	return rows.Err()
}

func (r *postgresMatchRepository) ListParticipants(ctx context.Context, exec SQLExecutor, matchID int) ([]models.MatchParticipant, error) {
	query := `
		SELECT mp.match_id, mp.player_profile_id, mp.score, pp.full_name
		FROM match_participants mp
		JOIN player_profiles pp ON pp.id = mp.player_profile_id
		WHERE mp.match_id = $1
		ORDER BY mp.id`

	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants of match %d: %w", matchID, err)
	}
	defer rows.Close()

	participants := make([]models.MatchParticipant, 0, 2)
	for rows.Next() {
		var mp models.MatchParticipant
		if err := rows.Scan(&mp.MatchID, &mp.PlayerProfileID, &mp.Score, &mp.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan match participant: %w", err)
		}
		participants = append(participants, mp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants of match %d: %w", matchID, err)
	}
	return participants, nil
}

func (r *postgresMatchRepository) IncrementScore(ctx context.Context, exec SQLExecutor, matchID, profileID, delta int) (int, error) {
	// Инкремент в одном UPDATE: параллельные запросы складываются, а не перезаписывают друг друга
	query := `
		UPDATE match_participants mp
		SET score = mp.score + $1
		FROM matches m
		WHERE m.id = mp.match_id
		  AND mp.match_id = $2
		  AND mp.player_profile_id = $3
		  AND m.status = 'scheduled'
		RETURNING mp.score`

	var score int
	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query, delta, matchID, profileID).Scan(&score)
	if err == nil {
		return score, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, r.explainMissingParticipant(ctx, exec, matchID)
	}
	if code, constraint, ok := pqErrorCode(err); ok && code == pqCheckViolation && constraint == "match_participants_score_check" {
		return 0, ErrMatchScoreNegative
	}
	return 0, fmt.Errorf("failed to update score in match %d: %w", matchID, err)
}

// explainMissingParticipant tells apart the reasons an increment touched no row.
func (r *postgresMatchRepository) explainMissingParticipant(ctx context.Context, exec SQLExecutor, matchID int) error {
	m, err := r.GetByID(ctx, exec, matchID)
	if err != nil {
		return err
	}
	if m.Finished() {
		return ErrMatchAlreadyFinished
	}
	return ErrMatchParticipantNotFound
}

func (r *postgresMatchRepository) MarkFinished(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE matches SET status = 'finished' WHERE id = $1 AND status = 'scheduled'`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to finish match %d: %w", id, err)
	}
	if err := checkAffectedRows(result, ErrMatchAlreadyFinished); err != nil {
		if errors.Is(err, ErrMatchAlreadyFinished) {
			if _, getErr := r.GetByID(ctx, exec, id); getErr != nil {
				return getErr
			}
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) UpdateDate(ctx context.Context, exec SQLExecutor, id int, date time.Time) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `UPDATE matches SET date = $1 WHERE id = $2`, date.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to reschedule match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) LastDateInTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*time.Time, error) {
	var last sql.NullTime
	err := pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT MAX(date) FROM matches WHERE tournament_id = $1`, tournamentID,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to get last match date of tournament %d: %w", tournamentID, err)
	}
	if !last.Valid {
		return nil, nil
	}
	t := last.Time.UTC()
	return &t, nil
}

func (r *postgresMatchRepository) CountUnfinishedInTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND status = 'scheduled'`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches of tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) DeleteParticipantsByProfile(ctx context.Context, exec SQLExecutor, profileID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx, `DELETE FROM match_participants WHERE player_profile_id = $1`, profileID)
	if err != nil {
		return fmt.Errorf("failed to remove player profile %d from matches: %w", profileID, err)
	}
	return nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqErrorCode(err); ok {
		switch {
		case code == pqUniqueViolation && constraint == "match_participants_match_id_player_profile_id_key":
			return ErrMatchParticipantDuplicate
		case code == pqForeignKeyViolation && constraint == "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case code == pqForeignKeyViolation && constraint == "match_participants_player_profile_id_fkey":
			return ErrMatchParticipantInvalid
		case code == pqForeignKeyViolation && constraint == "match_participants_match_id_fkey":
			return ErrMatchNotFound
		}
	}
	return err
}

func scanMatch(row interface{ Scan(dest ...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.Format, &m.Date, &m.TournamentID, &m.TournamentType,
		&m.Round, &m.Status, &m.CreatedAt, &m.TournamentTitle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	m.Date = m.Date.UTC()
	return &m, nil
}
