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
	ErrPlayerProfileNotFound      = errors.New("player profile not found")
	ErrPlayerProfileNameConflict  = errors.New("player profile full name conflict")
	ErrPlayerProfileAlreadyLinked = errors.New("player profile is already linked to a user")
	ErrPlayerProfileUserInvalid   = errors.New("player profile user conflict or invalid")
	ErrPlayerProfileUserTaken     = errors.New("user is already linked to another player profile")
)

const playerProfileColumns = `id, full_name, country, sports_club, wins, losses, draws, user_id, avatar_key, created_at`

type PlayerProfileFilter struct {
	Search string
	Limit  int
	Offset int
}

type PlayerProfileRepository interface {
	Create(ctx context.Context, exec SQLExecutor, profile *models.PlayerProfile) error
	// CreateIfAbsent inserts a zeroed profile for name. It returns (nil, nil) when a
	// profile with the same normalized name already exists.
	CreateIfAbsent(ctx context.Context, exec SQLExecutor, name string) (*models.PlayerProfile, error)
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.PlayerProfile, error)
	GetByName(ctx context.Context, exec SQLExecutor, name string) (*models.PlayerProfile, error)
	GetByUserID(ctx context.Context, exec SQLExecutor, userID int) (*models.PlayerProfile, error)
	List(ctx context.Context, exec SQLExecutor, filter PlayerProfileFilter) ([]models.PlayerProfile, int, error)
	Update(ctx context.Context, exec SQLExecutor, profile *models.PlayerProfile) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	AddResult(ctx context.Context, exec SQLExecutor, id int, wins, losses, draws int) error
	LinkUser(ctx context.Context, exec SQLExecutor, id int, userID int) error
	UpdateAvatarKey(ctx context.Context, exec SQLExecutor, id int, avatarKey *string) error
}

type postgresPlayerProfileRepository struct {
	db *sql.DB
}

func NewPostgresPlayerProfileRepository(db *sql.DB) PlayerProfileRepository {
	return &postgresPlayerProfileRepository{db: db}
}

func (r *postgresPlayerProfileRepository) Create(ctx context.Context, exec SQLExecutor, p *models.PlayerProfile) error {
	query := `
		INSERT INTO player_profiles (full_name, country, sports_club, wins, losses, draws, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		p.FullName, p.Country, p.SportsClub, p.Wins, p.Losses, p.Draws, p.UserID,
	).Scan(&p.ID, &p.CreatedAt)
	return r.handlePlayerProfileError(err)
}

func (r *postgresPlayerProfileRepository) CreateIfAbsent(ctx context.Context, exec SQLExecutor, name string) (*models.PlayerProfile, error) {
	// ON CONFLICT не прерывает транзакцию вызывающего, в отличие от unique_violation
	query := `
		INSERT INTO player_profiles (full_name, wins, losses, draws)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT ((lower(btrim(full_name)))) DO NOTHING
		RETURNING ` + playerProfileColumns

	p, err := scanPlayerProfile(pickExecutor(exec, r.db).QueryRowContext(ctx, query, strings.TrimSpace(name)))
	if err != nil {
		if errors.Is(err, ErrPlayerProfileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to insert player profile %q: %w", name, err)
	}
	return p, nil
}

func (r *postgresPlayerProfileRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.PlayerProfile, error) {
	query := `SELECT ` + playerProfileColumns + ` FROM player_profiles WHERE id = $1`
	return scanPlayerProfile(pickExecutor(exec, r.db).QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerProfileRepository) GetByName(ctx context.Context, exec SQLExecutor, name string) (*models.PlayerProfile, error) {
	query := `SELECT ` + playerProfileColumns + ` FROM player_profiles WHERE lower(btrim(full_name)) = lower(btrim($1))`
	return scanPlayerProfile(pickExecutor(exec, r.db).QueryRowContext(ctx, query, name))
}

func (r *postgresPlayerProfileRepository) GetByUserID(ctx context.Context, exec SQLExecutor, userID int) (*models.PlayerProfile, error) {
	query := `SELECT ` + playerProfileColumns + ` FROM player_profiles WHERE user_id = $1`
	return scanPlayerProfile(pickExecutor(exec, r.db).QueryRowContext(ctx, query, userID))
}

func (r *postgresPlayerProfileRepository) List(ctx context.Context, exec SQLExecutor, filter PlayerProfileFilter) ([]models.PlayerProfile, int, error) {
	executor := pickExecutor(exec, r.db)

	where := sq.And{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, sq.Expr("full_name ILIKE ?", likePattern(s)))
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("player_profiles").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build player profile count query: %w", err)
	}
	var total int
	if err := executor.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count player profiles: %w", err)
	}

	builder := psql.Select(playerProfileColumns).From("player_profiles").Where(where).OrderBy("full_name ASC", "id ASC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build player profile list query: %w", err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list player profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.PlayerProfile, 0)
	for rows.Next() {
		p, scanErr := scanPlayerProfile(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		profiles = append(profiles, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating player profile rows: %w", err)
	}
	return profiles, total, nil
}

func (r *postgresPlayerProfileRepository) Update(ctx context.Context, exec SQLExecutor, p *models.PlayerProfile) error {
	query := `UPDATE player_profiles SET full_name = $1, country = $2, sports_club = $3 WHERE id = $4`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, p.FullName, p.Country, p.SportsClub, p.ID)
	if err != nil {
		return r.handlePlayerProfileError(err)
	}
	return checkAffectedRows(result, ErrPlayerProfileNotFound)
}

func (r *postgresPlayerProfileRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `DELETE FROM player_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player profile %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerProfileNotFound)
}

func (r *postgresPlayerProfileRepository) AddResult(ctx context.Context, exec SQLExecutor, id int, wins, losses, draws int) error {
	query := `
		UPDATE player_profiles
		SET wins = wins + $1, losses = losses + $2, draws = draws + $3
		WHERE id = $4`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, wins, losses, draws, id)
	if err != nil {
		return fmt.Errorf("failed to update statistics of player profile %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerProfileNotFound)
}

func (r *postgresPlayerProfileRepository) LinkUser(ctx context.Context, exec SQLExecutor, id int, userID int) error {
	query := `UPDATE player_profiles SET user_id = $1 WHERE id = $2 AND user_id IS NULL`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, userID, id)
	if err != nil {
		return r.handlePlayerProfileError(err)
	}
	return checkAffectedRows(result, ErrPlayerProfileAlreadyLinked)
}

func (r *postgresPlayerProfileRepository) UpdateAvatarKey(ctx context.Context, exec SQLExecutor, id int, avatarKey *string) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `UPDATE player_profiles SET avatar_key = $1 WHERE id = $2`, avatarKey, id)
	if err != nil {
		return fmt.Errorf("failed to update avatar of player profile %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerProfileNotFound)
}

func (r *postgresPlayerProfileRepository) handlePlayerProfileError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqErrorCode(err); ok {
		switch {
		case code == pqUniqueViolation && constraint == "player_profiles_full_name_norm_key":
			return ErrPlayerProfileNameConflict
		case code == pqUniqueViolation && constraint == "player_profiles_user_id_key":
			return ErrPlayerProfileUserTaken
		case code == pqForeignKeyViolation && constraint == "player_profiles_user_id_fkey":
			return ErrPlayerProfileUserInvalid
		}
	}
	return err
}

func scanPlayerProfile(row interface{ Scan(dest ...interface{}) error }) (*models.PlayerProfile, error) {
	var p models.PlayerProfile
	err := row.Scan(
		&p.ID, &p.FullName, &p.Country, &p.SportsClub,
		&p.Wins, &p.Losses, &p.Draws, &p.UserID, &p.AvatarKey, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan player profile: %w", err)
	}
	return &p, nil
}
