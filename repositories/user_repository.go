package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/match-score/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("user email conflict")
	ErrUserUsernameConflict = errors.New("user username conflict")
)

const userColumns = `id, first_name, last_name, username, email, password_hash, is_admin, is_director, created_at`

type UserRepository interface {
	Create(ctx context.Context, exec SQLExecutor, user *models.User) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByEmail(ctx context.Context, exec SQLExecutor, email string) (*models.User, error)
	SetDirector(ctx context.Context, exec SQLExecutor, id int, isDirector bool) error
	// RecipientsForProfiles returns contacts of users linked to the given
	// player profiles. Unlinked profiles are skipped.
	RecipientsForProfiles(ctx context.Context, exec SQLExecutor, profileIDs []int) ([]models.Recipient, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, exec SQLExecutor, user *models.User) error {
	query := `
		INSERT INTO users (first_name, last_name, username, email, password_hash, is_admin, is_director)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.IsDirector,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if code, constraint, ok := pqErrorCode(err); ok && code == pqUniqueViolation {
			switch constraint {
			case "users_email_key":
				return ErrUserEmailConflict
			case "users_username_key":
				return ErrUserUsernameConflict
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, exec, query, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, exec SQLExecutor, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.scanUser(ctx, exec, query, email)
}

func (r *postgresUserRepository) SetDirector(ctx context.Context, exec SQLExecutor, id int, isDirector bool) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `UPDATE users SET is_director = $1 WHERE id = $2`, isDirector, id)
	if err != nil {
		return fmt.Errorf("failed to update director flag of user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) RecipientsForProfiles(ctx context.Context, exec SQLExecutor, profileIDs []int) ([]models.Recipient, error) {
	recipients := make([]models.Recipient, 0)
	if len(profileIDs) == 0 {
		return recipients, nil
	}
	ids := make([]int64, len(profileIDs))
	for i, id := range profileIDs {
		ids[i] = int64(id)
	}

	query := `
		SELECT u.id, u.first_name || ' ' || u.last_name, u.email
		FROM player_profiles pp
		JOIN users u ON u.id = pp.user_id
		WHERE pp.id = ANY($1)
		ORDER BY u.id`

	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rc models.Recipient
		if err := rows.Scan(&rc.UserID, &rc.Name, &rc.Email); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, rc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}
	return recipients, nil
}

// scanUser - вспомогательный метод для сканирования одного пользователя
func (r *postgresUserRepository) scanUser(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.User, error) {
	user := &models.User{}
	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.IsDirector,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
