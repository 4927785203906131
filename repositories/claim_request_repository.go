package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/match-score/models"
)

var (
	ErrClaimRequestNotFound       = errors.New("claim request not found")
	ErrClaimRequestAlreadyHandled = errors.New("claim request is already handled")
	ErrClaimRequestDuplicate      = errors.New("an identical claim request is already pending")
	ErrClaimRequestRefInvalid     = errors.New("claim request user or profile conflict or invalid")
)

const claimRequestColumns = `id, user_id, player_profile_id, approved_or_denied, created_at`

type ClaimRequestRepository interface {
	Create(ctx context.Context, exec SQLExecutor, claim *models.ClaimRequest) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ClaimRequest, error)
	ListPending(ctx context.Context, exec SQLExecutor) ([]models.ClaimRequest, error)
	// Resolve records the decision only while the request is still pending.
	Resolve(ctx context.Context, exec SQLExecutor, id int, approved bool) error
	DeletePendingByProfile(ctx context.Context, exec SQLExecutor, profileID int) error
}

type postgresClaimRequestRepository struct {
	db *sql.DB
}

func NewPostgresClaimRequestRepository(db *sql.DB) ClaimRequestRepository {
	return &postgresClaimRequestRepository{db: db}
}

func (r *postgresClaimRequestRepository) Create(ctx context.Context, exec SQLExecutor, c *models.ClaimRequest) error {
	query := `
		INSERT INTO claim_requests (user_id, player_profile_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query, c.UserID, c.PlayerProfileID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if code, _, ok := pqErrorCode(err); ok {
			switch code {
			case pqUniqueViolation:
				return ErrClaimRequestDuplicate
			case pqForeignKeyViolation:
				return ErrClaimRequestRefInvalid
			}
		}
		return fmt.Errorf("failed to create claim request: %w", err)
	}
	return nil
}

func (r *postgresClaimRequestRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ClaimRequest, error) {
	query := `SELECT ` + claimRequestColumns + ` FROM claim_requests WHERE id = $1`
	c := &models.ClaimRequest{}
	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.PlayerProfileID, &c.ApprovedOrDenied, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClaimRequestNotFound
		}
		return nil, fmt.Errorf("failed to get claim request %d: %w", id, err)
	}
	return c, nil
}

func (r *postgresClaimRequestRepository) ListPending(ctx context.Context, exec SQLExecutor) ([]models.ClaimRequest, error) {
	query := `SELECT ` + claimRequestColumns + ` FROM claim_requests WHERE approved_or_denied IS NULL ORDER BY created_at ASC, id ASC`
	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending claim requests: %w", err)
	}
	defer rows.Close()

	claims := make([]models.ClaimRequest, 0)
	for rows.Next() {
		var c models.ClaimRequest
		if err := rows.Scan(&c.ID, &c.UserID, &c.PlayerProfileID, &c.ApprovedOrDenied, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim request: %w", err)
		}
		claims = append(claims, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claim requests: %w", err)
	}
	return claims, nil
}

func (r *postgresClaimRequestRepository) Resolve(ctx context.Context, exec SQLExecutor, id int, approved bool) error {
	query := `UPDATE claim_requests SET approved_or_denied = $1 WHERE id = $2 AND approved_or_denied IS NULL`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, approved, id)
	if err != nil {
		return fmt.Errorf("failed to resolve claim request %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrClaimRequestAlreadyHandled)
}

func (r *postgresClaimRequestRepository) DeletePendingByProfile(ctx context.Context, exec SQLExecutor, profileID int) error {
	query := `DELETE FROM claim_requests WHERE player_profile_id = $1 AND approved_or_denied IS NULL`
	if _, err := pickExecutor(exec, r.db).ExecContext(ctx, query, profileID); err != nil {
		return fmt.Errorf("failed to delete pending claims for player profile %d: %w", profileID, err)
	}
	return nil
}
