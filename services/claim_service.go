package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/repositories"
)

type ClaimService interface {
	// CreatePlayerClaim asks for the profile to be linked to the user.
	CreatePlayerClaim(ctx context.Context, userID, profileID int) (*models.ClaimRequest, error)
	CreateDirectorClaim(ctx context.Context, userID int) (*models.ClaimRequest, error)
	ListPending(ctx context.Context) ([]models.ClaimRequest, error)
	Resolve(ctx context.Context, claimID int, approved bool) (*models.ClaimRequest, error)
}

type claimService struct {
	claimRepo  repositories.ClaimRequestRepository
	playerRepo repositories.PlayerProfileRepository
	userRepo   repositories.UserRepository
	tx         repositories.Transactor
	notifier   Notifier
	logger     *slog.Logger
}

func NewClaimService(
	claimRepo repositories.ClaimRequestRepository,
	playerRepo repositories.PlayerProfileRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	notifier Notifier,
	logger *slog.Logger,
) ClaimService {
	return &claimService{
		claimRepo:  claimRepo,
		playerRepo: playerRepo,
		userRepo:   userRepo,
		tx:         tx,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *claimService) CreatePlayerClaim(ctx context.Context, userID, profileID int) (*models.ClaimRequest, error) {
	profile, err := s.playerRepo.GetByID(ctx, nil, profileID)
	if err != nil {
		return nil, mapPlayerRepoError(err)
	}
	if profile.UserID != nil {
		return nil, ErrProfileLinked
	}
	if err := s.ensureUserUnlinked(ctx, nil, userID); err != nil {
		return nil, err
	}

	claim := &models.ClaimRequest{UserID: userID, PlayerProfileID: &profile.ID}
	if err := s.claimRepo.Create(ctx, nil, claim); err != nil {
		return nil, mapClaimRepoError(err)
	}
	s.logger.InfoContext(ctx, "Player claim created", slog.Int("claim_id", claim.ID), slog.Int("user_id", userID), slog.Int("profile_id", profileID))
	return claim, nil
}

func (s *claimService) CreateDirectorClaim(ctx context.Context, userID int) (*models.ClaimRequest, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	if user.IsDirector || user.IsAdmin {
		return nil, ErrAlreadyDirector
	}

	claim := &models.ClaimRequest{UserID: userID}
	if err := s.claimRepo.Create(ctx, nil, claim); err != nil {
		return nil, mapClaimRepoError(err)
	}
	s.logger.InfoContext(ctx, "Director claim created", slog.Int("claim_id", claim.ID), slog.Int("user_id", userID))
	return claim, nil
}

func (s *claimService) ListPending(ctx context.Context) ([]models.ClaimRequest, error) {
	claims, err := s.claimRepo.ListPending(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending claims: %w", err)
	}
	return claims, nil
}

// Resolve records the admin decision. An approved player claim links the
// profile, an approved director claim elevates the user; the new role shows
// up in the user's token after the next login.
func (s *claimService) Resolve(ctx context.Context, claimID int, approved bool) (*models.ClaimRequest, error) {
	var (
		claim *models.ClaimRequest
		user  *models.User
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		claim, err = s.claimRepo.GetByID(ctx, exec, claimID)
		if err != nil {
			return mapClaimRepoError(err)
		}
		if !claim.IsPending() {
			return ErrClaimHandled
		}
		if err := s.claimRepo.Resolve(ctx, exec, claimID, approved); err != nil {
			return mapClaimRepoError(err)
		}
		claim.ApprovedOrDenied = &approved

		user, err = s.userRepo.GetByID(ctx, exec, claim.UserID)
		if err != nil {
			return mapUserRepoError(err)
		}
		if !approved {
			return nil
		}

		switch claim.Type() {
		case models.ClaimTypePlayer:
			if err := s.ensureUserUnlinked(ctx, exec, claim.UserID); err != nil {
				return err
			}
			if err := s.playerRepo.LinkUser(ctx, exec, *claim.PlayerProfileID, claim.UserID); err != nil {
				return mapPlayerRepoError(err)
			}
		case models.ClaimTypeDirector:
			if err := s.userRepo.SetDirector(ctx, exec, claim.UserID, true); err != nil {
				return mapUserRepoError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Claim resolved",
		slog.Int("claim_id", claimID), slog.String("type", string(claim.Type())), slog.Bool("approved", approved))
	if s.notifier != nil {
		recipient := models.Recipient{UserID: user.ID, Name: user.FirstName, Email: user.Email}
		s.notifier.NotifyRequestHandled(ctx, recipient, claim.Type(), approved)
	}
	return claim, nil
}

// У пользователя может быть только один профиль игрока
func (s *claimService) ensureUserUnlinked(ctx context.Context, exec repositories.SQLExecutor, userID int) error {
	_, err := s.playerRepo.GetByUserID(ctx, exec, userID)
	switch {
	case err == nil:
		return ErrUserAlreadyLinked
	case errors.Is(err, repositories.ErrPlayerProfileNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check linked profile of user %d: %w", userID, err)
	}
}

func mapClaimRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrClaimRequestNotFound):
		return ErrClaimNotFound
	case errors.Is(err, repositories.ErrClaimRequestAlreadyHandled):
		return ErrClaimHandled
	case errors.Is(err, repositories.ErrClaimRequestDuplicate):
		return ErrClaimDuplicate
	case errors.Is(err, repositories.ErrClaimRequestRefInvalid):
		return fmt.Errorf("%w: claim refers to an unknown user or profile", ErrValidationFailed)
	default:
		return err
	}
}

func mapUserRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrUserEmailConflict):
		return ErrUserEmailConflict
	case errors.Is(err, repositories.ErrUserUsernameConflict):
		return ErrUserUsernameConflict
	default:
		return err
	}
}
