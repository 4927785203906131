package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/repositories"
	"github.com/Dosada05/match-score/storage"
)

const (
	defaultPlayersPerPage = 20
	maxPlayersPerPage     = 100
)

type PlayerService interface {
	// ResolveOrCreate returns the profile registered under name, creating a
	// zeroed one when none exists. It runs on exec so callers can keep it
	// inside their own transaction.
	ResolveOrCreate(ctx context.Context, exec repositories.SQLExecutor, name string) (*models.PlayerProfile, error)
	CreateProfile(ctx context.Context, input CreatePlayerInput) (*models.PlayerProfile, error)
	GetProfile(ctx context.Context, id int) (*models.PlayerProfile, error)
	GetProfileByName(ctx context.Context, name string) (*models.PlayerProfile, error)
	ListProfiles(ctx context.Context, input ListPlayersInput) (*PlayerPage, error)
	UpdateProfile(ctx context.Context, id int, input UpdatePlayerInput) (*models.PlayerProfile, error)
	DeleteProfile(ctx context.Context, id int) error
	UploadAvatar(ctx context.Context, id int, file io.Reader, contentType string) (*models.PlayerProfile, error)
}

type CreatePlayerInput struct {
	FullName   string  `json:"full_name"`
	Country    *string `json:"country"`
	SportsClub *string `json:"sports_club"`
}

// UpdatePlayerInput: nil означает «не менять поле».
type UpdatePlayerInput struct {
	FullName   *string `json:"full_name"`
	Country    *string `json:"country"`
	SportsClub *string `json:"sports_club"`
}

type ListPlayersInput struct {
	Search  string
	Page    int
	PerPage int
}

type PlayerPage struct {
	Players []models.PlayerProfile `json:"players"`
	Total   int                    `json:"total"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"per_page"`
}

type playerService struct {
	playerRepo      repositories.PlayerProfileRepository
	matchRepo       repositories.MatchRepository
	participantRepo repositories.TournamentParticipantRepository
	claimRepo       repositories.ClaimRequestRepository
	tx              repositories.Transactor
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewPlayerService(
	playerRepo repositories.PlayerProfileRepository,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.TournamentParticipantRepository,
	claimRepo repositories.ClaimRequestRepository,
	tx repositories.Transactor,
	uploader storage.FileUploader,
	logger *slog.Logger,
) PlayerService {
	return &playerService{
		playerRepo:      playerRepo,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		claimRepo:       claimRepo,
		tx:              tx,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *playerService) ResolveOrCreate(ctx context.Context, exec repositories.SQLExecutor, name string) (*models.PlayerProfile, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name cannot be empty", ErrValidationFailed)
	}

	profile, err := s.playerRepo.GetByName(ctx, exec, name)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repositories.ErrPlayerProfileNotFound) {
		return nil, fmt.Errorf("failed to look up player %q: %w", name, err)
	}

	profile, err = s.playerRepo.CreateIfAbsent(ctx, exec, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrProfileCreation, name, err)
	}
	if profile != nil {
		s.logger.InfoContext(ctx, "Player profile created on demand", slog.Int("player_id", profile.ID), slog.String("full_name", name))
		return profile, nil
	}

	// Профиль появился между поиском и вставкой
	profile, err = s.playerRepo.GetByName(ctx, exec, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrProfileCreation, name, err)
	}
	return profile, nil
}

func (s *playerService) CreateProfile(ctx context.Context, input CreatePlayerInput) (*models.PlayerProfile, error) {
	name := normalizeName(input.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidationFailed)
	}

	if _, err := s.playerRepo.GetByName(ctx, nil, name); err == nil {
		return nil, ErrDuplicateProfile
	} else if !errors.Is(err, repositories.ErrPlayerProfileNotFound) {
		return nil, fmt.Errorf("failed to check player name: %w", err)
	}

	profile := &models.PlayerProfile{
		FullName:   name,
		Country:    input.Country,
		SportsClub: input.SportsClub,
	}
	if err := s.playerRepo.Create(ctx, nil, profile); err != nil {
		if errors.Is(err, repositories.ErrPlayerProfileNameConflict) {
			return nil, ErrDuplicateProfile
		}
		return nil, fmt.Errorf("failed to create player profile: %w", err)
	}

	s.logger.InfoContext(ctx, "Player profile created", slog.Int("player_id", profile.ID))
	return profile, nil
}

func (s *playerService) GetProfile(ctx context.Context, id int) (*models.PlayerProfile, error) {
	profile, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPlayerRepoError(err)
	}
	populateAvatarURL(profile, s.uploader)
	return profile, nil
}

func (s *playerService) GetProfileByName(ctx context.Context, name string) (*models.PlayerProfile, error) {
	profile, err := s.playerRepo.GetByName(ctx, nil, normalizeName(name))
	if err != nil {
		return nil, mapPlayerRepoError(err)
	}
	populateAvatarURL(profile, s.uploader)
	return profile, nil
}

func (s *playerService) ListProfiles(ctx context.Context, input ListPlayersInput) (*PlayerPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	switch {
	case perPage <= 0:
		perPage = defaultPlayersPerPage
	case perPage > maxPlayersPerPage:
		perPage = maxPlayersPerPage
	}

	players, total, err := s.playerRepo.List(ctx, nil, repositories.PlayerProfileFilter{
		Search: input.Search,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list player profiles: %w", err)
	}
	for i := range players {
		populateAvatarURL(&players[i], s.uploader)
	}

	return &PlayerPage{Players: players, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *playerService) UpdateProfile(ctx context.Context, id int, input UpdatePlayerInput) (*models.PlayerProfile, error) {
	profile, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPlayerRepoError(err)
	}

	if input.FullName != nil {
		name := normalizeName(*input.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full name cannot be empty", ErrValidationFailed)
		}
		if nameKey(name) != nameKey(profile.FullName) {
			if _, err := s.playerRepo.GetByName(ctx, nil, name); err == nil {
				return nil, ErrDuplicateProfile
			} else if !errors.Is(err, repositories.ErrPlayerProfileNotFound) {
				return nil, fmt.Errorf("failed to check player name: %w", err)
			}
		}
		profile.FullName = name
	}
	if input.Country != nil {
		profile.Country = input.Country
	}
	if input.SportsClub != nil {
		profile.SportsClub = input.SportsClub
	}

	if err := s.playerRepo.Update(ctx, nil, profile); err != nil {
		if errors.Is(err, repositories.ErrPlayerProfileNameConflict) {
			return nil, ErrDuplicateProfile
		}
		return nil, mapPlayerRepoError(err)
	}
	populateAvatarURL(profile, s.uploader)
	return profile, nil
}

func (s *playerService) DeleteProfile(ctx context.Context, id int) error {
	var avatarKey *string

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		profile, err := s.playerRepo.GetByID(ctx, exec, id)
		if err != nil {
			return mapPlayerRepoError(err)
		}
		if profile.IsLinked() {
			return ErrProfileLinked
		}
		avatarKey = profile.AvatarKey

		if err := s.claimRepo.DeletePendingByProfile(ctx, exec, id); err != nil {
			return err
		}
		if err := s.matchRepo.DeleteParticipantsByProfile(ctx, exec, id); err != nil {
			return err
		}
		if err := s.participantRepo.DeleteByProfile(ctx, exec, id); err != nil {
			return err
		}
		return mapPlayerRepoError(s.playerRepo.Delete(ctx, exec, id))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Player profile deleted", slog.Int("player_id", id))
	if avatarKey != nil && s.uploader != nil {
		if delErr := s.uploader.Delete(ctx, *avatarKey); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to delete avatar of removed profile", slog.Int("player_id", id), slog.Any("error", delErr))
		}
	}
	return nil
}

func (s *playerService) UploadAvatar(ctx context.Context, id int, file io.Reader, contentType string) (*models.PlayerProfile, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	profile, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPlayerRepoError(err)
	}
	oldKey := profile.AvatarKey

	key := storage.PlayerAvatarKey(id, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if err := s.playerRepo.UpdateAvatarKey(ctx, nil, id, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to clean up orphaned avatar", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, mapPlayerRepoError(err)
	}
	if oldKey != nil && *oldKey != "" {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to delete previous avatar", slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	profile.AvatarKey = &key
	populateAvatarURL(profile, s.uploader)
	return profile, nil
}

func mapPlayerRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrPlayerProfileNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrPlayerProfileNameConflict):
		return ErrDuplicateProfile
	case errors.Is(err, repositories.ErrPlayerProfileAlreadyLinked):
		return ErrProfileLinked
	case errors.Is(err, repositories.ErrPlayerProfileUserTaken):
		return ErrUserAlreadyLinked
	default:
		return err
	}
}
