package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/match-score/brackets"
	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/repositories"
)

// EventPublisher pushes live updates to subscribers of a room.
type EventPublisher interface {
	BroadcastToRoom(roomID string, message interface{})
}

type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	// CreateMatchTx creates the match and all its participants on exec. The
	// caller owns the transaction.
	CreateMatchTx(ctx context.Context, exec repositories.SQLExecutor, input CreateMatchInput) (*models.Match, error)
	UpdateScore(ctx context.Context, matchID, playerID, delta int) (*models.MatchParticipant, error)
	RescheduleMatch(ctx context.Context, matchID int, date time.Time) (*models.Match, error)
	// FinalizeMatch finishes a standalone or league match and applies its
	// result. The tournament is taken from the match itself.
	FinalizeMatch(ctx context.Context, matchID int) (*models.Outcome, error)
	FinalizeMatchTx(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.Outcome, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListMatches(ctx context.Context, input ListMatchesInput) ([]models.Match, error)
}

type CreateMatchInput struct {
	Format       string    `json:"format"`
	Date         time.Time `json:"date"`
	Participants []string  `json:"participants"`
	TournamentID *int      `json:"tournament_id"`

	// Заполняются движком турниров
	TournamentType *models.TournamentFormat `json:"-"`
	Round          *int                     `json:"-"`
}

type ListMatchesInput struct {
	TournamentSearch string
	TournamentID     *int
}

type matchService struct {
	matchRepo       repositories.MatchRepository
	playerRepo      repositories.PlayerProfileRepository
	participantRepo repositories.TournamentParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	players         PlayerService
	tx              repositories.Transactor
	notify          *participantNotifier
	publisher       EventPublisher
	logger          *slog.Logger
	now             func() time.Time
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerProfileRepository,
	participantRepo repositories.TournamentParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	players PlayerService,
	tx repositories.Transactor,
	notifier Notifier,
	publisher EventPublisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:       matchRepo,
		playerRepo:      playerRepo,
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		players:         players,
		tx:              tx,
		notify:          &participantNotifier{userRepo: userRepo, notifier: notifier, logger: logger},
		publisher:       publisher,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if input.TournamentID != nil {
		t, err := s.tournamentRepo.GetByID(ctx, nil, *input.TournamentID)
		if err != nil {
			return nil, mapTournamentRepoError(err)
		}
		if t.Status == models.TournamentStatusConcluded {
			return nil, ErrTournamentConcluded
		}
		if t.Format == models.TournamentFormatKnockout {
			return nil, ErrBracketManaged
		}
		format, round := t.Format, t.CurrentRound
		input.TournamentType = &format
		input.Round = &round
	}

	var match *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.CreateMatchTx(ctx, exec, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Match created", slog.Int("match_id", match.ID), slog.Int("participants", len(match.Participants)))
	s.notify.notifyAdded(ctx, participantIDs(match), EventTypeMatch, EventDetails{ID: match.ID, Title: matchTitle(match), Date: &match.Date})
	return match, nil
}

func (s *matchService) CreateMatchTx(ctx context.Context, exec repositories.SQLExecutor, input CreateMatchInput) (*models.Match, error) {
	if err := validateMatchFormat(input.Format); err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: match date is required", ErrValidationFailed)
	}
	if input.Date.Before(s.now()) {
		return nil, ErrDateInPast
	}
	if len(input.Participants) < 2 {
		return nil, fmt.Errorf("%w: a match needs at least 2 participants, got %d", ErrInsufficientParticipants, len(input.Participants))
	}
	names, err := distinctNames(input.Participants)
	if err != nil {
		return nil, err
	}

	profiles := make([]*models.PlayerProfile, 0, len(names))
	for _, name := range names {
		profile, err := s.players.ResolveOrCreate(ctx, exec, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrParticipantResolution, name, err)
		}
		profiles = append(profiles, profile)
	}

	match := &models.Match{
		Format:         strings.TrimSpace(input.Format),
		Date:           input.Date.UTC(),
		TournamentID:   input.TournamentID,
		TournamentType: input.TournamentType,
		Round:          input.Round,
		Status:         models.MatchStatusScheduled,
	}
	if err := s.matchRepo.Create(ctx, exec, match); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMatchCreation, err)
	}

	match.Participants = make([]models.MatchParticipant, 0, len(profiles))
	for _, p := range profiles {
		if err := s.matchRepo.AddParticipant(ctx, exec, match.ID, p.ID); err != nil {
			return nil, fmt.Errorf("%w: participant %d: %w", ErrMatchCreation, p.ID, err)
		}
		if match.TournamentID != nil {
			if err := s.participantRepo.Register(ctx, exec, *match.TournamentID, p.ID); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMatchCreation, err)
			}
		}
		match.Participants = append(match.Participants, models.MatchParticipant{
			MatchID:         match.ID,
			PlayerProfileID: p.ID,
			FullName:        p.FullName,
		})
	}
	return match, nil
}

func (s *matchService) UpdateScore(ctx context.Context, matchID, playerID, delta int) (*models.MatchParticipant, error) {
	var (
		match *models.Match
		score int
	)
	// Блокировка строки матча упорядочивает инкремент относительно финализации:
	// либо очко попадает в итог, либо возвращается ErrMatchFinished
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetForScoring(ctx, exec, matchID)
		if err != nil {
			return mapMatchRepoError(err)
		}
		score, err = s.matchRepo.IncrementScore(ctx, exec, matchID, playerID, delta)
		if err != nil {
			return mapMatchRepoError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	participant := &models.MatchParticipant{MatchID: matchID, PlayerProfileID: playerID, Score: score}
	s.publish(match.TournamentID, models.EventMatchScoreUpdated, participant)
	return participant, nil
}

func (s *matchService) RescheduleMatch(ctx context.Context, matchID int, date time.Time) (*models.Match, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: match date is required", ErrValidationFailed)
	}
	// Храним всё в UTC; смещение из входной даты учитывается, а не отбрасывается
	date = date.UTC()
	if date.Before(s.now()) {
		return nil, ErrDateInPast
	}

	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if match.Finished() {
		return nil, ErrMatchFinished
	}
	if err := s.matchRepo.UpdateDate(ctx, nil, matchID, date); err != nil {
		return nil, mapMatchRepoError(err)
	}
	match.Date = date

	participants, err := s.matchRepo.ListParticipants(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	match.Participants = participants
	return match, nil
}

func (s *matchService) FinalizeMatch(ctx context.Context, matchID int) (*models.Outcome, error) {
	var outcome *models.Outcome
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapMatchRepoError(err)
		}
		if match.TournamentType != nil && *match.TournamentType == models.TournamentFormatKnockout {
			return ErrBracketManaged
		}
		outcome, err = s.FinalizeMatchTx(ctx, exec, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Match finalized", slog.Int("match_id", matchID), slog.Bool("draw", outcome.IsDraw))
	s.publish(outcome.TournamentID, models.EventMatchFinished, outcome)
	if outcome.TournamentConcluded {
		s.publish(outcome.TournamentID, models.EventTournamentConcluded, map[string]int{"tournament_id": *outcome.TournamentID})
	}
	return outcome, nil
}

func (s *matchService) FinalizeMatchTx(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.Outcome, error) {
	match, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if match.Finished() {
		return nil, ErrMatchFinished
	}

	// Смена статуса блокирует строку матча: параллельная финализация дождётся
	// коммита и получит ErrMatchFinished, статистика не применится дважды
	if err := s.matchRepo.MarkFinished(ctx, exec, matchID); err != nil {
		return nil, mapMatchRepoError(err)
	}

	participants, err := s.matchRepo.ListParticipants(ctx, exec, matchID)
	if err != nil {
		return nil, err
	}
	outcome, err := computeOutcome(matchID, match.TournamentID, participants)
	if err != nil {
		return nil, err
	}

	deltas := outcomeDeltas(outcome)
	for _, p := range participants {
		d := deltas[p.PlayerProfileID]
		if err := s.playerRepo.AddResult(ctx, exec, p.PlayerProfileID, d.wins, d.losses, d.draws); err != nil {
			return nil, fmt.Errorf("failed to apply result to player %d: %w", p.PlayerProfileID, err)
		}
		if match.TournamentID != nil {
			if err := s.participantRepo.ApplyResult(ctx, exec, *match.TournamentID, p.PlayerProfileID, d.wins, d.losses, d.draws, d.points); err != nil {
				return nil, fmt.Errorf("failed to apply result to standings: %w", err)
			}
		}
	}

	if match.TournamentID != nil {
		concluded, err := s.updateTournamentProgress(ctx, exec, *match.TournamentID)
		if err != nil {
			return nil, err
		}
		outcome.TournamentConcluded = concluded
	}
	return outcome, nil
}

// updateTournamentProgress moves an open tournament to in_progress and
// concludes a league once none of its matches is left unfinished.
func (s *matchService) updateTournamentProgress(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (bool, error) {
	t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
	if err != nil {
		return false, mapTournamentRepoError(err)
	}
	if t.Status == models.TournamentStatusOpen {
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentStatusInProgress); err != nil {
			return false, err
		}
	}
	if t.Format != models.TournamentFormatLeague {
		return false, nil
	}

	remaining, err := s.matchRepo.CountUnfinishedInTournament(ctx, exec, tournamentID)
	if err != nil {
		return false, err
	}
	if remaining > 0 {
		return false, nil
	}

	standings, err := s.participantRepo.ListStandings(ctx, exec, tournamentID)
	if err != nil {
		return false, err
	}
	if err := s.tournamentRepo.Conclude(ctx, exec, tournamentID, leagueLeader(standings)); err != nil {
		return false, err
	}
	return true, nil
}

// leagueLeader returns the profile with strictly the most points, if any.
func leagueLeader(standings []models.Standing) *int {
	if len(standings) == 0 {
		return nil
	}
	if len(standings) > 1 && standings[1].Points == standings[0].Points {
		return nil
	}
	id := standings[0].PlayerProfileID
	return &id
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	participants, err := s.matchRepo.ListParticipants(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	match.Participants = participants
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, input ListMatchesInput) ([]models.Match, error) {
	matches, err := s.matchRepo.List(ctx, nil, repositories.MatchFilter{
		TournamentID:     input.TournamentID,
		TournamentSearch: input.TournamentSearch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) publish(tournamentID *int, eventType string, payload interface{}) {
	if s.publisher == nil || tournamentID == nil {
		return
	}
	room := brackets.TournamentRoom(*tournamentID)
	s.publisher.BroadcastToRoom(room, brackets.WebSocketMessage{Type: eventType, Payload: payload, RoomID: room})
}

func participantIDs(m *models.Match) []int {
	ids := make([]int, len(m.Participants))
	for i, p := range m.Participants {
		ids[i] = p.PlayerProfileID
	}
	return ids
}

func matchTitle(m *models.Match) string {
	names := make([]string, len(m.Participants))
	for i, p := range m.Participants {
		names[i] = p.FullName
	}
	return strings.Join(names, " vs ")
}

func mapMatchRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchAlreadyFinished):
		return ErrMatchFinished
	case errors.Is(err, repositories.ErrMatchParticipantNotFound):
		return ErrNotParticipant
	case errors.Is(err, repositories.ErrMatchScoreNegative):
		return ErrNegativeScore
	default:
		return err
	}
}

func mapTournamentRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentInvalidFormat):
		return ErrInvalidTournamentFormat
	default:
		return err
	}
}
