package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Dosada05/match-score/brackets"
	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/repositories"
	"golang.org/x/sync/errgroup"
)

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	// AdvanceKnockout finishes the current round and seeds the next one from
	// its winners, or declares the champion. expectedRound, when given, must
	// equal the tournament's current round.
	AdvanceKnockout(ctx context.Context, tournamentID int, expectedRound *int) (*AdvanceResult, error)
	GetLeagueStandings(ctx context.Context, tournamentID int) ([]models.Standing, error)
	ListTournaments(ctx context.Context, search string) ([]models.Tournament, error)
	GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type CreateTournamentInput struct {
	Title        string                  `json:"title"`
	Format       models.TournamentFormat `json:"format"`
	MatchFormat  string                  `json:"match_format"`
	Prize        *int                    `json:"prize"`
	Participants []string                `json:"participants"`
}

type AdvanceResult struct {
	TournamentID int              `json:"tournament_id"`
	Round        int              `json:"round"`
	Finished     []models.Outcome `json:"finished"`
	Concluded    bool             `json:"concluded"`
	ChampionID   *int             `json:"champion_id,omitempty"`
	Stalled      bool             `json:"stalled"`
	NewMatches   []models.Match   `json:"new_matches"`
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	matchRepo       repositories.MatchRepository
	participantRepo repositories.TournamentParticipantRepository
	players         PlayerService
	matches         MatchService
	tx              repositories.Transactor
	notify          *participantNotifier
	publisher       EventPublisher
	logger          *slog.Logger
	shuffle         brackets.ShuffleFunc
	now             func() time.Time
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.TournamentParticipantRepository,
	userRepo repositories.UserRepository,
	players PlayerService,
	matches MatchService,
	tx repositories.Transactor,
	notifier Notifier,
	publisher EventPublisher,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		players:         players,
		matches:         matches,
		tx:              tx,
		notify:          &participantNotifier{userRepo: userRepo, notifier: notifier, logger: logger},
		publisher:       publisher,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: tournament title is required", ErrValidationFailed)
	}
	if err := validateTournamentFormat(input.Format); err != nil {
		return nil, err
	}
	if err := validateMatchFormat(input.MatchFormat); err != nil {
		return nil, err
	}
	if input.Prize != nil && *input.Prize < 0 {
		return nil, fmt.Errorf("%w: prize cannot be negative", ErrValidationFailed)
	}
	names, err := distinctNames(input.Participants)
	if err != nil {
		return nil, err
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: a tournament needs at least 2 participants, got %d", ErrInsufficientParticipants, len(names))
	}
	if input.Format == models.TournamentFormatKnockout && len(names)%2 != 0 {
		return nil, fmt.Errorf("%w: knockout needs an even number of participants, got %d", ErrInsufficientParticipants, len(names))
	}
	// Сетка на выбывание должна сходиться к одному победителю без пропусков раунда
	if input.Format == models.TournamentFormatKnockout && !isPowerOfTwo(len(names)) {
		return nil, fmt.Errorf("%w: got %d participants", ErrInvalidBracketSize, len(names))
	}

	generator := brackets.NewGenerator(input.Format, s.shuffle)
	tournament := &models.Tournament{
		Title:        title,
		Format:       input.Format,
		MatchFormat:  strings.TrimSpace(input.MatchFormat),
		Prize:        input.Prize,
		Status:       models.TournamentStatusOpen,
		CurrentRound: 1,
	}
	var profileIDs []int

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			return mapTournamentRepoError(err)
		}

		namesByID := make(map[int]string, len(names))
		profileIDs = make([]int, 0, len(names))
		for _, name := range names {
			profile, err := s.players.ResolveOrCreate(ctx, exec, name)
			if err != nil {
				return fmt.Errorf("%w: %q: %w", ErrParticipantResolution, name, err)
			}
			if err := s.participantRepo.Register(ctx, exec, tournament.ID, profile.ID); err != nil {
				return fmt.Errorf("failed to register %q in tournament: %w", name, err)
			}
			namesByID[profile.ID] = profile.FullName
			profileIDs = append(profileIDs, profile.ID)
		}

		pairings, err := generator.GeneratePairings(profileIDs)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInsufficientParticipants, err)
		}

		seededAt := s.now()
		round := 1
		tournament.Matches = make([]models.Match, 0, len(pairings))
		for _, p := range pairings {
			match, err := s.matches.CreateMatchTx(ctx, exec, CreateMatchInput{
				Format:         tournament.MatchFormat,
				Date:           seededAt.Add(generator.MatchOffset(p.Order)),
				Participants:   []string{namesByID[p.Player1], namesByID[p.Player2]},
				TournamentID:   &tournament.ID,
				TournamentType: &tournament.Format,
				Round:          &round,
			})
			if err != nil {
				return err
			}
			tournament.Matches = append(tournament.Matches, *match)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("format", string(tournament.Format)),
		slog.String("generator", generator.GetName()),
		slog.Int("participants", len(profileIDs)),
		slog.Int("matches", len(tournament.Matches)))
	s.notify.notifyAdded(ctx, profileIDs, EventTypeTournament, EventDetails{ID: tournament.ID, Title: tournament.Title})
	return tournament, nil
}

func (s *tournamentService) AdvanceKnockout(ctx context.Context, tournamentID int, expectedRound *int) (*AdvanceResult, error) {
	result := &AdvanceResult{TournamentID: tournamentID, Finished: []models.Outcome{}, NewMatches: []models.Match{}}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// Блокировка строки турнира сериализует параллельные вызовы продвижения
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if t.Format != models.TournamentFormatKnockout {
			return ErrNotKnockout
		}
		if t.Status == models.TournamentStatusConcluded {
			return ErrTournamentConcluded
		}
		if expectedRound != nil && *expectedRound != t.CurrentRound {
			return fmt.Errorf("%w: expected round %d, tournament is at round %d", ErrStaleRound, *expectedRound, t.CurrentRound)
		}
		result.Round = t.CurrentRound

		scheduled := models.MatchStatusScheduled
		active, err := s.matchRepo.List(ctx, exec, repositories.MatchFilter{TournamentID: &tournamentID, Status: &scheduled})
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return ErrNoActiveMatches
		}

		// Победители собираются в порядке чтения матчей
		winners := make([]int, 0, len(active))
		names := make(map[int]string, len(active)*2)
		for _, m := range active {
			for _, p := range m.Participants {
				names[p.PlayerProfileID] = p.FullName
			}
			outcome, err := s.matches.FinalizeMatchTx(ctx, exec, m.ID)
			if err != nil {
				return err
			}
			winner, ok := outcome.Winner()
			if !ok {
				return fmt.Errorf("%w: match %d", ErrUndecidedMatch, m.ID)
			}
			winners = append(winners, winner)
			result.Finished = append(result.Finished, *outcome)
		}

		if len(winners) == 1 {
			champion := winners[0]
			if err := s.tournamentRepo.Conclude(ctx, exec, tournamentID, &champion); err != nil {
				return mapTournamentRepoError(err)
			}
			result.Concluded = true
			result.ChampionID = &champion
			return nil
		}

		pairings, err := brackets.NextRoundPairings(winners)
		if err != nil {
			// Сыгранные матчи остаются завершёнными, новый раунд не создаётся
			result.Stalled = true
			s.logger.WarnContext(ctx, "Knockout round cannot be paired", slog.Int("tournament_id", tournamentID), slog.Int("winners", len(winners)))
			return nil
		}

		lastDate, err := s.matchRepo.LastDateInTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		base := s.now()
		if lastDate != nil {
			base = laterOf(*lastDate, base)
		}

		nextRound := t.CurrentRound + 1
		for _, p := range pairings {
			match, err := s.matches.CreateMatchTx(ctx, exec, CreateMatchInput{
				Format:         t.MatchFormat,
				Date:           base.Add(time.Duration(p.Order+1) * 24 * time.Hour),
				Participants:   []string{names[p.Player1], names[p.Player2]},
				TournamentID:   &tournamentID,
				TournamentType: &t.Format,
				Round:          &nextRound,
			})
			if err != nil {
				return err
			}
			result.NewMatches = append(result.NewMatches, *match)
		}
		if err := s.tournamentRepo.UpdateRound(ctx, exec, tournamentID, nextRound); err != nil {
			return mapTournamentRepoError(err)
		}
		result.Round = nextRound
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case result.Concluded:
		s.logger.InfoContext(ctx, "Knockout concluded", slog.Int("tournament_id", tournamentID), slog.Int("champion_id", *result.ChampionID))
		s.publish(tournamentID, models.EventTournamentConcluded, result)
	case len(result.NewMatches) > 0:
		s.logger.InfoContext(ctx, "Knockout advanced", slog.Int("tournament_id", tournamentID), slog.Int("round", result.Round), slog.Int("matches", len(result.NewMatches)))
		s.publish(tournamentID, models.EventRoundAdvanced, result)
		for i := range result.NewMatches {
			m := &result.NewMatches[i]
			s.notify.notifyAdded(ctx, participantIDs(m), EventTypeMatch, EventDetails{ID: m.ID, Title: matchTitle(m), Date: &m.Date})
		}
	}
	return result, nil
}

func (s *tournamentService) GetLeagueStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if t.Format != models.TournamentFormatLeague {
		return nil, ErrNotLeague
	}
	standings, err := s.participantRepo.ListStandings(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load standings of tournament %d: %w", tournamentID, err)
	}
	return standings, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, search string) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, nil, repositories.ListTournamentsFilter{Search: search})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	if len(tournaments) == 0 {
		return tournaments, nil
	}

	matches, err := s.matchRepo.List(ctx, nil, repositories.MatchFilter{TournamentSearch: search})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament matches: %w", err)
	}

	byTournament := make(map[int][]models.Match, len(tournaments))
	for _, m := range matches {
		if m.TournamentID != nil {
			byTournament[*m.TournamentID] = append(byTournament[*m.TournamentID], m)
		}
	}
	for i := range tournaments {
		ms := byTournament[tournaments[i].ID]
		slices.SortFunc(ms, func(a, b models.Match) int { return a.ID - b.ID })
		if ms == nil {
			ms = []models.Match{}
		}
		tournaments[i].Matches = ms
	}
	return tournaments, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		matches, err := s.matchRepo.List(gCtx, nil, repositories.MatchFilter{TournamentID: &tournamentID})
		if err != nil {
			return fmt.Errorf("failed to fetch matches of tournament %d: %w", tournamentID, err)
		}
		tournament.Matches = matches
		return nil
	})

	g.Go(func() error {
		standings, err := s.participantRepo.ListStandings(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to fetch standings of tournament %d: %w", tournamentID, err)
		}
		tournament.Standings = standings
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) publish(tournamentID int, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	room := brackets.TournamentRoom(tournamentID)
	s.publisher.BroadcastToRoom(room, brackets.WebSocketMessage{Type: eventType, Payload: payload, RoomID: room})
}
