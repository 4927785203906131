package services

import (
	"context"

	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	statsRepo repositories.StatsRepository
}

func NewDashboardService(statsRepo repositories.StatsRepository) DashboardService {
	return &dashboardService{statsRepo: statsRepo}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	targets := map[repositories.StatSubject]*int{
		repositories.StatPlayers:              &stats.PlayersTotal,
		repositories.StatLinkedPlayers:        &stats.LinkedPlayers,
		repositories.StatUsers:                &stats.UsersTotal,
		repositories.StatMatches:              &stats.MatchesTotal,
		repositories.StatFinishedMatches:      &stats.MatchesFinished,
		repositories.StatTournaments:          &stats.TournamentsTotal,
		repositories.StatConcludedTournaments: &stats.TournamentsConcluded,
		repositories.StatPendingClaims:        &stats.PendingClaims,
	}

	// Каждая горутина пишет только в своё поле
	g, gctx := errgroup.WithContext(ctx)
	for subject, dst := range targets {
		g.Go(func() error {
			n, err := s.statsRepo.Count(gctx, nil, subject)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
