package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/match-score/repositories"
)

type fakeStatsRepo struct {
	counts map[repositories.StatSubject]int
	fail   repositories.StatSubject
}

func (f *fakeStatsRepo) Count(_ context.Context, _ repositories.SQLExecutor, subject repositories.StatSubject) (int, error) {
	if subject == f.fail {
		return 0, errors.New("timeout")
	}
	return f.counts[subject], nil
}

func TestDashboardStats(t *testing.T) {
	repo := &fakeStatsRepo{counts: map[repositories.StatSubject]int{
		repositories.StatPlayers:              12,
		repositories.StatLinkedPlayers:        3,
		repositories.StatMatches:              20,
		repositories.StatFinishedMatches:      8,
		repositories.StatTournaments:          2,
		repositories.StatConcludedTournaments: 1,
		repositories.StatPendingClaims:        4,
		repositories.StatUsers:                5,
	}}
	stats, err := NewDashboardService(repo).GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.PlayersTotal != 12 || stats.LinkedPlayers != 3 || stats.MatchesFinished != 8 ||
		stats.TournamentsConcluded != 1 || stats.PendingClaims != 4 || stats.UsersTotal != 5 {
		t.Fatalf("stats = %+v", stats)
	}

	repo.fail = repositories.StatPendingClaims
	if _, err := NewDashboardService(repo).GetStats(context.Background()); err == nil {
		t.Fatal("GetStats() must fail when a count fails")
	}
}

// Статистика считается по живому хранилищу
func TestDashboardStatsOverMemStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.matches.CreateMatch(ctx, CreateMatchInput{
		Format: "score", Date: fixedNow.Add(time.Hour), Participants: []string{"Ana", "Bia"},
	}); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}

	stats, err := NewDashboardService(memStatsRepo{env.store}).GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.PlayersTotal != 2 || stats.MatchesTotal != 1 || stats.MatchesFinished != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
