package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/repositories"
	"github.com/Dosada05/match-score/storage"
)

// memStore держит все таблицы в памяти и реализует интерфейсы репозиториев.
// Транзакция делает снимок состояния и восстанавливает его при ошибке.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq         int
	profiles    map[int]models.PlayerProfile
	users       map[int]models.User
	tournaments map[int]models.Tournament
	standings   map[[2]int]standingRow
	matches     map[int]models.Match
	matchPlayer []matchPlayerRow
	claims      map[int]models.ClaimRequest

	// failures maps an operation name such as "match.AddParticipant" to the
	// error it returns once.
	failures map[string]error
	txCount  int
}

type standingRow struct {
	models.TournamentParticipant
	seq int
}

type matchPlayerRow struct {
	matchID, profileID, score, seq int
}

func newMemStore() *memStore {
	return &memStore{
		profiles:    map[int]models.PlayerProfile{},
		users:       map[int]models.User{},
		tournaments: map[int]models.Tournament{},
		standings:   map[[2]int]standingRow{},
		matches:     map[int]models.Match{},
		claims:      map[int]models.ClaimRequest{},
		failures:    map[string]error{},
	}
}

type memSnapshot struct {
	seq         int
	profiles    map[int]models.PlayerProfile
	users       map[int]models.User
	tournaments map[int]models.Tournament
	standings   map[[2]int]standingRow
	matches     map[int]models.Match
	matchPlayer []matchPlayerRow
	claims      map[int]models.ClaimRequest
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		seq:         s.seq,
		profiles:    maps.Clone(s.profiles),
		users:       maps.Clone(s.users),
		tournaments: maps.Clone(s.tournaments),
		standings:   maps.Clone(s.standings),
		matches:     maps.Clone(s.matches),
		matchPlayer: slices.Clone(s.matchPlayer),
		claims:      maps.Clone(s.claims),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.profiles = snap.profiles
	s.users = snap.users
	s.tournaments = snap.tournaments
	s.standings = snap.standings
	s.matches = snap.matches
	s.matchPlayer = snap.matchPlayer
	s.claims = snap.claims
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// fail must be called with mu held.
func (s *memStore) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

func (s *memStore) nextID() int {
	s.seq++
	return s.seq
}

// WithinTx implements repositories.Transactor.
func (s *memStore) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	s.txCount++
	s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// --- player profiles ---

type memPlayerRepo struct{ s *memStore }

func (r memPlayerRepo) findByName(name string) (models.PlayerProfile, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range r.s.profiles {
		if strings.ToLower(strings.TrimSpace(p.FullName)) == key {
			return p, true
		}
	}
	return models.PlayerProfile{}, false
}

func (r memPlayerRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.PlayerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("player.Create"); err != nil {
		return err
	}
	if _, ok := r.findByName(p.FullName); ok {
		return repositories.ErrPlayerProfileNameConflict
	}
	p.ID = r.s.nextID()
	p.CreatedAt = time.Now().UTC()
	r.s.profiles[p.ID] = *p
	return nil
}

func (r memPlayerRepo) CreateIfAbsent(_ context.Context, _ repositories.SQLExecutor, name string) (*models.PlayerProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("player.CreateIfAbsent"); err != nil {
		return nil, err
	}
	if _, ok := r.findByName(name); ok {
		return nil, nil
	}
	p := models.PlayerProfile{ID: r.s.nextID(), FullName: name, CreatedAt: time.Now().UTC()}
	r.s.profiles[p.ID] = p
	return &p, nil
}

func (r memPlayerRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.PlayerProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, repositories.ErrPlayerProfileNotFound
	}
	return &p, nil
}

func (r memPlayerRepo) GetByName(_ context.Context, _ repositories.SQLExecutor, name string) (*models.PlayerProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("player.GetByName"); err != nil {
		return nil, err
	}
	p, ok := r.findByName(name)
	if !ok {
		return nil, repositories.ErrPlayerProfileNotFound
	}
	return &p, nil
}

func (r memPlayerRepo) GetByUserID(_ context.Context, _ repositories.SQLExecutor, userID int) (*models.PlayerProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.profiles {
		if p.UserID != nil && *p.UserID == userID {
			return &p, nil
		}
	}
	return nil, repositories.ErrPlayerProfileNotFound
}

func (r memPlayerRepo) List(_ context.Context, _ repositories.SQLExecutor, f repositories.PlayerProfileFilter) ([]models.PlayerProfile, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.PlayerProfile
	for _, p := range r.s.profiles {
		if f.Search == "" || strings.Contains(strings.ToLower(p.FullName), strings.ToLower(f.Search)) {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FullName < all[j].FullName })
	total := len(all)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return append([]models.PlayerProfile{}, all[start:end]...), total, nil
}

func (r memPlayerRepo) Update(_ context.Context, _ repositories.SQLExecutor, p *models.PlayerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[p.ID]; !ok {
		return repositories.ErrPlayerProfileNotFound
	}
	if other, ok := r.findByName(p.FullName); ok && other.ID != p.ID {
		return repositories.ErrPlayerProfileNameConflict
	}
	r.s.profiles[p.ID] = *p
	return nil
}

func (r memPlayerRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("player.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.profiles[id]; !ok {
		return repositories.ErrPlayerProfileNotFound
	}
	delete(r.s.profiles, id)
	return nil
}

func (r memPlayerRepo) AddResult(_ context.Context, _ repositories.SQLExecutor, id int, wins, losses, draws int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("player.AddResult"); err != nil {
		return err
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return repositories.ErrPlayerProfileNotFound
	}
	p.Wins += wins
	p.Losses += losses
	p.Draws += draws
	r.s.profiles[id] = p
	return nil
}

func (r memPlayerRepo) LinkUser(_ context.Context, _ repositories.SQLExecutor, id int, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return repositories.ErrPlayerProfileNotFound
	}
	if p.UserID != nil {
		return repositories.ErrPlayerProfileAlreadyLinked
	}
	for _, other := range r.s.profiles {
		if other.UserID != nil && *other.UserID == userID {
			return repositories.ErrPlayerProfileUserTaken
		}
	}
	p.UserID = &userID
	r.s.profiles[id] = p
	return nil
}

func (r memPlayerRepo) UpdateAvatarKey(_ context.Context, _ repositories.SQLExecutor, id int, key *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("player.UpdateAvatarKey"); err != nil {
		return err
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return repositories.ErrPlayerProfileNotFound
	}
	p.AvatarKey = key
	r.s.profiles[id] = p
	return nil
}

// --- matches ---

type memMatchRepo struct{ s *memStore }

func (r memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("match.Create"); err != nil {
		return err
	}
	if m.TournamentID != nil {
		if _, ok := r.s.tournaments[*m.TournamentID]; !ok {
			return repositories.ErrMatchTournamentInvalid
		}
	}
	m.ID = r.s.nextID()
	m.CreatedAt = time.Now().UTC()
	stored := *m
	stored.Participants = nil
	r.s.matches[m.ID] = stored
	return nil
}

func (r memMatchRepo) AddParticipant(_ context.Context, _ repositories.SQLExecutor, matchID, profileID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("match.AddParticipant"); err != nil {
		return err
	}
	if _, ok := r.s.profiles[profileID]; !ok {
		return repositories.ErrMatchParticipantInvalid
	}
	for _, row := range r.s.matchPlayer {
		if row.matchID == matchID && row.profileID == profileID {
			return repositories.ErrMatchParticipantDuplicate
		}
	}
	r.s.matchPlayer = append(r.s.matchPlayer, matchPlayerRow{matchID: matchID, profileID: profileID, seq: r.s.nextID()})
	return nil
}

func (r memMatchRepo) withTitle(m models.Match) models.Match {
	if m.TournamentID != nil {
		if t, ok := r.s.tournaments[*m.TournamentID]; ok {
			title := t.Title
			m.TournamentTitle = &title
		}
	}
	return m
}

func (r memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	m = r.withTitle(m)
	return &m, nil
}

func (r memMatchRepo) GetForScoring(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("match.GetForScoring"); err != nil {
		return nil, err
	}
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	if m.Status == models.MatchStatusFinished {
		return nil, repositories.ErrMatchAlreadyFinished
	}
	m = r.withTitle(m)
	return &m, nil
}

func (r memMatchRepo) participants(matchID int) []models.MatchParticipant {
	result := []models.MatchParticipant{}
	for _, row := range r.s.matchPlayer {
		if row.matchID == matchID {
			result = append(result, models.MatchParticipant{
				MatchID:         matchID,
				PlayerProfileID: row.profileID,
				Score:           row.score,
				FullName:        r.s.profiles[row.profileID].FullName,
			})
		}
	}
	return result
}

func (r memMatchRepo) List(_ context.Context, _ repositories.SQLExecutor, f repositories.MatchFilter) ([]models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []models.Match{}
	for _, m := range r.s.matches {
		if f.TournamentID != nil && (m.TournamentID == nil || *m.TournamentID != *f.TournamentID) {
			continue
		}
		if f.Status != nil && m.Status != *f.Status {
			continue
		}
		if f.Round != nil && (m.Round == nil || *m.Round != *f.Round) {
			continue
		}
		m = r.withTitle(m)
		if f.TournamentSearch != "" {
			if m.TournamentTitle == nil || !strings.Contains(strings.ToLower(*m.TournamentTitle), strings.ToLower(f.TournamentSearch)) {
				continue
			}
		}
		m.Participants = r.participants(m.ID)
		result = append(result, m)
	}
	if f.TournamentID != nil {
		sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	} else {
		sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	}
	return result, nil
}

func (r memMatchRepo) ListParticipants(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]models.MatchParticipant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.participants(matchID), nil
}

func (r memMatchRepo) IncrementScore(_ context.Context, _ repositories.SQLExecutor, matchID, profileID, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[matchID]
	if !ok {
		return 0, repositories.ErrMatchNotFound
	}
	if m.Status != models.MatchStatusScheduled {
		return 0, repositories.ErrMatchAlreadyFinished
	}
	for i, row := range r.s.matchPlayer {
		if row.matchID == matchID && row.profileID == profileID {
			if row.score+delta < 0 {
				return 0, repositories.ErrMatchScoreNegative
			}
			r.s.matchPlayer[i].score += delta
			return r.s.matchPlayer[i].score, nil
		}
	}
	return 0, repositories.ErrMatchParticipantNotFound
}

func (r memMatchRepo) MarkFinished(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if m.Status == models.MatchStatusFinished {
		return repositories.ErrMatchAlreadyFinished
	}
	m.Status = models.MatchStatusFinished
	r.s.matches[id] = m
	return nil
}

func (r memMatchRepo) UpdateDate(_ context.Context, _ repositories.SQLExecutor, id int, date time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Date = date.UTC()
	r.s.matches[id] = m
	return nil
}

func (r memMatchRepo) LastDateInTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (*time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var last *time.Time
	for _, m := range r.s.matches {
		if m.TournamentID != nil && *m.TournamentID == tournamentID {
			if last == nil || m.Date.After(*last) {
				d := m.Date
				last = &d
			}
		}
	}
	return last, nil
}

func (r memMatchRepo) CountUnfinishedInTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.matches {
		if m.TournamentID != nil && *m.TournamentID == tournamentID && m.Status == models.MatchStatusScheduled {
			n++
		}
	}
	return n, nil
}

func (r memMatchRepo) DeleteParticipantsByProfile(_ context.Context, _ repositories.SQLExecutor, profileID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.matchPlayer = slices.DeleteFunc(r.s.matchPlayer, func(row matchPlayerRow) bool { return row.profileID == profileID })
	return nil
}

// --- tournaments ---

type memTournamentRepo struct{ s *memStore }

func (r memTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("tournament.Create"); err != nil {
		return err
	}
	t.ID = r.s.nextID()
	if t.Status == "" {
		t.Status = models.TournamentStatusOpen
	}
	if t.CurrentRound == 0 {
		t.CurrentRound = 1
	}
	t.CreatedAt = time.Now().UTC().Add(time.Duration(t.ID) * time.Millisecond)
	stored := *t
	stored.Matches, stored.Standings = nil, nil
	r.s.tournaments[t.ID] = stored
	return nil
}

func (r memTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r memTournamentRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memTournamentRepo) List(_ context.Context, _ repositories.SQLExecutor, f repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []models.Tournament{}
	for _, t := range r.s.tournaments {
		if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Search)) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r memTournamentRepo) update(id int, fn func(t *models.Tournament)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	fn(&t)
	r.s.tournaments[id] = t
	return nil
}

func (r memTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	return r.update(id, func(t *models.Tournament) { t.Status = status })
}

func (r memTournamentRepo) UpdateRound(_ context.Context, _ repositories.SQLExecutor, id int, round int) error {
	return r.update(id, func(t *models.Tournament) { t.CurrentRound = round })
}

func (r memTournamentRepo) Conclude(_ context.Context, _ repositories.SQLExecutor, id int, winner *int) error {
	return r.update(id, func(t *models.Tournament) {
		t.Status = models.TournamentStatusConcluded
		t.WinnerProfileID = winner
	})
}

// --- tournament participants ---

type memStandingRepo struct{ s *memStore }

func (r memStandingRepo) Register(_ context.Context, _ repositories.SQLExecutor, tournamentID, profileID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("standing.Register"); err != nil {
		return err
	}
	key := [2]int{tournamentID, profileID}
	if _, ok := r.s.standings[key]; ok {
		return nil
	}
	r.s.standings[key] = standingRow{
		TournamentParticipant: models.TournamentParticipant{TournamentID: tournamentID, PlayerProfileID: profileID},
		seq:                   r.s.nextID(),
	}
	return nil
}

func (r memStandingRepo) ApplyResult(_ context.Context, _ repositories.SQLExecutor, tournamentID, profileID int, wins, losses, draws, points int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]int{tournamentID, profileID}
	row, ok := r.s.standings[key]
	if !ok {
		return repositories.ErrTournamentParticipantNotFound
	}
	row.Wins += wins
	row.Losses += losses
	row.Draws += draws
	row.Points += points
	r.s.standings[key] = row
	return nil
}

func (r memStandingRepo) ListStandings(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Standing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []standingRow
	for _, row := range r.s.standings {
		if row.TournamentID == tournamentID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].seq < rows[j].seq
	})
	result := make([]models.Standing, len(rows))
	for i, row := range rows {
		result[i] = models.Standing{
			Position:        i + 1,
			PlayerProfileID: row.PlayerProfileID,
			FullName:        r.s.profiles[row.PlayerProfileID].FullName,
			Wins:            row.Wins,
			Losses:          row.Losses,
			Draws:           row.Draws,
			Points:          row.Points,
		}
	}
	return result, nil
}

func (r memStandingRepo) DeleteByProfile(_ context.Context, _ repositories.SQLExecutor, profileID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key := range r.s.standings {
		if key[1] == profileID {
			delete(r.s.standings, key)
		}
	}
	return nil
}

// --- claims ---

type memClaimRepo struct{ s *memStore }

func (r memClaimRepo) Create(_ context.Context, _ repositories.SQLExecutor, c *models.ClaimRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[c.UserID]; !ok {
		return repositories.ErrClaimRequestRefInvalid
	}
	for _, other := range r.s.claims {
		if other.UserID == c.UserID && other.IsPending() && equalIntPtr(other.PlayerProfileID, c.PlayerProfileID) {
			return repositories.ErrClaimRequestDuplicate
		}
	}
	c.ID = r.s.nextID()
	c.CreatedAt = time.Now().UTC()
	r.s.claims[c.ID] = *c
	return nil
}

func (r memClaimRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.ClaimRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.claims[id]
	if !ok {
		return nil, repositories.ErrClaimRequestNotFound
	}
	return &c, nil
}

func (r memClaimRepo) ListPending(_ context.Context, _ repositories.SQLExecutor) ([]models.ClaimRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []models.ClaimRequest{}
	for _, c := range r.s.claims {
		if c.IsPending() {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r memClaimRepo) Resolve(_ context.Context, _ repositories.SQLExecutor, id int, approved bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.claims[id]
	if !ok {
		return repositories.ErrClaimRequestNotFound
	}
	if !c.IsPending() {
		return repositories.ErrClaimRequestAlreadyHandled
	}
	c.ApprovedOrDenied = &approved
	r.s.claims[id] = c
	return nil
}

func (r memClaimRepo) DeletePendingByProfile(_ context.Context, _ repositories.SQLExecutor, profileID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.claims {
		if c.PlayerProfileID != nil && *c.PlayerProfileID == profileID && c.IsPending() {
			delete(r.s.claims, id)
		}
	}
	return nil
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// --- users ---

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, _ repositories.SQLExecutor, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return repositories.ErrUserEmailConflict
		}
		if other.Username == u.Username {
			return repositories.ErrUserUsernameConflict
		}
	}
	u.ID = r.s.nextID()
	u.CreatedAt = time.Now().UTC()
	r.s.users[u.ID] = *u
	return nil
}

func (r memUserRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r memUserRepo) GetByEmail(_ context.Context, _ repositories.SQLExecutor, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r memUserRepo) SetDirector(_ context.Context, _ repositories.SQLExecutor, id int, isDirector bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.IsDirector = isDirector
	r.s.users[id] = u
	return nil
}

func (r memUserRepo) RecipientsForProfiles(_ context.Context, _ repositories.SQLExecutor, profileIDs []int) ([]models.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []models.Recipient
	for _, id := range profileIDs {
		p, ok := r.s.profiles[id]
		if !ok || p.UserID == nil {
			continue
		}
		u := r.s.users[*p.UserID]
		result = append(result, models.Recipient{UserID: u.ID, Name: u.FirstName, Email: u.Email})
	}
	return result, nil
}

// --- collaborators ---

type recordedNotification struct {
	recipient models.Recipient
	eventType EventType
	details   EventDetails
	claimType models.ClaimType
	approved  bool
}

type recordingNotifier struct {
	mu      sync.Mutex
	added   []recordedNotification
	handled []recordedNotification
}

func (n *recordingNotifier) NotifyAddedToEvent(_ context.Context, r models.Recipient, eventType EventType, details EventDetails) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.added = append(n.added, recordedNotification{recipient: r, eventType: eventType, details: details})
}

func (n *recordingNotifier) NotifyRequestHandled(_ context.Context, r models.Recipient, claimType models.ClaimType, approved bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handled = append(n.handled, recordedNotification{recipient: r, claimType: claimType, approved: approved})
}

type recordingPublisher struct {
	mu       sync.Mutex
	rooms    []string
	messages []interface{}
}

func (p *recordingPublisher) BroadcastToRoom(roomID string, message interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, roomID)
	p.messages = append(p.messages, message)
}

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemUploader() *memUploader {
	return &memUploader{objects: map[string][]byte{}}
}

func (u *memUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

// --- wiring ---

// fixedNow is the clock used by every engine under test.
var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store       *memStore
	notifier    *recordingNotifier
	publisher   *recordingPublisher
	uploader    *memUploader
	players     PlayerService
	matches     MatchService
	tournaments TournamentService
	claims      ClaimService
	auth        AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		store:     store,
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		uploader:  newMemUploader(),
	}

	playerRepo := memPlayerRepo{store}
	matchRepo := memMatchRepo{store}
	tournamentRepo := memTournamentRepo{store}
	standingRepo := memStandingRepo{store}
	claimRepo := memClaimRepo{store}
	userRepo := memUserRepo{store}

	env.players = NewPlayerService(playerRepo, matchRepo, standingRepo, claimRepo, store, env.uploader, logger)

	matches := NewMatchService(matchRepo, playerRepo, standingRepo, tournamentRepo, userRepo, env.players, store, env.notifier, env.publisher, logger)
	matches.(*matchService).now = func() time.Time { return fixedNow }
	env.matches = matches

	tournaments := NewTournamentService(tournamentRepo, matchRepo, standingRepo, userRepo, env.players, matches, store, env.notifier, env.publisher, logger)
	ts := tournaments.(*tournamentService)
	ts.now = func() time.Time { return fixedNow }
	// Детерминированная жеребьёвка: порядок участников сохраняется
	ts.shuffle = func(int, func(i, j int)) {}
	env.tournaments = tournaments

	env.claims = NewClaimService(claimRepo, playerRepo, userRepo, store, env.notifier, logger)
	env.auth = NewAuthService(userRepo, "admin@example.com", logger)
	return env
}

// profileByName reads a profile directly from the store.
func (e *testEnv) profileByName(t *testing.T, name string) models.PlayerProfile {
	t.Helper()
	p, err := memPlayerRepo{e.store}.GetByName(context.Background(), nil, name)
	if err != nil {
		t.Fatalf("profile %q: %v", name, err)
	}
	return *p
}

func (e *testEnv) profileCount() int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return len(e.store.profiles)
}

func (e *testEnv) matchCount() int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return len(e.store.matches)
}

func (e *testEnv) tournamentCount() int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return len(e.store.tournaments)
}

// setScores sets every participant's score through the public operation.
func (e *testEnv) setScores(t *testing.T, m *models.Match, scores map[string]int) {
	t.Helper()
	for _, p := range m.Participants {
		if delta, ok := scores[p.FullName]; ok && delta != 0 {
			if _, err := e.matches.UpdateScore(context.Background(), m.ID, p.PlayerProfileID, delta); err != nil {
				t.Fatalf("UpdateScore(%s): %v", p.FullName, err)
			}
		}
	}
}

// linkUser registers a user and attaches it to the profile with the given name.
func (e *testEnv) linkUser(t *testing.T, profileName, email string) models.User {
	t.Helper()
	ctx := context.Background()
	u := &models.User{FirstName: profileName, Username: email, Email: email}
	if err := (memUserRepo{e.store}).Create(ctx, nil, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	p := e.profileByName(t, profileName)
	if err := (memPlayerRepo{e.store}).LinkUser(ctx, nil, p.ID, u.ID); err != nil {
		t.Fatalf("link user: %v", err)
	}
	return *u
}

// --- stats ---

type memStatsRepo struct{ s *memStore }

func (r memStatsRepo) Count(_ context.Context, _ repositories.SQLExecutor, subject repositories.StatSubject) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	switch subject {
	case repositories.StatPlayers:
		n = len(r.s.profiles)
	case repositories.StatLinkedPlayers:
		for _, p := range r.s.profiles {
			if p.UserID != nil {
				n++
			}
		}
	case repositories.StatUsers:
		n = len(r.s.users)
	case repositories.StatMatches:
		n = len(r.s.matches)
	case repositories.StatFinishedMatches:
		for _, m := range r.s.matches {
			if m.Status == models.MatchStatusFinished {
				n++
			}
		}
	case repositories.StatTournaments:
		n = len(r.s.tournaments)
	case repositories.StatConcludedTournaments:
		for _, t := range r.s.tournaments {
			if t.Status == models.TournamentStatusConcluded {
				n++
			}
		}
	case repositories.StatPendingClaims:
		for _, c := range r.s.claims {
			if c.IsPending() {
				n++
			}
		}
	default:
		return 0, errors.New("unknown subject")
	}
	return n, nil
}
