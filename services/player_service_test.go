package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestResolveOrCreateIsCaseAndSpaceInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.players.ResolveOrCreate(ctx, nil, "  Ana   Lima ")
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	if first.FullName != "Ana Lima" {
		t.Fatalf("FullName = %q, want %q", first.FullName, "Ana Lima")
	}
	if first.Wins != 0 || first.Losses != 0 || first.Draws != 0 {
		t.Fatalf("new profile must have zeroed statistics, got %+v", first)
	}

	for _, name := range []string{"ana lima", "ANA LIMA", "Ana  Lima"} {
		again, err := env.players.ResolveOrCreate(ctx, nil, name)
		if err != nil {
			t.Fatalf("ResolveOrCreate(%q) error = %v", name, err)
		}
		if again.ID != first.ID {
			t.Fatalf("ResolveOrCreate(%q) returned profile %d, want %d", name, again.ID, first.ID)
		}
	}
	if n := env.profileCount(); n != 1 {
		t.Fatalf("profile count = %d, want 1", n)
	}
}

func TestResolveOrCreateRejectsEmptyName(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.players.ResolveOrCreate(context.Background(), nil, "   "); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("error = %v, want ErrValidationFailed", err)
	}
}

func TestResolveOrCreateReportsCreationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failOn("player.CreateIfAbsent", errors.New("disk full"))

	_, err := env.players.ResolveOrCreate(context.Background(), nil, "Nobody")
	if !errors.Is(err, ErrProfileCreation) {
		t.Fatalf("error = %v, want ErrProfileCreation", err)
	}
}

func TestCreateProfileRejectsDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.players.CreateProfile(ctx, CreatePlayerInput{FullName: "Bruno Silva"}); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	_, err := env.players.CreateProfile(ctx, CreatePlayerInput{FullName: " bruno   SILVA"})
	if !errors.Is(err, ErrDuplicateProfile) {
		t.Fatalf("error = %v, want ErrDuplicateProfile", err)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.players.GetProfile(ctx, 999); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("GetProfile error = %v, want ErrPlayerNotFound", err)
	}
	if _, err := env.players.GetProfileByName(ctx, "ghost"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("GetProfileByName error = %v, want ErrPlayerNotFound", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, _ := env.players.CreateProfile(ctx, CreatePlayerInput{FullName: "Carla"})
	if _, err := env.players.CreateProfile(ctx, CreatePlayerInput{FullName: "Diego"}); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}

	club := "Porto"
	updated, err := env.players.UpdateProfile(ctx, a.ID, UpdatePlayerInput{SportsClub: &club})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.SportsClub == nil || *updated.SportsClub != "Porto" || updated.FullName != "Carla" {
		t.Fatalf("unexpected profile after update: %+v", updated)
	}

	// Смена регистра своего же имени допустима
	lower := "carla"
	if _, err := env.players.UpdateProfile(ctx, a.ID, UpdatePlayerInput{FullName: &lower}); err != nil {
		t.Fatalf("renaming to same key: %v", err)
	}

	taken := "DIEGO"
	if _, err := env.players.UpdateProfile(ctx, a.ID, UpdatePlayerInput{FullName: &taken}); !errors.Is(err, ErrDuplicateProfile) {
		t.Fatalf("error = %v, want ErrDuplicateProfile", err)
	}
}

func TestListProfilesPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, name := range []string{"Alpha One", "Alpha Two", "Alpha Three", "Beta"} {
		if _, err := env.players.CreateProfile(ctx, CreatePlayerInput{FullName: name}); err != nil {
			t.Fatalf("CreateProfile(%s): %v", name, err)
		}
	}

	page, err := env.players.ListProfiles(ctx, ListPlayersInput{Search: "alpha", Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	if page.Total != 3 || len(page.Players) != 1 || page.Page != 2 || page.PerPage != 2 {
		t.Fatalf("unexpected page: total=%d len=%d page=%d per_page=%d", page.Total, len(page.Players), page.Page, page.PerPage)
	}

	page, err = env.players.ListProfiles(ctx, ListPlayersInput{PerPage: 1000})
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	if page.PerPage != maxPlayersPerPage || page.Page != 1 {
		t.Fatalf("per_page = %d page = %d, want %d and 1", page.PerPage, page.Page, maxPlayersPerPage)
	}
}

func TestDeleteProfileRemovesReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	match, err := env.matches.CreateMatch(ctx, CreateMatchInput{
		Format:       "score to 10",
		Date:         fixedNow.Add(time.Hour),
		Participants: []string{"Eva", "Fabio"},
	})
	if err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}
	eva := env.profileByName(t, "Eva")

	if err := env.players.DeleteProfile(ctx, eva.ID); err != nil {
		t.Fatalf("DeleteProfile() error = %v", err)
	}
	if _, err := env.players.GetProfile(ctx, eva.ID); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("profile still readable: %v", err)
	}
	got, err := env.matches.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("GetMatch() error = %v", err)
	}
	if len(got.Participants) != 1 || got.Participants[0].FullName != "Fabio" {
		t.Fatalf("participants after delete = %+v", got.Participants)
	}
}

func TestDeleteLinkedProfileFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, _ := env.players.CreateProfile(ctx, CreatePlayerInput{FullName: "Gil"})
	env.linkUser(t, "Gil", "gil@example.com")

	if err := env.players.DeleteProfile(ctx, p.ID); !errors.Is(err, ErrProfileLinked) {
		t.Fatalf("error = %v, want ErrProfileLinked", err)
	}
	if _, err := env.players.GetProfile(ctx, p.ID); err != nil {
		t.Fatalf("linked profile must survive: %v", err)
	}
}

func TestDeleteProfileRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.matches.CreateMatch(ctx, CreateMatchInput{
		Format:       "time 90",
		Date:         fixedNow.Add(time.Hour),
		Participants: []string{"Hugo", "Ines"},
	}); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}
	hugo := env.profileByName(t, "Hugo")
	env.store.failOn("player.Delete", errors.New("connection reset"))

	if err := env.players.DeleteProfile(ctx, hugo.ID); err == nil {
		t.Fatal("DeleteProfile() succeeded, want error")
	}
	matches, _ := env.matches.ListMatches(ctx, ListMatchesInput{})
	if len(matches) != 1 || len(matches[0].Participants) != 2 {
		t.Fatalf("match participants were not restored: %+v", matches)
	}
}

func TestUploadAvatarReplacesPreviousObject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, _ := env.players.CreateProfile(ctx, CreatePlayerInput{FullName: "Joana"})

	first, err := env.players.UploadAvatar(ctx, p.ID, strings.NewReader("png-1"), "image/png")
	if err != nil {
		t.Fatalf("UploadAvatar() error = %v", err)
	}
	if first.AvatarURL == nil || !strings.HasSuffix(*first.AvatarURL, ".png") {
		t.Fatalf("AvatarURL = %v", first.AvatarURL)
	}

	second, err := env.players.UploadAvatar(ctx, p.ID, strings.NewReader("png-2"), "image/png")
	if err != nil {
		t.Fatalf("UploadAvatar() error = %v", err)
	}
	if *second.AvatarKey == *first.AvatarKey {
		t.Fatal("every upload must get a fresh key")
	}
	if len(env.uploader.deleted) != 1 || env.uploader.deleted[0] != *first.AvatarKey {
		t.Fatalf("deleted = %v, want the first key", env.uploader.deleted)
	}
}

func TestUploadAvatarValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, _ := env.players.CreateProfile(ctx, CreatePlayerInput{FullName: "Kai"})

	if _, err := env.players.UploadAvatar(ctx, p.ID, strings.NewReader("x"), "application/pdf"); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("error = %v, want ErrUnsupportedImage", err)
	}

	env.store.failOn("player.UpdateAvatarKey", errors.New("boom"))
	if _, err := env.players.UploadAvatar(ctx, p.ID, strings.NewReader("x"), "image/jpeg"); err == nil {
		t.Fatal("UploadAvatar() succeeded, want error")
	}
	if len(env.uploader.objects) != 0 {
		t.Fatalf("orphaned upload left behind: %v", env.uploader.objects)
	}
}
