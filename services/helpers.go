package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/storage"
)

// normalizeName trims the name and collapses inner runs of whitespace.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func nameKey(name string) string {
	return strings.ToLower(normalizeName(name))
}

// validateMatchFormat accepts free text as long as it says whether the match
// is played to a time limit or to a score.
func validateMatchFormat(format string) error {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		return fmt.Errorf("%w: match format is required", ErrInvalidMatchFormat)
	}
	if !strings.Contains(f, "time") && !strings.Contains(f, "score") {
		return fmt.Errorf("%w: %q", ErrInvalidMatchFormat, format)
	}
	return nil
}

func validateTournamentFormat(format models.TournamentFormat) error {
	switch format {
	case models.TournamentFormatKnockout, models.TournamentFormatLeague:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidTournamentFormat, format)
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// distinctNames normalizes names and rejects empty and repeated entries.
func distinctNames(names []string) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, raw := range names {
		name := normalizeName(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: participant name cannot be empty", ErrValidationFailed)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: participant %q is listed twice", ErrValidationFailed, name)
		}
		seen[key] = struct{}{}
		result = append(result, name)
	}
	return result, nil
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func populateAvatarURL(profile *models.PlayerProfile, uploader storage.FileUploader) {
	if profile != nil && profile.AvatarKey != nil && *profile.AvatarKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*profile.AvatarKey)
		if url != "" {
			profile.AvatarURL = &url
		}
	}
}

func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedImage, contentType)
	}
}
