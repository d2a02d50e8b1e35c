// Package tracking stores per-user records: preferences, favorites, recently viewed anime and watch progress
package tracking

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/alvarorichard/kaistream/internal/models"
	"github.com/alvarorichard/kaistream/internal/util"
)

// MaxRecentlyViewed bounds the recently viewed list of each user
const MaxRecentlyViewed = 20

var (
	ErrCgoDisabled        = errors.New("CGO disabled: sqlite user store not available")
	ErrStoreNotInited     = errors.New("user store not initialized")
	ErrInvalidPreferences = errors.New("invalid preferences")
	ErrInvalidProgress    = errors.New("invalid watch progress")
)

// Store is implemented by the SQLite store and the in-memory fallback
type Store interface {
	Preferences(ctx context.Context, userID string) (models.Preferences, error)
	SetPreferences(ctx context.Context, userID string, prefs models.Preferences) error

	AddFavorite(ctx context.Context, userID, animeID string) error
	RemoveFavorite(ctx context.Context, userID, animeID string) error
	Favorites(ctx context.Context, userID string) ([]string, error)

	AddRecentlyViewed(ctx context.Context, userID, animeID string) error
	RecentlyViewed(ctx context.Context, userID string) ([]string, error)

	UpdateProgress(ctx context.Context, userID, animeID, episodeID string, progress float64) error
	Progress(ctx context.Context, userID, animeID string) (*models.WatchProgress, error)

	Close() error
}

// Open returns the SQLite store at dbPath, or the in-memory store when dbPath is empty
// or SQLite is unavailable in this build
func Open(dbPath string) (Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return NewMemoryStore(), nil
	}

	store, err := NewLocalStore(dbPath)
	if errors.Is(err, ErrCgoDisabled) {
		util.Warn("User records will not persist across restarts (CGO not available)")
		return NewMemoryStore(), nil
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

var (
	validLanguages = map[string]bool{"sub": true, "dub": true}
	validQualities = map[string]bool{"480p": true, "720p": true, "1080p": true}
	validThemes    = map[string]bool{"light": true, "dark": true}
)

// NormalizePreferences fills empty fields with their defaults and rejects unknown values
func NormalizePreferences(p models.Preferences) (models.Preferences, error) {
	def := models.DefaultPreferences()
	if p.PreferredLanguage == "" {
		p.PreferredLanguage = def.PreferredLanguage
	}
	if p.PreferredQuality == "" {
		p.PreferredQuality = def.PreferredQuality
	}
	if p.Theme == "" {
		p.Theme = def.Theme
	}

	switch {
	case !validLanguages[p.PreferredLanguage]:
		return p, errors.Wrapf(ErrInvalidPreferences, "unknown language %q", p.PreferredLanguage)
	case !validQualities[p.PreferredQuality]:
		return p, errors.Wrapf(ErrInvalidPreferences, "unknown quality %q", p.PreferredQuality)
	case !validThemes[p.Theme]:
		return p, errors.Wrapf(ErrInvalidPreferences, "unknown theme %q", p.Theme)
	}
	return p, nil
}

func validateProgress(episodeID string, progress float64) error {
	if strings.TrimSpace(episodeID) == "" {
		return errors.Wrap(ErrInvalidProgress, "episode id is required")
	}
	if progress < 0 {
		return errors.Wrapf(ErrInvalidProgress, "progress %v is negative", progress)
	}
	return nil
}
