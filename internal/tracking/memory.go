package tracking

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/alvarorichard/kaistream/internal/models"
)

// MemoryStore keeps user records in process memory. It is used when no database path
// is configured or SQLite is not compiled in.
type MemoryStore struct {
	mu          sync.RWMutex
	preferences map[string]models.Preferences
	favorites   map[string][]string
	recent      map[string][]string
	progress    map[string]map[string]models.WatchProgress
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		preferences: make(map[string]models.Preferences),
		favorites:   make(map[string][]string),
		recent:      make(map[string][]string),
		progress:    make(map[string]map[string]models.WatchProgress),
		now:         time.Now,
	}
}

func (m *MemoryStore) Preferences(_ context.Context, userID string) (models.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.preferences[userID]; ok {
		return p, nil
	}
	return models.DefaultPreferences(), nil
}

func (m *MemoryStore) SetPreferences(_ context.Context, userID string, prefs models.Preferences) error {
	prefs, err := NormalizePreferences(prefs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences[userID] = prefs
	return nil
}

func (m *MemoryStore) AddFavorite(_ context.Context, userID, animeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.favorites[userID], animeID) {
		m.favorites[userID] = append(m.favorites[userID], animeID)
	}
	return nil
}

func (m *MemoryStore) RemoveFavorite(_ context.Context, userID, animeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites[userID] = slices.DeleteFunc(m.favorites[userID], func(id string) bool { return id == animeID })
	return nil
}

func (m *MemoryStore) Favorites(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.favorites[userID]...), nil
}

func (m *MemoryStore) AddRecentlyViewed(_ context.Context, userID, animeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := slices.DeleteFunc(m.recent[userID], func(id string) bool { return id == animeID })
	list = append([]string{animeID}, list...)
	if len(list) > MaxRecentlyViewed {
		list = list[:MaxRecentlyViewed]
	}
	m.recent[userID] = list
	return nil
}

func (m *MemoryStore) RecentlyViewed(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.recent[userID]...), nil
}

func (m *MemoryStore) UpdateProgress(_ context.Context, userID, animeID, episodeID string, progress float64) error {
	if err := validateProgress(episodeID, progress); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progress[userID] == nil {
		m.progress[userID] = make(map[string]models.WatchProgress)
	}
	m.progress[userID][animeID] = models.WatchProgress{
		EpisodeID: episodeID,
		Progress:  progress,
		UpdatedAt: m.now().Truncate(time.Second),
	}
	return nil
}

func (m *MemoryStore) Progress(_ context.Context, userID, animeID string) (*models.WatchProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[userID][animeID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) Close() error { return nil }
