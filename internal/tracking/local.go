package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/alvarorichard/kaistream/internal/models"
	"github.com/alvarorichard/kaistream/internal/util"
)

/*
────────────────────────────────────────────────────────────────────────────*
│  Configuration                                                             │
*────────────────────────────────────────────────────────────────────────────
*/
const (
	defaultCacheSize  = -20000 // 20MB
	busyTimeout       = 5000   // 5 seconds
	walAutoCheckpoint = 1000   // pages
	maxOpenConns      = 5
	maxIdleConns      = 2
)

/*
────────────────────────────────────────────────────────────────────────────*
│  Types                                                                     │
*────────────────────────────────────────────────────────────────────────────
*/

// LocalStore keeps user records in a SQLite database
type LocalStore struct {
	db *sql.DB

	getPrefsPS    *sql.Stmt
	upsertPrefsPS *sql.Stmt

	addFavPS    *sql.Stmt
	removeFavPS *sql.Stmt
	listFavPS   *sql.Stmt

	touchRecentPS *sql.Stmt
	trimRecentPS  *sql.Stmt
	listRecentPS  *sql.Stmt

	upsertProgressPS *sql.Stmt
	getProgressPS    *sql.Stmt
}

/*
────────────────────────────────────────────────────────────────────────────*
│  Constructor                                                               │
*────────────────────────────────────────────────────────────────────────────
*/

// NewLocalStore opens (creating if needed) the database at dbPath
func NewLocalStore(dbPath string) (*LocalStore, error) {
	if !sqliteAvailable {
		return nil, ErrCgoDisabled
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, errors.Wrap(err, "creating data directory")
	}

	path := dbPath
	if runtime.GOOS == "windows" {
		path = strings.ReplaceAll(dbPath, "\\", "/")
	}
	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_synchronous=NORMAL&_wal_autocheckpoint=%d&"+
			"_busy_timeout=%d&_cache_size=%d&_txlock=immediate",
		path,
		walAutoCheckpoint,
		busyTimeout,
		defaultCacheSize,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := initializeDatabase(db); err != nil {
		closeQuietly(db)
		return nil, err
	}

	store := &LocalStore{db: db}
	if err := store.prepareStatements(); err != nil {
		_ = store.Close()
		return nil, err
	}

	util.Debug("User store opened", "path", dbPath)
	return store, nil
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		util.Warn("Error closing database", "error", err)
	}
}

/*
────────────────────────────────────────────────────────────────────────────*
│  Schema                                                                    │
*────────────────────────────────────────────────────────────────────────────
*/
func initializeDatabase(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			user_id            TEXT PRIMARY KEY,
			preferred_language TEXT NOT NULL,
			preferred_quality  TEXT NOT NULL,
			theme              TEXT NOT NULL,
			updated_at         INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id  TEXT NOT NULL,
			anime_id TEXT NOT NULL,
			added_at INTEGER NOT NULL,
			UNIQUE (user_id, anime_id)
		)`,
		`CREATE TABLE IF NOT EXISTS recently_viewed (
			user_id    TEXT NOT NULL,
			anime_id   TEXT NOT NULL,
			viewed_seq INTEGER NOT NULL,
			viewed_at  INTEGER NOT NULL,
			PRIMARY KEY (user_id, anime_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recent_order ON recently_viewed (user_id, viewed_seq DESC)`,
		`CREATE TABLE IF NOT EXISTS watch_progress (
			user_id    TEXT NOT NULL,
			anime_id   TEXT NOT NULL,
			episode_id TEXT NOT NULL,
			progress   REAL NOT NULL CHECK (progress >= 0),
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, anime_id)
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "schema statement failed: %s", firstLine(stmt))
		}
	}

	if _, err := db.Exec(`PRAGMA optimize`); err != nil {
		return errors.Wrap(err, "initial optimization failed")
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

/*
────────────────────────────────────────────────────────────────────────────*
│  Prepared statements                                                       │
*────────────────────────────────────────────────────────────────────────────
*/
func (s *LocalStore) prepareStatements() error {
	statements := []struct {
		dst   **sql.Stmt
		name  string
		query string
	}{
		{&s.getPrefsPS, "get preferences", `SELECT preferred_language, preferred_quality, theme
			FROM preferences WHERE user_id = ?`},
		{&s.upsertPrefsPS, "upsert preferences", `INSERT INTO preferences
			(user_id, preferred_language, preferred_quality, theme, updated_at) VALUES (?,?,?,?,?)
			ON CONFLICT(user_id) DO UPDATE SET
				preferred_language = excluded.preferred_language,
				preferred_quality = excluded.preferred_quality,
				theme = excluded.theme,
				updated_at = excluded.updated_at`},
		{&s.addFavPS, "add favorite", `INSERT OR IGNORE INTO favorites (user_id, anime_id, added_at) VALUES (?,?,?)`},
		{&s.removeFavPS, "remove favorite", `DELETE FROM favorites WHERE user_id = ? AND anime_id = ?`},
		{&s.listFavPS, "list favorites", `SELECT anime_id FROM favorites WHERE user_id = ? ORDER BY id`},
		{&s.touchRecentPS, "touch recently viewed", `INSERT INTO recently_viewed (user_id, anime_id, viewed_seq, viewed_at)
			VALUES (?, ?, (SELECT COALESCE(MAX(viewed_seq), 0) + 1 FROM recently_viewed WHERE user_id = ?), ?)
			ON CONFLICT(user_id, anime_id) DO UPDATE SET
				viewed_seq = excluded.viewed_seq,
				viewed_at = excluded.viewed_at`},
		{&s.trimRecentPS, "trim recently viewed", `DELETE FROM recently_viewed
			WHERE user_id = ? AND anime_id NOT IN (
				SELECT anime_id FROM recently_viewed WHERE user_id = ? ORDER BY viewed_seq DESC LIMIT ?
			)`},
		{&s.listRecentPS, "list recently viewed", `SELECT anime_id FROM recently_viewed
			WHERE user_id = ? ORDER BY viewed_seq DESC LIMIT ?`},
		{&s.upsertProgressPS, "upsert progress", `INSERT INTO watch_progress
			(user_id, anime_id, episode_id, progress, updated_at) VALUES (?,?,?,?,?)
			ON CONFLICT(user_id, anime_id) DO UPDATE SET
				episode_id = excluded.episode_id,
				progress = excluded.progress,
				updated_at = excluded.updated_at`},
		{&s.getProgressPS, "get progress", `SELECT episode_id, progress, updated_at
			FROM watch_progress WHERE user_id = ? AND anime_id = ?`},
	}

	for _, st := range statements {
		stmt, err := s.db.Prepare(st.query)
		if err != nil {
			return errors.Wrapf(err, "%s preparation failed", st.name)
		}
		*st.dst = stmt
	}
	return nil
}

/*
────────────────────────────────────────────────────────────────────────────*
│  Preferences                                                               │
*────────────────────────────────────────────────────────────────────────────
*/

// Preferences returns the stored preferences of userID, or the defaults
func (s *LocalStore) Preferences(ctx context.Context, userID string) (models.Preferences, error) {
	if s == nil || s.db == nil {
		return models.Preferences{}, ErrStoreNotInited
	}

	var p models.Preferences
	err := s.getPrefsPS.QueryRowContext(ctx, userID).Scan(&p.PreferredLanguage, &p.PreferredQuality, &p.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return models.Preferences{}, errors.Wrap(err, "query preferences")
	}
	return p, nil
}

// SetPreferences validates and stores prefs for userID
func (s *LocalStore) SetPreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInited
	}

	prefs, err := NormalizePreferences(prefs)
	if err != nil {
		return err
	}
	_, err = s.upsertPrefsPS.ExecContext(ctx, userID,
		prefs.PreferredLanguage, prefs.PreferredQuality, prefs.Theme, time.Now().Unix())
	return errors.Wrap(err, "store preferences")
}

/*
────────────────────────────────────────────────────────────────────────────*
│  Favorites                                                                 │
*────────────────────────────────────────────────────────────────────────────
*/

// AddFavorite appends animeID to the favorites of userID unless it is already there
func (s *LocalStore) AddFavorite(ctx context.Context, userID, animeID string) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInited
	}
	_, err := s.addFavPS.ExecContext(ctx, userID, animeID, time.Now().Unix())
	return errors.Wrap(err, "add favorite")
}

// RemoveFavorite removes animeID from the favorites of userID
func (s *LocalStore) RemoveFavorite(ctx context.Context, userID, animeID string) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInited
	}
	_, err := s.removeFavPS.ExecContext(ctx, userID, animeID)
	return errors.Wrap(err, "remove favorite")
}

// Favorites lists the favorites of userID in the order they were added
func (s *LocalStore) Favorites(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreNotInited
	}
	return s.queryIDs(ctx, s.listFavPS, userID)
}

/*
────────────────────────────────────────────────────────────────────────────*
│  Recently viewed                                                           │
*────────────────────────────────────────────────────────────────────────────
*/

// AddRecentlyViewed moves animeID to the front of the recently viewed list of userID
// and drops everything past MaxRecentlyViewed
func (s *LocalStore) AddRecentlyViewed(ctx context.Context, userID, animeID string) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInited
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin recently viewed update")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.StmtContext(ctx, s.touchRecentPS).ExecContext(ctx, userID, animeID, userID, time.Now().Unix()); err != nil {
		return errors.Wrap(err, "touch recently viewed")
	}
	if _, err := tx.StmtContext(ctx, s.trimRecentPS).ExecContext(ctx, userID, userID, MaxRecentlyViewed); err != nil {
		return errors.Wrap(err, "trim recently viewed")
	}
	return errors.Wrap(tx.Commit(), "commit recently viewed update")
}

// RecentlyViewed lists the recently viewed anime of userID, most recent first
func (s *LocalStore) RecentlyViewed(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreNotInited
	}
	return s.queryIDs(ctx, s.listRecentPS, userID, MaxRecentlyViewed)
}

func (s *LocalStore) queryIDs(ctx context.Context, stmt *sql.Stmt, args ...any) ([]string, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer func() {
		if err := rows.Close(); err != nil {
			util.Warn("Error closing rows", "error", err)
		}
	}()

	ids := make([]string, 0, MaxRecentlyViewed)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "row scan failed")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows iteration failed")
	}
	return ids, nil
}

/*
────────────────────────────────────────────────────────────────────────────*
│  Watch progress                                                            │
*────────────────────────────────────────────────────────────────────────────
*/

// UpdateProgress records the episode and position userID reached in animeID
func (s *LocalStore) UpdateProgress(ctx context.Context, userID, animeID, episodeID string, progress float64) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInited
	}
	if err := validateProgress(episodeID, progress); err != nil {
		return err
	}
	_, err := s.upsertProgressPS.ExecContext(ctx, userID, animeID, episodeID, progress, time.Now().Unix())
	return errors.Wrap(err, "store progress")
}

// Progress returns the recorded progress, or nil when nothing was recorded
func (s *LocalStore) Progress(ctx context.Context, userID, animeID string) (*models.WatchProgress, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreNotInited
	}

	var p models.WatchProgress
	var ts int64
	err := s.getProgressPS.QueryRowContext(ctx, userID, animeID).Scan(&p.EpisodeID, &p.Progress, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query progress")
	}
	p.UpdatedAt = time.Unix(ts, 0)
	return &p, nil
}

/*
────────────────────────────────────────────────────────────────────────────*
│  Shutdown                                                                  │
*────────────────────────────────────────────────────────────────────────────
*/

// Close releases the prepared statements and the database
func (s *LocalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	var finalErr error
	for _, stmt := range []*sql.Stmt{
		s.getPrefsPS, s.upsertPrefsPS,
		s.addFavPS, s.removeFavPS, s.listFavPS,
		s.touchRecentPS, s.trimRecentPS, s.listRecentPS,
		s.upsertProgressPS, s.getProgressPS,
	} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			finalErr = errors.Wrap(err, "statement close error")
		}
	}

	if err := s.db.Close(); err != nil {
		finalErr = errors.Wrap(err, "database close error")
	}
	return finalErr
}
