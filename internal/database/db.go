package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/yourusername/afrosing-backend/internal/models"
)

// ErrNotFound is returned when a song request does not exist or is not
// visible to the requesting user.
var ErrNotFound = errors.New("song request not found")

const songColumns = `id, user_id, title, lyrics, genre, mood, voice_type, language,
		status, audio_url, video_url, duration, remix_of, remix_count, is_public,
		created_at, updated_at`

type DB struct {
	*sql.DB
}

func New(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Println("Database connection established")
	return &DB{db}, nil
}

func scanSongRequest(row interface{ Scan(...interface{}) error }) (*models.SongRequest, error) {
	var sr models.SongRequest
	err := row.Scan(
		&sr.ID, &sr.UserID, &sr.Title, &sr.Lyrics, &sr.Genre, &sr.Mood,
		&sr.VoiceType, &sr.Language, &sr.Status, &sr.AudioURL, &sr.VideoURL,
		&sr.Duration, &sr.RemixOf, &sr.RemixCount, &sr.IsPublic,
		&sr.CreatedAt, &sr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

// CreateSongRequest inserts a new request in PENDING state. remixOf is
// set when the request is a remix of an existing song.
func (db *DB) CreateSongRequest(userID int64, req *models.CreateSongRequest, remixOf *int64) (*models.SongRequest, error) {
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	query := `
		INSERT INTO song_requests (user_id, title, lyrics, genre, mood, voice_type, language,
			status, remix_of, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING ` + songColumns

	sr, err := scanSongRequest(db.QueryRow(query,
		userID, req.Title, req.Lyrics, req.Genre, req.Mood, req.VoiceType,
		req.Language, models.StatusPending, remixOf, isPublic,
	))
	if err != nil {
		return nil, fmt.Errorf("error creating song request: %w", err)
	}

	return sr, nil
}

// GetSongRequest retrieves a song request by ID.
func (db *DB) GetSongRequest(id int64) (*models.SongRequest, error) {
	query := `SELECT ` + songColumns + ` FROM song_requests WHERE id = $1`

	sr, err := scanSongRequest(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting song request: %w", err)
	}

	return sr, nil
}

// GetSongRequestForUser retrieves a song request scoped to its owner.
// Requests owned by other users are reported as not found.
func (db *DB) GetSongRequestForUser(id, userID int64) (*models.SongRequest, error) {
	query := `SELECT ` + songColumns + ` FROM song_requests WHERE id = $1 AND user_id = $2`

	sr, err := scanSongRequest(db.QueryRow(query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting song request: %w", err)
	}

	return sr, nil
}

// SetAudioResult stores the generated audio URL and new status, touching
// only the changed columns.
func (db *DB) SetAudioResult(id int64, audioURL, status string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("data integrity: status %q is not a recognized status", status)
	}

	query := `UPDATE song_requests SET audio_url = $1, status = $2, updated_at = NOW() WHERE id = $3`
	result, err := db.Exec(query, audioURL, status, id)
	if err != nil {
		return fmt.Errorf("error saving audio result: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SetStatus updates the lifecycle status only.
func (db *DB) SetStatus(id int64, status string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("data integrity: status %q is not a recognized status", status)
	}

	query := `UPDATE song_requests SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := db.Exec(query, status, id)
	if err != nil {
		return fmt.Errorf("error updating status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// IncrementRemixCount bumps the parent's remix counter by one in a
// single UPDATE, so concurrent remixes never lose updates.
func (db *DB) IncrementRemixCount(id int64) error {
	query := `UPDATE song_requests SET remix_count = remix_count + 1, updated_at = NOW() WHERE id = $1`
	result, err := db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("error incrementing remix count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListPublicReady returns publicly shared songs whose audio is ready,
// newest first. Used by the gallery.
func (db *DB) ListPublicReady() ([]models.SongRequest, error) {
	query := `SELECT ` + songColumns + `
		FROM song_requests
		WHERE is_public = TRUE AND status = $1
		ORDER BY created_at DESC`

	rows, err := db.Query(query, models.StatusAudioReady)
	if err != nil {
		return nil, fmt.Errorf("error listing public songs: %w", err)
	}
	defer rows.Close()

	var songs []models.SongRequest
	for rows.Next() {
		sr, err := scanSongRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning song request: %w", err)
		}
		songs = append(songs, *sr)
	}

	return songs, rows.Err()
}

// SearchPublicReady is the Postgres fallback for gallery search when
// Typesense is disabled.
func (db *DB) SearchPublicReady(query string) ([]models.SongRequest, error) {
	stmt := `SELECT ` + songColumns + `
		FROM song_requests
		WHERE is_public = TRUE AND status = $1
			AND (title ILIKE $2 OR lyrics ILIKE $2 OR genre ILIKE $2)
		ORDER BY created_at DESC`

	rows, err := db.Query(stmt, models.StatusAudioReady, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("error searching public songs: %w", err)
	}
	defer rows.Close()

	var songs []models.SongRequest
	for rows.Next() {
		sr, err := scanSongRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning song request: %w", err)
		}
		songs = append(songs, *sr)
	}

	return songs, rows.Err()
}

// GetGenerationCount returns the total number of song requests, used by
// the backup threshold check.
func (db *DB) GetGenerationCount() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM song_requests`
	if err := db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("error getting generation count: %w", err)
	}
	return count, nil
}
