package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// SongRequest lifecycle statuses. Transitions only move forward:
// PENDING -> {AUDIO_READY, FAILED}, AUDIO_READY -> VIDEO_READY.
const (
	StatusPending    = "PENDING"
	StatusAudioReady = "AUDIO_READY"
	StatusVideoReady = "VIDEO_READY"
	StatusFailed     = "FAILED"
)

var Genres = []string{"afrobeats", "highlife", "gengetone", "amapiano", "pop", "hiphop"}

var Moods = []string{"celebratory", "resilience", "love", "harvest", "protest", "reflection"}

var Languages = []string{"English", "Luganda", "Swahili", "Yoruba", "French", "Arabic"}

var Statuses = []string{StatusPending, StatusAudioReady, StatusVideoReady, StatusFailed}

// SongRequest is one generation attempt: the submitted lyrics, the
// lifecycle status, the resulting media URL and the remix lineage.
type SongRequest struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Title      *string   `json:"title,omitempty" db:"title"`
	Lyrics     string    `json:"lyrics" db:"lyrics"`
	Genre      string    `json:"genre" db:"genre"`
	Mood       string    `json:"mood" db:"mood"`
	VoiceType  *string   `json:"voice_type,omitempty" db:"voice_type"`
	Language   string    `json:"language" db:"language"`
	Status     string    `json:"status" db:"status"`
	AudioURL   *string   `json:"audio_url" db:"audio_url"`
	VideoURL   *string   `json:"-" db:"video_url"` // video phase disabled
	Duration   *int      `json:"duration" db:"duration"`
	RemixOf    *int64    `json:"remix_of" db:"remix_of"`
	RemixCount int       `json:"remix_count" db:"remix_count"`
	IsPublic   bool      `json:"is_public" db:"is_public"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CreateSongRequest is the submission payload for both generation and
// remixing. Defaults are applied before validation.
type CreateSongRequest struct {
	Title     *string `json:"title,omitempty"`
	Lyrics    string  `json:"lyrics"`
	Genre     string  `json:"genre"`
	Mood      string  `json:"mood"`
	VoiceType *string `json:"voice_type,omitempty"`
	Language  string  `json:"language"`
	IsPublic  *bool   `json:"is_public,omitempty"`
}

// ValidationErrors maps field names to messages, returned as the 400 body.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// ApplyDefaults fills the enum fields the same way the database would.
func (r *CreateSongRequest) ApplyDefaults() {
	if r.Genre == "" {
		r.Genre = "afrobeats"
	}
	if r.Mood == "" {
		r.Mood = "celebratory"
	}
	if r.Language == "" {
		r.Language = "English"
	}
}

// Validate checks the submission against the enumerated field domains.
// Lyrics must carry at least 10 non-whitespace characters.
func (r *CreateSongRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}

	if countNonSpace(r.Lyrics) < 10 {
		errs["lyrics"] = "Lyrics must be at least 10 characters long."
	}
	if !contains(Genres, r.Genre) {
		errs["genre"] = fmt.Sprintf("Genre '%s' is not supported.", r.Genre)
	}
	if !contains(Moods, r.Mood) {
		errs["mood"] = fmt.Sprintf("Mood '%s' is not supported.", r.Mood)
	}
	if !contains(Languages, r.Language) {
		errs["language"] = fmt.Sprintf("Language '%s' is not supported.", r.Language)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidStatus reports whether s belongs to the closed status set.
// Ad hoc values (e.g. VIDEO_FAILED from older call sites) are rejected
// at the persistence boundary.
func ValidStatus(s string) bool {
	return contains(Statuses, s)
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
