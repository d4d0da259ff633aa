package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/afrosing-backend/internal/database"
	"github.com/yourusername/afrosing-backend/internal/models"
	"github.com/yourusername/afrosing-backend/internal/synthesis"
)

type fakeStore struct {
	song *models.SongRequest

	audioURL string
	status   string
	saveErr  error
}

func (f *fakeStore) GetSongRequest(id int64) (*models.SongRequest, error) {
	if f.song == nil || f.song.ID != id {
		return nil, database.ErrNotFound
	}
	return f.song, nil
}

func (f *fakeStore) SetAudioResult(id int64, audioURL, status string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.audioURL = audioURL
	f.status = status
	return nil
}

func (f *fakeStore) SetStatus(id int64, status string) error {
	f.status = status
	return nil
}

type fakeSynth struct {
	result synthesis.Result
	err    error

	gotLyrics   string
	gotGenre    string
	gotLanguage string
}

func (f *fakeSynth) Generate(lyrics, genre, language string) (synthesis.Result, error) {
	f.gotLyrics, f.gotGenre, f.gotLanguage = lyrics, genre, language
	return f.result, f.err
}

func pendingSong(id int64) *models.SongRequest {
	return &models.SongRequest{
		ID:       id,
		UserID:   7,
		Lyrics:   "Sun is rising over the hills, today we dance",
		Genre:    "afrobeats",
		Mood:     "celebratory",
		Language: "Swahili",
		Status:   models.StatusPending,
	}
}

func TestGenerateAudio_Success(t *testing.T) {
	store := &fakeStore{song: pendingSong(1)}
	synth := &fakeSynth{result: synthesis.Result{AudioURL: "https://cdn.example.com/1.mp3"}}
	svc := New(store, synth)

	msg := svc.GenerateAudio(1, store.song.Lyrics, store.song.Genre)

	assert.Equal(t, "Audio processed for request 1.", msg)
	assert.Equal(t, models.StatusAudioReady, store.status)
	assert.Equal(t, "https://cdn.example.com/1.mp3", store.audioURL)
	// The record's language drives the style prompt, not a caller argument.
	assert.Equal(t, "Swahili", synth.gotLanguage)
	assert.Equal(t, "afrobeats", synth.gotGenre)
}

func TestGenerateAudio_FallbackStillReady(t *testing.T) {
	store := &fakeStore{song: pendingSong(2)}
	synth := &fakeSynth{result: synthesis.Result{AudioURL: synthesis.DefaultFallbackURL, Fallback: true}}
	svc := New(store, synth)

	msg := svc.GenerateAudio(2, store.song.Lyrics, store.song.Genre)

	assert.Equal(t, "Audio processed for request 2.", msg)
	assert.Equal(t, models.StatusAudioReady, store.status)
	assert.Equal(t, synthesis.DefaultFallbackURL, store.audioURL)
}

func TestGenerateAudio_SynthesisFailureMarksFailed(t *testing.T) {
	store := &fakeStore{song: pendingSong(3)}
	synth := &fakeSynth{err: errors.New("audio generation failed: boom")}
	svc := New(store, synth)

	msg := svc.GenerateAudio(3, store.song.Lyrics, store.song.Genre)

	assert.Equal(t, "Audio generation failed for request 3.", msg)
	assert.Equal(t, models.StatusFailed, store.status)
	assert.Empty(t, store.audioURL)
}

func TestGenerateAudio_MissingRequest(t *testing.T) {
	store := &fakeStore{}
	synth := &fakeSynth{}
	svc := New(store, synth)

	msg := svc.GenerateAudio(42, "some lyrics here", "pop")

	assert.Equal(t, "Error: SongRequest ID 42 not found.", msg)
	assert.Empty(t, synth.gotLyrics, "synthesis must not run for a missing request")
}

func TestGenerateAudio_PersistErrorReported(t *testing.T) {
	store := &fakeStore{song: pendingSong(5), saveErr: errors.New("disk on fire")}
	synth := &fakeSynth{result: synthesis.Result{AudioURL: "https://cdn.example.com/5.mp3"}}
	svc := New(store, synth)

	msg := svc.GenerateAudio(5, store.song.Lyrics, store.song.Genre)

	assert.Contains(t, msg, "Task failed with error")
}
