package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/afrosing-backend/internal/models"
)

var songCols = []string{
	"id", "user_id", "title", "lyrics", "genre", "mood", "voice_type", "language",
	"status", "audio_url", "video_url", "duration", "remix_of", "remix_count",
	"is_public", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{sqlDB}, mock
}

func songRow(id, userID int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(songCols).AddRow(
		id, userID, nil, "Sun is rising over the hills", "afrobeats", "celebratory",
		nil, "English", status, nil, nil, nil, nil, 0, true, now, now,
	)
}

func TestCreateSongRequest(t *testing.T) {
	db, mock := newMockDB(t)

	req := &models.CreateSongRequest{
		Lyrics:   "Sun is rising over the hills",
		Genre:    "afrobeats",
		Mood:     "celebratory",
		Language: "English",
	}

	mock.ExpectQuery("INSERT INTO song_requests").
		WithArgs(int64(7), nil, req.Lyrics, "afrobeats", "celebratory", nil, "English",
			models.StatusPending, nil, true).
		WillReturnRows(songRow(1, 7, models.StatusPending))

	sr, err := db.CreateSongRequest(7, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sr.ID)
	assert.Equal(t, models.StatusPending, sr.Status)
	assert.Nil(t, sr.AudioURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSongRequestForUser_OwnerScoped(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("FROM song_requests WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(int64(1), int64(99)).
		WillReturnRows(sqlmock.NewRows(songCols))

	// Another user's song must look like it does not exist.
	_, err := db.GetSongRequestForUser(1, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSongRequestForUser_Found(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("FROM song_requests WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(int64(1), int64(7)).
		WillReturnRows(songRow(1, 7, models.StatusAudioReady))

	sr, err := db.GetSongRequestForUser(1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), sr.UserID)
}

func TestSetAudioResult(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE song_requests SET audio_url = \\$1, status = \\$2, updated_at = NOW\\(\\)").
		WithArgs("https://cdn.example.com/song.mp3", models.StatusAudioReady, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.SetAudioResult(1, "https://cdn.example.com/song.mp3", models.StatusAudioReady)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAudioResult_RejectsUnknownStatus(t *testing.T) {
	db, _ := newMockDB(t)

	err := db.SetAudioResult(1, "https://cdn.example.com/song.mp3", "VIDEO_FAILED")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data integrity")
}

func TestSetStatus_RejectsUnknownStatus(t *testing.T) {
	db, _ := newMockDB(t)

	err := db.SetStatus(1, "DONE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data integrity")
}

func TestSetStatus_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE song_requests SET status = \\$1").
		WithArgs(models.StatusFailed, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.SetStatus(42, models.StatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementRemixCount_AtomicUpdate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE song_requests SET remix_count = remix_count \\+ 1, updated_at = NOW\\(\\) WHERE id = \\$1").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.IncrementRemixCount(3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementRemixCount_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE song_requests SET remix_count = remix_count \\+ 1").
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.IncrementRemixCount(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPublicReady(t *testing.T) {
	db, mock := newMockDB(t)

	rows := songRow(1, 7, models.StatusAudioReady)
	now := time.Now()
	rows.AddRow(
		2, 8, "Harvest Song", "We gather in the fields tonight", "highlife", "harvest",
		nil, "Swahili", models.StatusAudioReady, "https://cdn.example.com/2.mp3", nil,
		nil, nil, 2, true, now, now,
	)

	mock.ExpectQuery("WHERE is_public = TRUE AND status = \\$1").
		WithArgs(models.StatusAudioReady).
		WillReturnRows(rows)

	songs, err := db.ListPublicReady()
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, 2, songs[1].RemixCount)
}
