package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/yourusername/afrosing-backend/internal/auth"
	"github.com/yourusername/afrosing-backend/internal/backup"
	"github.com/yourusername/afrosing-backend/internal/database"
	"github.com/yourusername/afrosing-backend/internal/generator"
	"github.com/yourusername/afrosing-backend/internal/models"
	"github.com/yourusername/afrosing-backend/internal/search"
)

type Handler struct {
	db            *database.DB
	search        *search.Client
	backupManager *backup.Manager
	generator     *generator.Service
}

func New(db *database.DB, sc *search.Client, backupManager *backup.Manager, gen *generator.Service) *Handler {
	return &Handler{
		db:            db,
		search:        sc,
		backupManager: backupManager,
		generator:     gen,
	}
}

// GenerateSong accepts lyrics, creates the song request and runs the
// synthesis step synchronously before responding.
func (h *Handler) GenerateSong(c *fiber.Ctx) error {
	var req models.CreateSongRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.ApplyDefaults()
	if errs := req.Validate(); errs != nil {
		return c.Status(400).JSON(fiber.Map{"errors": errs})
	}

	userID := auth.UserID(c)
	sr, err := h.db.CreateSongRequest(userID, &req, nil)
	if err != nil {
		log.Printf("Error creating song request: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create song request"})
	}

	log.Printf("User %d submitted lyrics for generation (request %d)", userID, sr.ID)
	message := h.generator.GenerateAudio(sr.ID, sr.Lyrics, sr.Genre)

	sr = h.refresh(sr)
	h.indexForGallery(sr)
	h.checkBackupThreshold()

	return c.Status(201).JSON(fiber.Map{
		"id":      sr.ID,
		"status":  sr.Status,
		"message": message,
	})
}

// SongStatus returns the full record for status polling. Requests are
// scoped to their owner; anyone else gets a 404.
func (h *Handler) SongStatus(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ID format"})
	}

	sr, err := h.db.GetSongRequestForUser(id, auth.UserID(c))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "Song request not found"})
		}
		log.Printf("Error getting song request %d: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to retrieve song request"})
	}

	return c.JSON(sr)
}

// RemixSong creates a derivative song request linked to an existing one
// and bumps the original's remix counter exactly once.
func (h *Handler) RemixSong(c *fiber.Ctx) error {
	parentID, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ID format"})
	}

	parent, err := h.db.GetSongRequest(parentID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "Original song not found"})
		}
		log.Printf("Error getting song request %d: %v", parentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to retrieve original song"})
	}

	var req models.CreateSongRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.ApplyDefaults()
	if errs := req.Validate(); errs != nil {
		return c.Status(400).JSON(fiber.Map{"errors": errs})
	}

	userID := auth.UserID(c)
	remix, err := h.db.CreateSongRequest(userID, &req, &parent.ID)
	if err != nil {
		log.Printf("Error creating remix: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create remix"})
	}

	if err := h.db.IncrementRemixCount(parent.ID); err != nil {
		// The remix row exists either way; the counter is best-effort.
		log.Printf("Error incrementing remix count for %d: %v", parent.ID, err)
	}

	originalTitle := ""
	if parent.Title != nil {
		originalTitle = *parent.Title
	}
	log.Printf("User %d is remixing song %d (%q)", userID, parent.ID, originalTitle)

	message := h.generator.GenerateAudio(remix.ID, remix.Lyrics, remix.Genre)

	h.indexForGallery(h.refresh(remix))
	h.checkBackupThreshold()

	return c.Status(201).JSON(fiber.Map{
		"id":             remix.ID,
		"remix_of":       parent.ID,
		"original_title": originalTitle,
		"message":        message,
	})
}

// Gallery lists public songs with ready audio. With a text query it
// searches Typesense, falling back to Postgres when search is disabled.
func (h *Handler) Gallery(c *fiber.Ctx) error {
	query := c.Query("q")
	genre := c.Query("genre")

	if query != "" && h.search != nil {
		result, err := h.search.Search(query, genre)
		if err != nil {
			log.Printf("Error searching gallery: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "Search failed"})
		}
		return c.JSON(result)
	}

	var songs []models.SongRequest
	var err error
	if query != "" {
		songs, err = h.db.SearchPublicReady(query)
	} else {
		songs, err = h.db.ListPublicReady()
	}
	if err != nil {
		log.Printf("Error listing gallery: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to retrieve gallery"})
	}

	return c.JSON(search.FromSongRequests(songs))
}

// ReindexGallery rebuilds the Typesense index from the database.
func (h *Handler) ReindexGallery(c *fiber.Ctx) error {
	if h.search == nil {
		return c.Status(400).JSON(fiber.Map{"error": "Search is disabled"})
	}

	songs, err := h.db.ListPublicReady()
	if err != nil {
		log.Printf("Error getting songs for reindex: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to retrieve songs"})
	}

	if err := h.search.ReindexAll(songs); err != nil {
		log.Printf("Error reindexing: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Reindex failed"})
	}

	return c.JSON(fiber.Map{
		"message": "Reindex completed successfully",
		"count":   len(songs),
	})
}

// GetBackups lists all backups
func (h *Handler) GetBackups(c *fiber.Ctx) error {
	backups, err := h.backupManager.ListBackups()
	if err != nil {
		log.Printf("Error listing backups: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to list backups"})
	}

	return c.JSON(backups)
}

// CreateBackup manually triggers a backup
func (h *Handler) CreateBackup(c *fiber.Ctx) error {
	if err := h.backupManager.CreateBackup("manual"); err != nil {
		log.Printf("Error creating backup: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create backup"})
	}

	return c.JSON(fiber.Map{"message": "Backup created successfully"})
}

// HealthCheck returns server health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"timestamp": fiber.Map{
			"unix": c.Context().Time().Unix(),
		},
	})
}

func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// refresh re-reads the record so the response carries the
// post-generation status rather than the stale PENDING row.
func (h *Handler) refresh(sr *models.SongRequest) *models.SongRequest {
	fresh, err := h.db.GetSongRequest(sr.ID)
	if err != nil {
		log.Printf("Error refreshing song request %d: %v", sr.ID, err)
		return sr
	}
	return fresh
}

func (h *Handler) indexForGallery(sr *models.SongRequest) {
	if h.search == nil {
		return
	}
	if err := h.search.IndexSongRequest(sr); err != nil {
		// Don't fail the request, just log the error
		log.Printf("Error indexing song request %d: %v", sr.ID, err)
	}
}

// checkBackupThreshold runs async so backups never block the response.
func (h *Handler) checkBackupThreshold() {
	if h.backupManager == nil {
		return
	}
	go func() {
		count, _ := h.db.GetGenerationCount()
		if err := h.backupManager.CheckGenerationThreshold(count); err != nil {
			log.Printf("Error checking backup threshold: %v", err)
		}
	}()
}
