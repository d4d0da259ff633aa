package generator

import (
	"fmt"
	"log"

	"github.com/yourusername/afrosing-backend/internal/models"
	"github.com/yourusername/afrosing-backend/internal/synthesis"
)

// Store is the slice of the song store the orchestrator needs.
type Store interface {
	GetSongRequest(id int64) (*models.SongRequest, error)
	SetAudioResult(id int64, audioURL, status string) error
	SetStatus(id int64, status string) error
}

// Synthesizer produces an audio URL for the given lyrics.
type Synthesizer interface {
	Generate(lyrics, genre, language string) (synthesis.Result, error)
}

// Service runs the synchronous generation step for one song request.
type Service struct {
	store Store
	synth Synthesizer
}

func New(store Store, synth Synthesizer) *Service {
	return &Service{store: store, synth: synth}
}

// GenerateAudio loads the request, calls the synthesis service and
// persists the outcome. It always returns a human-readable outcome
// message and never an error: every failure is absorbed here, logged,
// and reflected in the stored status.
func (s *Service) GenerateAudio(id int64, lyrics, genre string) string {
	sr, err := s.store.GetSongRequest(id)
	if err != nil {
		log.Printf("SongRequest %d not found: %v", id, err)
		return fmt.Sprintf("Error: SongRequest ID %d not found.", id)
	}

	result, err := s.synth.Generate(lyrics, genre, sr.Language)
	if err != nil {
		log.Printf("Audio generation failed for SongRequest %d: %v", id, err)
		if serr := s.store.SetStatus(id, models.StatusFailed); serr != nil {
			log.Printf("Failed to mark SongRequest %d as FAILED: %v", id, serr)
		}
		return fmt.Sprintf("Audio generation failed for request %d.", id)
	}

	if result.Fallback {
		log.Printf("SongRequest %d completed with fallback audio", id)
	}

	if err := s.store.SetAudioResult(id, result.AudioURL, models.StatusAudioReady); err != nil {
		log.Printf("Failed to save audio result for SongRequest %d: %v", id, err)
		return fmt.Sprintf("Task failed with error: %v", err)
	}

	log.Printf("Audio saved for SongRequest %d", id)
	return fmt.Sprintf("Audio processed for request %d.", id)
}
