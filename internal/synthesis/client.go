package synthesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the PiAPI task endpoint serving DiffRhythm.
	DefaultEndpoint = "https://api.piapi.ai/api/v1/task"
	// DefaultFallbackURL is returned when the service cannot produce audio.
	DefaultFallbackURL = "https://example.com/dummy-diffrhythm-audio.mp3"
	// DefaultTimeout bounds one outbound generation call.
	DefaultTimeout = 180 * time.Second

	modelName     = "Qubico/diffrhythm"
	taskType      = "txt2audio-base"
	retryMaxLines = 6
)

// Config holds DiffRhythm client configuration.
type Config struct {
	Endpoint    string
	APIKey      string
	Timeout     time.Duration
	FallbackURL string // empty disables the fallback, making failures hard errors
}

// Client issues outbound calls to the DiffRhythm text-to-audio service.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Result is the outcome of one generation. Fallback marks the audio URL
// as the configured placeholder rather than real synthesized audio.
type Result struct {
	AudioURL string
	Fallback bool
}

type taskRequest struct {
	Model       string    `json:"model"`
	TaskType    string    `json:"task_type"`
	Input       taskInput `json:"input"`
	StylePrompt string    `json:"style_prompt"`
}

type taskInput struct {
	Lyrics string `json:"lyrics"`
}

type taskResponse struct {
	AudioURL string `json:"audio_url"`
}

// New creates a DiffRhythm client, filling unset config with defaults.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Generate requests audio for the given lyrics. On a missing or
// non-HTTP audio URL it retries exactly once with the lyrics trimmed to
// the first 6 lines. Any remaining failure yields the configured
// fallback URL; without a fallback URL the error is returned instead.
func (c *Client) Generate(lyrics, genre, language string) (Result, error) {
	stylePrompt := fmt.Sprintf("%s in %s", genre, language)

	audioURL, err := c.requestAudio(lyrics, stylePrompt)
	if err == nil && audioURL != "" {
		return Result{AudioURL: audioURL}, nil
	}

	if err != nil {
		log.Printf("DiffRhythm call failed: %v", err)
	} else {
		log.Println("DiffRhythm returned no usable audio_url, retrying with trimmed lyrics")
		trimmed := truncateLines(lyrics, retryMaxLines)
		audioURL, err = c.requestAudio(trimmed, stylePrompt)
		if err == nil && audioURL != "" {
			return Result{AudioURL: audioURL}, nil
		}
		if err != nil {
			log.Printf("DiffRhythm retry failed: %v", err)
		}
	}

	if c.cfg.FallbackURL == "" {
		if err == nil {
			err = fmt.Errorf("no audio_url in DiffRhythm response")
		}
		return Result{}, fmt.Errorf("audio generation failed: %w", err)
	}

	log.Printf("Falling back to simulated audio: %s", c.cfg.FallbackURL)
	return Result{AudioURL: c.cfg.FallbackURL, Fallback: true}, nil
}

// requestAudio performs one POST to the task endpoint. An empty string
// with nil error means the response held no usable audio URL.
func (c *Client) requestAudio(lyrics, stylePrompt string) (string, error) {
	payload := taskRequest{
		Model:       modelName,
		TaskType:    taskType,
		Input:       taskInput{Lyrics: lyrics},
		StylePrompt: stylePrompt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call DiffRhythm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if !strings.HasPrefix(result.AudioURL, "http") {
		return "", nil
	}

	return result.AudioURL, nil
}

func truncateLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
