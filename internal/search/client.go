package search

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
	"github.com/typesense/typesense-go/typesense/api/pointer"
	"github.com/yourusername/afrosing-backend/internal/models"
)

// Client maintains the gallery search index over public, ready songs.
type Client struct {
	client *typesense.Client
}

const collectionName = "song_requests"

func New(apiKey, host string) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(host),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	sc := &Client{client: client}

	if err := sc.initSchema(); err != nil {
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	log.Println("Typesense client initialized")
	return sc, nil
}

func (c *Client) initSchema() error {
	ctx := context.Background()

	// Check if collection exists
	_, err := c.client.Collection(collectionName).Retrieve(ctx)
	if err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{
				Name: "id",
				Type: "string",
			},
			{
				Name:     "title",
				Type:     "string",
				Optional: pointer.True(),
			},
			{
				Name: "lyrics",
				Type: "string",
			},
			{
				Name:  "genre",
				Type:  "string",
				Facet: pointer.True(),
			},
			{
				Name:  "language",
				Type:  "string",
				Facet: pointer.True(),
			},
			{
				Name: "audio_url",
				Type: "string",
			},
			{
				Name: "remix_count",
				Type: "int32",
			},
			{
				Name: "created_at",
				Type: "int64",
			},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	if _, err := c.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("error creating collection: %w", err)
	}

	log.Println("Typesense collection created successfully")
	return nil
}

// IndexSongRequest upserts one gallery entry. Only public songs with
// ready audio belong in the index; anything else is skipped.
func (c *Client) IndexSongRequest(sr *models.SongRequest) error {
	if !sr.IsPublic || sr.Status != models.StatusAudioReady || sr.AudioURL == nil {
		return nil
	}

	ctx := context.Background()

	doc := map[string]interface{}{
		"id":          strconv.FormatInt(sr.ID, 10),
		"lyrics":      sr.Lyrics,
		"genre":       sr.Genre,
		"language":    sr.Language,
		"audio_url":   *sr.AudioURL,
		"remix_count": sr.RemixCount,
		"created_at":  sr.CreatedAt.Unix(),
	}

	if sr.Title != nil {
		doc["title"] = *sr.Title
	}

	if _, err := c.client.Collection(collectionName).Documents().Upsert(ctx, doc); err != nil {
		return fmt.Errorf("error indexing song request: %w", err)
	}

	return nil
}

// GalleryEntry is the serialized form of an indexed public song.
type GalleryEntry struct {
	ID         int64  `json:"id"`
	Title      string `json:"title,omitempty"`
	Lyrics     string `json:"lyrics"`
	Genre      string `json:"genre"`
	Language   string `json:"language"`
	AudioURL   string `json:"audio_url"`
	RemixCount int    `json:"remix_count"`
}

// Result holds gallery search results.
type Result struct {
	Songs      []GalleryEntry `json:"songs"`
	TotalFound int            `json:"total_found"`
	SearchTime int            `json:"search_time_ms"`
}

// Search queries the gallery index by lyrics and title, with an
// optional genre facet filter.
func (c *Client) Search(query, genre string) (*Result, error) {
	ctx := context.Background()

	searchParams := &api.SearchCollectionParams{
		Q:                 query,
		QueryBy:           "title,lyrics,genre",
		Prefix:            pointer.String("true"),
		PerPage:           pointer.Int(50),
		HighlightStartTag: pointer.String(""),
		HighlightEndTag:   pointer.String(""),
	}

	if genre != "" {
		searchParams.FilterBy = pointer.String(fmt.Sprintf("genre:=%s", genre))
	}

	result, err := c.client.Collection(collectionName).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("error searching: %w", err)
	}

	songs := make([]GalleryEntry, 0)
	if result.Hits != nil {
		for _, hit := range *result.Hits {
			doc := *hit.Document
			entry := GalleryEntry{
				Lyrics:   doc["lyrics"].(string),
				Genre:    doc["genre"].(string),
				Language: doc["language"].(string),
			}

			if id, ok := doc["id"].(string); ok {
				entry.ID, _ = strconv.ParseInt(id, 10, 64)
			}
			if title, ok := doc["title"].(string); ok {
				entry.Title = title
			}
			if audioURL, ok := doc["audio_url"].(string); ok {
				entry.AudioURL = audioURL
			}
			if remixCount, ok := doc["remix_count"].(float64); ok {
				entry.RemixCount = int(remixCount)
			}

			songs = append(songs, entry)
		}
	}

	searchTimeMs := 0
	if result.SearchTimeMs != nil {
		searchTimeMs = *result.SearchTimeMs
	}

	totalFound := 0
	if result.Found != nil {
		totalFound = *result.Found
	}

	return &Result{
		Songs:      songs,
		TotalFound: totalFound,
		SearchTime: searchTimeMs,
	}, nil
}

// ReindexAll rebuilds the collection from the given songs.
func (c *Client) ReindexAll(songs []models.SongRequest) error {
	ctx := context.Background()
	log.Println("Starting full gallery reindex...")

	if _, err := c.client.Collection(collectionName).Delete(ctx); err != nil {
		log.Printf("Warning: could not delete existing collection: %v", err)
	}

	if err := c.initSchema(); err != nil {
		return fmt.Errorf("error recreating schema: %w", err)
	}

	indexed := 0
	for i := range songs {
		if err := c.IndexSongRequest(&songs[i]); err != nil {
			return fmt.Errorf("error indexing song request %d: %w", songs[i].ID, err)
		}
		indexed++
		if indexed%100 == 0 {
			log.Printf("Indexed %d/%d songs", indexed, len(songs))
		}
	}

	log.Printf("Reindex complete: %d songs indexed", indexed)
	return nil
}

// FromSongRequests converts store rows into the gallery payload shape,
// used when Typesense is disabled and the gallery reads Postgres.
func FromSongRequests(songs []models.SongRequest) *Result {
	entries := make([]GalleryEntry, 0, len(songs))
	for _, sr := range songs {
		entry := GalleryEntry{
			ID:         sr.ID,
			Lyrics:     sr.Lyrics,
			Genre:      sr.Genre,
			Language:   sr.Language,
			RemixCount: sr.RemixCount,
		}
		if sr.Title != nil {
			entry.Title = *sr.Title
		}
		if sr.AudioURL != nil {
			entry.AudioURL = *sr.AudioURL
		}
		entries = append(entries, entry)
	}

	return &Result{Songs: entries, TotalFound: len(entries)}
}
