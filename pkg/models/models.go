package models

import (
	"time"
)

// Portrait is the structured summary of a listener's taste, computed once per
// artist list and read by the conversation and recommendation pipelines.
// All slice fields are kept non-nil so downstream prompt builders never have
// to nil-check.
type Portrait struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	PrimaryGenres     []string  `json:"primary_genres" db:"primary_genres"`
	GeographicCenters []string  `json:"geographic_centers" db:"geographic_centers"`
	KeyEras           []string  `json:"key_eras" db:"key_eras"`
	NoteworthyGaps    []string  `json:"noteworthy_gaps" db:"noteworthy_gaps"`
	Summary           string    `json:"summary,omitempty" db:"summary"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Normalize replaces nil slice fields with empty slices.
func (p *Portrait) Normalize() {
	if p.PrimaryGenres == nil {
		p.PrimaryGenres = []string{}
	}
	if p.GeographicCenters == nil {
		p.GeographicCenters = []string{}
	}
	if p.KeyEras == nil {
		p.KeyEras = []string{}
	}
	if p.NoteworthyGaps == nil {
		p.NoteworthyGaps = []string{}
	}
}

// MessageRole identifies who produced a transcript entry.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single transcript entry in a guided conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// CandidateAlbum is one catalog search hit. Candidates are ephemeral: they
// live only for the duration of a single recommendation run and are never
// persisted.
type CandidateAlbum struct {
	CatalogID string   `json:"catalog_id"`
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	Year      int      `json:"year"`
	Genres    []string `json:"genres"`
	Country   string   `json:"country,omitempty"`
}

// Recommendation is one justified album suggestion returned to the caller.
// AlbumID always traces back to a CandidateAlbum from the same run; the
// pipeline never invents ids on the success path.
type Recommendation struct {
	AlbumID      string `json:"album_id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Year         int    `json:"year"`
	Reason       string `json:"reason"`
	ExternalLink string `json:"external_link,omitempty"`
	CoverImage   string `json:"cover_image,omitempty"`
}
