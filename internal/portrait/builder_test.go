package portrait

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crateguide/crateguide/internal/textgen"
	"github.com/crateguide/crateguide/pkg/models"
)

type stubRunner struct {
	response string
	err      error
	prompts  []string
}

func (s *stubRunner) Run(ctx context.Context, req textgen.Request) (string, error) {
	if len(req.Messages) > 0 {
		s.prompts = append(s.prompts, req.Messages[len(req.Messages)-1].Content)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestBuild_ParsesModelOutput(t *testing.T) {
	runner := &stubRunner{response: "```json\n" + `{
		"primaryGenres": ["Rock", "Post-Punk"],
		"geographicCenters": ["UK", "USA"],
		"keyEras": ["1980s"],
		"noteworthyGaps": ["Latin American Music", "West African Funk"],
		"summary": "An anglophone guitar-music devotee."
	}` + "\n```"}
	store := NewMemoryStore()
	builder := NewBuilder(runner, store)

	p, err := builder.Build(context.Background(), "user-1", []string{"Joy Division", "The Fall"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(p.PrimaryGenres) != 2 || p.PrimaryGenres[0] != "Rock" {
		t.Errorf("Unexpected genres: %v", p.PrimaryGenres)
	}
	if len(p.NoteworthyGaps) != 2 {
		t.Errorf("Expected 2 gaps, got %v", p.NoteworthyGaps)
	}
	if p.ID == "" {
		t.Error("Expected generated portrait id")
	}

	// Portrait must be retrievable from the store afterwards
	stored, err := store.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Expected portrait in store: %v", err)
	}
	if stored.Summary != "An anglophone guitar-music devotee." {
		t.Errorf("Unexpected stored summary: %q", stored.Summary)
	}
}

func TestBuild_GenerationFailureDegradesToNeutralPortrait(t *testing.T) {
	runner := &stubRunner{err: errors.New("model unavailable")}
	builder := NewBuilder(runner, NewMemoryStore())

	p, err := builder.Build(context.Background(), "user-1", []string{"Miles Davis"})
	if err != nil {
		t.Fatalf("Generation failure must not fail the build: %v", err)
	}

	if p.Summary == "" {
		t.Error("Expected neutral summary")
	}
	if len(p.NoteworthyGaps) == 0 {
		t.Error("Expected at least one neutral gap")
	}
	if p.PrimaryGenres == nil || p.GeographicCenters == nil || p.KeyEras == nil {
		t.Error("All slice fields must be non-nil")
	}
}

func TestBuild_UnparsableOutputDegradesToNeutralPortrait(t *testing.T) {
	runner := &stubRunner{response: "I cannot analyze this collection."}
	builder := NewBuilder(runner, NewMemoryStore())

	p, err := builder.Build(context.Background(), "user-1", []string{"Miles Davis"})
	if err != nil {
		t.Fatalf("Unparsable output must not fail the build: %v", err)
	}
	if len(p.NoteworthyGaps) == 0 {
		t.Error("Expected neutral gap")
	}
}

func TestBuild_PromptNamesArtists(t *testing.T) {
	runner := &stubRunner{response: `{"primaryGenres": [], "geographicCenters": [], "keyEras": [], "noteworthyGaps": [], "summary": ""}`}
	builder := NewBuilder(runner, NewMemoryStore())

	_, err := builder.Build(context.Background(), "user-1", []string{"Fela Kuti", "Tony Allen"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(runner.prompts) != 1 {
		t.Fatalf("Expected 1 prompt, got %d", len(runner.prompts))
	}
	for _, artist := range []string{"Fela Kuti", "Tony Allen"} {
		if !strings.Contains(runner.prompts[0], artist) {
			t.Errorf("Prompt missing artist %q", artist)
		}
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_RoundTripNormalizes(t *testing.T) {
	store := NewMemoryStore()
	err := store.Put(context.Background(), &models.Portrait{ID: "p1", UserID: "u1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	p, err := store.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.PrimaryGenres == nil || p.NoteworthyGaps == nil {
		t.Error("Stored portrait slice fields must come back non-nil")
	}
}
