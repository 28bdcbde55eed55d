package portrait

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crateguide/crateguide/internal/llm"
	"github.com/crateguide/crateguide/internal/textgen"
	"github.com/crateguide/crateguide/pkg/models"
)

// Builder computes a listener portrait from an artist list with a single
// text-generation call. A failed or unparsable generation degrades to a
// neutral portrait so the rest of the flow can still start.
type Builder struct {
	runner textgen.Runner
	store  Store
}

// NewBuilder creates a portrait builder.
func NewBuilder(runner textgen.Runner, store Store) *Builder {
	return &Builder{runner: runner, store: store}
}

// portraitPayload mirrors the JSON shape requested from the model.
type portraitPayload struct {
	PrimaryGenres     []string `json:"primaryGenres"`
	GeographicCenters []string `json:"geographicCenters"`
	KeyEras           []string `json:"keyEras"`
	NoteworthyGaps    []string `json:"noteworthyGaps"`
	Summary           string   `json:"summary"`
}

// Build analyzes the artist list, persists the resulting portrait, and
// returns it. The portrait is always created, possibly with neutral content.
func (b *Builder) Build(ctx context.Context, userID string, artists []string) (*models.Portrait, error) {
	p := &models.Portrait{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	text, err := b.runner.Run(ctx, textgen.Request{
		Messages:    []models.Message{{Role: models.RoleUser, Content: buildPortraitPrompt(artists)}},
		Temperature: 0.5,
		MaxTokens:   800,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Portrait generation failed, using neutral portrait")
		fillNeutral(p)
	} else {
		var payload portraitPayload
		if result := llm.Extract(text, &payload); result.OK {
			p.PrimaryGenres = payload.PrimaryGenres
			p.GeographicCenters = payload.GeographicCenters
			p.KeyEras = payload.KeyEras
			p.NoteworthyGaps = payload.NoteworthyGaps
			p.Summary = payload.Summary
		} else {
			log.Error().Str("reason", result.Reason).Msg("Portrait response unparsable, using neutral portrait")
			fillNeutral(p)
		}
	}

	p.Normalize()

	if err := b.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store portrait: %w", err)
	}

	log.Info().
		Str("portrait_id", p.ID).
		Str("user_id", userID).
		Int("genres", len(p.PrimaryGenres)).
		Int("gaps", len(p.NoteworthyGaps)).
		Msg("Portrait created")

	return p, nil
}

func fillNeutral(p *models.Portrait) {
	p.Summary = "A curious listener with a varied collection."
	p.NoteworthyGaps = []string{"music from outside your usual listening habits"}
}

func buildPortraitPrompt(artists []string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a music historian analyzing a listener's collection. ")
	prompt.WriteString("Here are the artists they listen to:\n\n")
	for _, artist := range artists {
		prompt.WriteString("- " + artist + "\n")
	}
	prompt.WriteString("\nAnalyze this collection and respond with JSON in the following structure:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"primaryGenres\": [\"the listener's dominant genres\"],\n")
	prompt.WriteString("  \"geographicCenters\": [\"regions or countries the collection centers on\"],\n")
	prompt.WriteString("  \"keyEras\": [\"decades or periods the collection favors\"],\n")
	prompt.WriteString("  \"noteworthyGaps\": [\"rich musical territories the listener has not explored yet\"],\n")
	prompt.WriteString("  \"summary\": \"2-3 sentences describing the listener's taste\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("```\n")
	prompt.WriteString("Name 2-4 specific, interesting gaps. Respond with only the JSON.")

	return prompt.String()
}
