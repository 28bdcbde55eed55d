// Package recommend turns a completed conversation into a short list of
// justified album recommendations.
package recommend

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/crateguide/crateguide/internal/catalog"
	"github.com/crateguide/crateguide/internal/conversation"
	"github.com/crateguide/crateguide/internal/llm"
	"github.com/crateguide/crateguide/internal/portrait"
	"github.com/crateguide/crateguide/internal/textgen"
	"github.com/crateguide/crateguide/pkg/models"
)

const (
	// maxCriteria bounds how many extracted criteria trigger catalog
	// searches in one run.
	maxCriteria = 5
	// maxPoolForCuration bounds how many pooled candidates are shown to
	// the curation prompt.
	maxPoolForCuration = 30
	// maxRecommendations bounds the final list.
	maxRecommendations = 5
)

// placeholderReason explains the universal fallback recommendation.
const placeholderReason = "We couldn't generate personalized recommendations this time, but great music is still out there waiting for you. Try another conversation and we'll dig deeper."

// searchCriterion is the shape the criteria-extraction prompt asks the
// model to emit. YearRange is carried through to curation as context
// but the catalog search itself filters on genre/style/country only.
type searchCriterion struct {
	Genre     string `json:"genre,omitempty"`
	Style     string `json:"style,omitempty"`
	Country   string `json:"country,omitempty"`
	YearRange string `json:"yearRange,omitempty"`
}

// curatedPick is one selection in the curation response. The model
// references candidates only by catalog id; the reason is its
// personalized justification.
type curatedPick struct {
	AlbumID string `json:"albumId"`
	Reason  string `json:"reason"`
}

// Orchestrator runs the recommendation pipeline: criteria extraction,
// catalog search, curation, resolution. Apart from a missing
// conversation, the pipeline never fails: every degraded stage falls
// through to the fixed placeholder recommendation.
type Orchestrator struct {
	runner    textgen.Runner
	searcher  catalog.Searcher
	convs     conversation.Store
	portraits portrait.Store
	recorder  Recorder
}

// Recorder is notified of each completed run so history can be kept
// out-of-band. A nil recorder disables recording; a failing recorder is
// logged and ignored.
type Recorder interface {
	Record(ctx context.Context, conversationID, userID string, recs []models.Recommendation) error
}

func NewOrchestrator(runner textgen.Runner, searcher catalog.Searcher, convs conversation.Store, portraits portrait.Store, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		runner:    runner,
		searcher:  searcher,
		convs:     convs,
		portraits: portraits,
		recorder:  recorder,
	}
}

// Generate produces 1 to 5 recommendations for a completed
// conversation. A missing conversation is the only hard error; every
// other failure degrades to the placeholder recommendation.
func (o *Orchestrator) Generate(ctx context.Context, conversationID string) ([]models.Recommendation, error) {
	conv, err := o.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	gaps := o.loadGaps(ctx, conv.PortraitID)
	criteria := o.extractCriteria(ctx, conv.Transcript, gaps)
	pool := o.searchCatalog(ctx, criteria)

	var recs []models.Recommendation
	if len(pool) == 0 {
		log.Warn().
			Str("conversation_id", conversationID).
			Int("criteria", len(criteria)).
			Msg("Empty candidate pool, returning placeholder recommendation")
		recs = placeholderList()
	} else {
		picks := o.curate(ctx, conv.Transcript, pool)
		recs = resolve(picks, pool)
		if len(recs) == 0 {
			log.Warn().
				Str("conversation_id", conversationID).
				Int("pool", len(pool)).
				Msg("Curation resolved no candidates, returning placeholder recommendation")
			recs = placeholderList()
		}
	}

	o.record(ctx, conv, recs)

	log.Info().
		Str("conversation_id", conversationID).
		Int("criteria", len(criteria)).
		Int("pool", len(pool)).
		Int("recommendations", len(recs)).
		Msg("Recommendation run finished")

	return recs, nil
}

// loadGaps fetches the portrait's noteworthy gaps, degrading to a
// generic phrase when the portrait is unavailable.
func (o *Orchestrator) loadGaps(ctx context.Context, portraitID string) []string {
	p, err := o.portraits.Get(ctx, portraitID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("portrait_id", portraitID).
			Msg("Portrait unavailable, using generic gap phrase")
		return []string{"music from outside your usual listening habits"}
	}
	if len(p.NoteworthyGaps) == 0 {
		return []string{"music from outside your usual listening habits"}
	}
	return p.NoteworthyGaps
}

// extractCriteria asks the model for 3-5 search criteria derived from
// the transcript. Parse failures yield zero criteria, which empties the
// pool and triggers the placeholder downstream.
func (o *Orchestrator) extractCriteria(ctx context.Context, transcript []models.Message, gaps []string) []searchCriterion {
	resp, err := o.runner.Run(ctx, textgen.Request{
		Messages: []models.Message{
			{Role: models.RoleUser, Content: buildCriteriaPrompt(transcript, gaps)},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Criteria extraction failed")
		return nil
	}

	var criteria []searchCriterion
	result := llm.Extract(resp, &criteria)
	if !result.OK {
		log.Warn().Str("reason", result.Reason).Msg("Criteria response unparsable")
		return nil
	}
	return criteria
}

// searchCatalog issues one bounded search per criterion, sequentially,
// and pools the hits de-duplicated by catalog id. Individual search
// failures are logged and skipped.
func (o *Orchestrator) searchCatalog(ctx context.Context, criteria []searchCriterion) []models.CandidateAlbum {
	if len(criteria) > maxCriteria {
		criteria = criteria[:maxCriteria]
	}

	var pool []models.CandidateAlbum
	seen := make(map[string]bool)

	for _, c := range criteria {
		hits, err := o.searcher.Search(ctx, catalog.Criteria{
			Genre:   c.Genre,
			Style:   c.Style,
			Country: c.Country,
			Limit:   catalog.DefaultLimit,
		})
		if err != nil {
			log.Warn().
				Err(err).
				Str("genre", c.Genre).
				Str("style", c.Style).
				Msg("Catalog search failed, skipping criterion")
			continue
		}
		for _, hit := range hits {
			if seen[hit.CatalogID] {
				continue
			}
			seen[hit.CatalogID] = true
			pool = append(pool, hit)
		}
	}
	return pool
}

// curate asks the model to pick up to 5 diverse candidates from the
// pool, referencing them by catalog id only. Parse failures yield zero
// picks.
func (o *Orchestrator) curate(ctx context.Context, transcript []models.Message, pool []models.CandidateAlbum) []curatedPick {
	shown := pool
	if len(shown) > maxPoolForCuration {
		shown = shown[:maxPoolForCuration]
	}

	resp, err := o.runner.Run(ctx, textgen.Request{
		Messages: []models.Message{
			{Role: models.RoleUser, Content: buildCurationPrompt(transcript, shown)},
		},
		Temperature: 0.6,
		MaxTokens:   1200,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Curation failed")
		return nil
	}

	var picks []curatedPick
	result := llm.Extract(resp, &picks)
	if !result.OK {
		log.Warn().Str("reason", result.Reason).Msg("Curation response unparsable")
		return nil
	}
	return picks
}

// resolve maps curated picks back onto pool candidates. Picks whose id
// has no pool match are dropped silently; the list is truncated to
// maxRecommendations.
func resolve(picks []curatedPick, pool []models.CandidateAlbum) []models.Recommendation {
	byID := make(map[string]models.CandidateAlbum, len(pool))
	for _, c := range pool {
		byID[c.CatalogID] = c
	}

	var recs []models.Recommendation
	for _, pick := range picks {
		candidate, ok := byID[pick.AlbumID]
		if !ok {
			log.Debug().Str("album_id", pick.AlbumID).Msg("Curated id not in pool, dropping")
			continue
		}
		recs = append(recs, models.Recommendation{
			AlbumID:      candidate.CatalogID,
			Title:        candidate.Title,
			Artist:       candidate.Artist,
			Year:         candidate.Year,
			Reason:       pick.Reason,
			ExternalLink: catalog.ReleaseURL(candidate.CatalogID),
		})
		if len(recs) == maxRecommendations {
			break
		}
	}
	return recs
}

// record hands the finished list to the recorder. Recording is
// best-effort: a failure never affects the response.
func (o *Orchestrator) record(ctx context.Context, conv *conversation.Conversation, recs []models.Recommendation) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, conv.ID, conv.UserID, recs); err != nil {
		log.Warn().
			Err(err).
			Str("conversation_id", conv.ID).
			Msg("Failed to record recommendation history")
	}
}

func placeholderList() []models.Recommendation {
	return []models.Recommendation{
		{
			Title:  "Discovery Awaits",
			Artist: "Various Artists",
			Reason: placeholderReason,
		},
	}
}
