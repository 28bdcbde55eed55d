package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/crateguide/crateguide/internal/catalog"
	"github.com/crateguide/crateguide/internal/conversation"
	"github.com/crateguide/crateguide/internal/portrait"
	"github.com/crateguide/crateguide/internal/textgen"
	"github.com/crateguide/crateguide/pkg/models"
)

type scriptedRunner struct {
	responses []string
	errs      []error
	prompts   []string
}

func (r *scriptedRunner) Run(ctx context.Context, req textgen.Request) (string, error) {
	r.prompts = append(r.prompts, req.Messages[len(req.Messages)-1].Content)
	call := len(r.prompts) - 1
	if call < len(r.errs) && r.errs[call] != nil {
		return "", r.errs[call]
	}
	if call >= len(r.responses) {
		return "", errors.New("script exhausted")
	}
	return r.responses[call], nil
}

type stubSearcher struct {
	hits     [][]models.CandidateAlbum
	err      error
	searches []catalog.Criteria
}

func (s *stubSearcher) Search(ctx context.Context, criteria catalog.Criteria) ([]models.CandidateAlbum, error) {
	s.searches = append(s.searches, criteria)
	if s.err != nil {
		return nil, s.err
	}
	call := len(s.searches) - 1
	if call >= len(s.hits) {
		return nil, nil
	}
	return s.hits[call], nil
}

type stubRecorder struct {
	calls []recordedRun
	err   error
}

type recordedRun struct {
	conversationID string
	userID         string
	recs           []models.Recommendation
}

func (r *stubRecorder) Record(ctx context.Context, conversationID, userID string, recs []models.Recommendation) error {
	r.calls = append(r.calls, recordedRun{conversationID, userID, recs})
	return r.err
}

func candidates(ids ...string) []models.CandidateAlbum {
	out := make([]models.CandidateAlbum, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.CandidateAlbum{
			CatalogID: id,
			Title:     fmt.Sprintf("Album %s", id),
			Artist:    fmt.Sprintf("Artist %s", id),
			Year:      1970 + i,
			Genres:    []string{"Funk"},
			Country:   "Nigeria",
		})
	}
	return out
}

func picksJSON(ids ...string) string {
	var parts []string
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf(`{"albumId": "%s", "reason": "A perfect bridge from what you described for %s."}`, id, id))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func seedConversation(t *testing.T, convs conversation.Store) *conversation.Conversation {
	t.Helper()
	conv := &conversation.Conversation{
		ID:         "conv-1",
		PortraitID: "portrait-1",
		UserID:     "user-1",
		State:      conversation.StateComplete,
		Transcript: []models.Message{
			{Role: models.RoleAssistant, Content: "Curious about Latin American music?"},
			{Role: models.RoleUser, Content: "Yes, something with horns and groove."},
		},
		QuestionCount: 4,
	}
	if err := convs.Put(context.Background(), conv); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}
	return conv
}

func seedPortrait(t *testing.T, portraits portrait.Store) {
	t.Helper()
	err := portraits.Put(context.Background(), &models.Portrait{
		ID:             "portrait-1",
		UserID:         "user-1",
		NoteworthyGaps: []string{"Latin American Music"},
	})
	if err != nil {
		t.Fatalf("seeding portrait: %v", err)
	}
}

func TestGenerateReturnsFiveFromPool(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{
		candidates("101", "102", "103", "104", "105", "106"),
		candidates("201", "202", "203", "204", "205", "206"),
	}}
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin", "country": "Brazil"}, {"style": "Salsa"}]`,
		picksJSON("101", "203", "105", "202", "106"),
	}}
	recorder := &stubRecorder{}

	orch := NewOrchestrator(runner, searcher, convs, portraits, recorder)
	recs, err := orch.Generate(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(recs) != 5 {
		t.Fatalf("expected 5 recommendations, got %d", len(recs))
	}

	poolIDs := map[string]bool{}
	for _, c := range append(candidates("101", "102", "103", "104", "105", "106"), candidates("201", "202", "203", "204", "205", "206")...) {
		poolIDs[c.CatalogID] = true
	}
	for _, rec := range recs {
		if !poolIDs[rec.AlbumID] {
			t.Errorf("recommendation %s does not trace back to the pool", rec.AlbumID)
		}
		if rec.Reason == "" {
			t.Errorf("recommendation %s has no reason", rec.AlbumID)
		}
		if rec.ExternalLink != catalog.ReleaseURL(rec.AlbumID) {
			t.Errorf("recommendation %s has wrong external link %q", rec.AlbumID, rec.ExternalLink)
		}
		if rec.CoverImage != "" {
			t.Errorf("cover image should be left unset, got %q", rec.CoverImage)
		}
	}

	if len(searcher.searches) != 2 {
		t.Errorf("expected 2 catalog searches, got %d", len(searcher.searches))
	}
	for _, s := range searcher.searches {
		if s.Limit != catalog.DefaultLimit {
			t.Errorf("expected per-criterion limit %d, got %d", catalog.DefaultLimit, s.Limit)
		}
	}

	if len(recorder.calls) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(recorder.calls))
	}
	if recorder.calls[0].conversationID != "conv-1" || recorder.calls[0].userID != "user-1" {
		t.Errorf("recorded wrong identity: %+v", recorder.calls[0])
	}
}

func TestGenerateEmptyPoolReturnsPlaceholder(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	searcher := &stubSearcher{} // every search returns no hits
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin"}]`,
	}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	recs, err := orch.Generate(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(recs) != 1 {
		t.Fatalf("expected exactly 1 placeholder, got %d", len(recs))
	}
	if recs[0].Title != "Discovery Awaits" || recs[0].Artist != "Various Artists" {
		t.Errorf("unexpected placeholder: %+v", recs[0])
	}
	if recs[0].Reason == "" {
		t.Error("placeholder must carry an explanatory reason")
	}
}

func TestGenerateCriteriaFailureReturnsPlaceholder(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{candidates("101")}}
	runner := &scriptedRunner{errs: []error{errors.New("provider down")}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	recs, err := orch.Generate(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(searcher.searches) != 0 {
		t.Error("no criteria means no catalog searches")
	}
	if len(recs) != 1 || recs[0].Title != "Discovery Awaits" {
		t.Fatalf("expected placeholder, got %+v", recs)
	}
}

func TestGenerateUnparsableCurationReturnsPlaceholder(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{candidates("101", "102")}}
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin"}]`,
		`I would recommend anything by Tito Puente, he is fantastic.`,
	}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	recs, err := orch.Generate(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(recs) != 1 || recs[0].Title != "Discovery Awaits" {
		t.Fatalf("expected placeholder, got %+v", recs)
	}
}

func TestGenerateDropsUnknownIDs(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{candidates("101", "102", "103")}}
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin"}]`,
		picksJSON("101", "999", "103"),
	}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	recs, err := orch.Generate(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations after dropping the unknown id, got %d", len(recs))
	}
	if recs[0].AlbumID != "101" || recs[1].AlbumID != "103" {
		t.Errorf("unexpected resolution order: %+v", recs)
	}
}

func TestGenerateDeduplicatesPool(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	// Both criteria return the same album.
	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{
		candidates("101"),
		candidates("101"),
	}}
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin"}, {"style": "Salsa"}]`,
		picksJSON("101"),
	}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	recs, err := orch.Generate(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	curationPrompt := runner.prompts[1]
	if strings.Count(curationPrompt, "id: 101 |") != 1 {
		t.Error("duplicate candidate should appear once in the curation prompt")
	}
}

func TestGenerateTruncatesCurationToFive(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{
		candidates("101", "102", "103", "104", "105", "106", "107", "108"),
	}}
	// The model over-returns: seven valid pool ids.
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin"}]`,
		picksJSON("101", "102", "103", "104", "105", "106", "107"),
	}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	recs, err := orch.Generate(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(recs) != 5 {
		t.Fatalf("expected list truncated to 5, got %d", len(recs))
	}
	for i, want := range []string{"101", "102", "103", "104", "105"} {
		if recs[i].AlbumID != want {
			t.Errorf("position %d: expected %s in pick order, got %s", i, want, recs[i].AlbumID)
		}
	}
}

func TestGenerateShowsCurationFirstThirtyCandidates(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	ids := make([]string, 0, 35)
	for i := 1; i <= 35; i++ {
		ids = append(ids, fmt.Sprintf("%d", i))
	}
	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{candidates(ids...)}}
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin"}]`,
		picksJSON("1"),
	}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	if _, err := orch.Generate(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	curationPrompt := runner.prompts[1]
	if !strings.Contains(curationPrompt, "id: 30 |") {
		t.Error("curation prompt should include the 30th pooled candidate")
	}
	for i := 31; i <= 35; i++ {
		if strings.Contains(curationPrompt, fmt.Sprintf("id: %d |", i)) {
			t.Errorf("curation prompt should not include candidate %d beyond the window", i)
		}
	}
}

func TestGenerateBoundsCriteriaToFive(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{candidates("101")}}
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "A"}, {"genre": "B"}, {"genre": "C"}, {"genre": "D"}, {"genre": "E"}, {"genre": "F"}, {"genre": "G"}]`,
		picksJSON("101"),
	}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	if _, err := orch.Generate(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(searcher.searches) != 5 {
		t.Errorf("expected searches bounded to 5 criteria, got %d", len(searcher.searches))
	}
}

func TestGenerateMissingConversation(t *testing.T) {
	orch := NewOrchestrator(&scriptedRunner{}, &stubSearcher{}, conversation.NewMemoryStore(), portrait.NewMemoryStore(), nil)

	_, err := orch.Generate(context.Background(), "no-such-id")
	if !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("expected conversation.ErrNotFound, got %v", err)
	}
}

func TestGenerateRecorderFailureIgnored(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore()
	seedConversation(t, convs)
	seedPortrait(t, portraits)

	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{candidates("101")}}
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin"}]`,
		picksJSON("101"),
	}}
	recorder := &stubRecorder{err: errors.New("queue down")}

	orch := NewOrchestrator(runner, searcher, convs, portraits, recorder)
	recs, err := orch.Generate(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("recorder failure must not surface: %v", err)
	}
	if len(recs) != 1 || recs[0].AlbumID != "101" {
		t.Errorf("unexpected result: %+v", recs)
	}
}

func TestGenerateUsesGenericGapWhenPortraitMissing(t *testing.T) {
	convs := conversation.NewMemoryStore()
	portraits := portrait.NewMemoryStore() // no portrait seeded
	seedConversation(t, convs)

	searcher := &stubSearcher{hits: [][]models.CandidateAlbum{candidates("101")}}
	runner := &scriptedRunner{responses: []string{
		`[{"genre": "Latin"}]`,
		picksJSON("101"),
	}}

	orch := NewOrchestrator(runner, searcher, convs, portraits, nil)
	if _, err := orch.Generate(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !strings.Contains(runner.prompts[0], "outside your usual listening habits") {
		t.Error("criteria prompt should fall back to the generic gap phrase")
	}
}
