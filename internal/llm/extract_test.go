package llm

import (
	"testing"
)

type criteriaStub struct {
	Genre     string `json:"genre,omitempty"`
	Style     string `json:"style,omitempty"`
	Country   string `json:"country,omitempty"`
	YearRange string `json:"yearRange,omitempty"`
}

func TestExtract_PureJSON(t *testing.T) {
	raw := `[{"genre": "Jazz", "country": "Brazil"}]`

	var criteria []criteriaStub
	result := Extract(raw, &criteria)

	if !result.OK {
		t.Fatalf("Expected OK, got reason: %s", result.Reason)
	}
	if len(criteria) != 1 {
		t.Fatalf("Expected 1 criterion, got %d", len(criteria))
	}
	if criteria[0].Genre != "Jazz" || criteria[0].Country != "Brazil" {
		t.Errorf("Unexpected criterion: %+v", criteria[0])
	}
	if result.RepairStats.WasRepaired {
		t.Error("Valid JSON should not be repaired")
	}
}

func TestExtract_CodeFences(t *testing.T) {
	raw := "Here are the search criteria:\n```json\n[{\"genre\": \"Cumbia\", \"country\": \"Colombia\"}, {\"style\": \"Bossa Nova\"}]\n```\nLet me know if you need more."

	var criteria []criteriaStub
	result := Extract(raw, &criteria)

	if !result.OK {
		t.Fatalf("Expected OK, got reason: %s", result.Reason)
	}
	if len(criteria) != 2 {
		t.Fatalf("Expected 2 criteria, got %d", len(criteria))
	}
	if criteria[1].Style != "Bossa Nova" {
		t.Errorf("Unexpected second criterion: %+v", criteria[1])
	}
}

func TestExtract_SurroundingProse(t *testing.T) {
	raw := `Based on the conversation, I suggest: {"genre": "Afrobeat", "country": "Nigeria"} which fills the gap.`

	var criterion criteriaStub
	result := Extract(raw, &criterion)

	if !result.OK {
		t.Fatalf("Expected OK, got reason: %s", result.Reason)
	}
	if criterion.Genre != "Afrobeat" {
		t.Errorf("Expected Afrobeat, got %q", criterion.Genre)
	}
}

func TestExtract_TrailingComma(t *testing.T) {
	raw := `[{"genre": "Dub", "country": "Jamaica",}]`

	var criteria []criteriaStub
	result := Extract(raw, &criteria)

	if !result.OK {
		t.Fatalf("Expected OK after repair, got reason: %s", result.Reason)
	}
	if !result.RepairStats.WasRepaired {
		t.Error("Expected repair to be applied")
	}
	if len(criteria) != 1 || criteria[0].Genre != "Dub" {
		t.Errorf("Unexpected criteria: %+v", criteria)
	}
}

func TestExtract_TruncatedArray(t *testing.T) {
	// Simulates output cut off at the token limit
	raw := `[{"genre": "Highlife", "country": "Ghana"}, {"genre": "Soukous"`

	var criteria []criteriaStub
	result := Extract(raw, &criteria)

	if !result.OK {
		t.Fatalf("Expected OK after completion repair, got reason: %s", result.Reason)
	}
	if len(criteria) < 1 {
		t.Fatal("Expected at least the first complete criterion to survive")
	}
	if criteria[0].Genre != "Highlife" {
		t.Errorf("Expected Highlife, got %q", criteria[0].Genre)
	}
}

func TestExtract_NoJSON(t *testing.T) {
	var criteria []criteriaStub
	result := Extract("I could not come up with any search criteria, sorry!", &criteria)

	if result.OK {
		t.Fatal("Expected extraction to fail on prose-only response")
	}
	if result.Reason == "" {
		t.Error("Expected a failure reason")
	}
}

func TestExtract_WrongShape(t *testing.T) {
	var criteria []criteriaStub
	result := Extract(`{"genre": "Jazz"}`, &criteria)

	if result.OK {
		t.Fatal("Expected extraction to fail when an object is given for an array target")
	}
}

func TestRepairJSON_UnquotedKeys(t *testing.T) {
	repaired, stats, err := RepairJSON(`{genre: "Salsa", country: "Cuba"}`)
	if err != nil {
		t.Fatalf("Expected repair to succeed: %v", err)
	}
	if !stats.WasRepaired {
		t.Error("Expected WasRepaired=true")
	}
	if repaired == "" {
		t.Error("Expected non-empty repaired JSON")
	}
}

func TestRepairJSON_SingleQuotes(t *testing.T) {
	repaired, _, err := RepairJSON(`{'genre': 'Fado'}`)
	if err != nil {
		t.Fatalf("Expected repair to succeed: %v", err)
	}
	if repaired == `{'genre': 'Fado'}` {
		t.Error("Expected quotes to be rewritten")
	}
}

func TestRepairJSON_ValidPassesThrough(t *testing.T) {
	input := `{"genre": "Tango"}`
	repaired, stats, err := RepairJSON(input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.WasRepaired {
		t.Error("Valid JSON must not be touched")
	}
	if repaired != input {
		t.Errorf("Expected passthrough, got %q", repaired)
	}
}
