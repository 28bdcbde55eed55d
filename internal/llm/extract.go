// Package llm processes free-form model output into structured data.
//
// Hosted models routinely wrap JSON in markdown fences, add prose around it,
// or emit slightly malformed structures. Extract funnels every response
// through the same pipeline (fence stripping, JSON location, repair,
// unmarshal) and returns a tagged result so call sites handle the Ok and Err
// branches uniformly instead of nesting error checks per strategy.
package llm

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExtractResult is the tagged outcome of a structured extraction. When OK is
// false, Reason describes why the extraction failed; the target is left in
// whatever partial state unmarshalling reached and must not be used.
type ExtractResult struct {
	OK          bool
	Reason      string
	RepairStats RepairStats
	JSON        string
}

// Extract pulls structured data out of raw model output into target, which
// must be a pointer. It never returns an error: degradation decisions belong
// to the caller, which picks its own fallback on !OK.
func Extract(raw string, target interface{}) ExtractResult {
	jsonStr := locateJSON(raw)
	if jsonStr == "" {
		log.Debug().
			Int("response_bytes", len(raw)).
			Msg("No JSON found in model response")
		return ExtractResult{OK: false, Reason: "no JSON found in model response"}
	}

	repaired, stats, err := RepairJSON(jsonStr)
	if stats.WasRepaired {
		log.Debug().
			Strs("strategies", stats.RepairStrategies).
			Int("errors_fixed", stats.ErrorsFixed).
			Dur("repair_time", stats.RepairTime).
			Msg("JSON repair applied to model response")
	}
	if err != nil {
		return ExtractResult{
			OK:          false,
			Reason:      "JSON repair failed: " + err.Error(),
			RepairStats: stats,
			JSON:        repaired,
		}
	}

	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return ExtractResult{
			OK:          false,
			Reason:      "JSON does not match expected shape: " + err.Error(),
			RepairStats: stats,
			JSON:        repaired,
		}
	}

	return ExtractResult{OK: true, RepairStats: stats, JSON: repaired}
}

// locateJSON finds the JSON payload inside mixed text/JSON responses.
func locateJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Pure JSON response
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw
	}

	// Extract from ```json / ``` code fences
	if strings.Contains(raw, "```") {
		lines := strings.Split(raw, "\n")
		var jsonLines []string
		inCodeBlock := false

		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inCodeBlock = !inCodeBlock
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}

		if len(jsonLines) > 0 {
			return strings.TrimSpace(strings.Join(jsonLines, "\n"))
		}
	}

	// Scan for the first balanced {...} or [...] structure
	startIdx := strings.IndexAny(raw, "{[")
	if startIdx == -1 {
		return ""
	}

	openChar := raw[startIdx]
	closeChar := byte('}')
	if openChar == '[' {
		closeChar = ']'
	}

	count := 0
	for i := startIdx; i < len(raw); i++ {
		switch raw[i] {
		case openChar:
			count++
		case closeChar:
			count--
			if count == 0 {
				return raw[startIdx : i+1]
			}
		}
	}

	// Truncated structure: hand the remainder to the repair pipeline
	return raw[startIdx:]
}
