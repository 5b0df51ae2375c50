package signalgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"exasignal/internal/models"
)

// ParseVerdict defensively parses a model completion into a Verdict. Models
// wrap JSON in code fences or prose; the parser strips fences, locates the
// outermost brace pair and validates required fields. Anything unparseable
// becomes a zero-confidence HOLD.
func ParseVerdict(raw string) (models.Verdict, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return models.HoldVerdict("empty model output"), fmt.Errorf("empty model output")
	}
	text = stripCodeFences(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return models.HoldVerdict("no JSON object in model output"), fmt.Errorf("no JSON object in model output")
	}
	var v models.Verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return models.HoldVerdict("invalid JSON from model"), fmt.Errorf("invalid JSON from model: %w", err)
	}
	v.Direction = strings.ToUpper(strings.TrimSpace(v.Direction))
	switch v.Direction {
	case models.DirectionYes, models.DirectionNo, models.DirectionHold:
	default:
		return models.HoldVerdict("unknown direction from model"), fmt.Errorf("unknown direction %q", v.Direction)
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 100 {
		v.Confidence = 100
	}
	return v, nil
}

func stripCodeFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	var b strings.Builder
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if b.Len() > 0 {
		return b.String()
	}
	return text
}
