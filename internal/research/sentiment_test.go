package research

import (
	"testing"

	"exasignal/internal/models"
)

func TestTagDirection(t *testing.T) {
	cases := []struct {
		name          string
		title         string
		snippet       string
		wantDirection string
		wantSentiment string
	}{
		{
			name:          "strong bullish",
			title:         "Breakthrough confirmed: launch a major success",
			snippet:       "regulators approved the filing",
			wantDirection: models.DirectionYes,
			wantSentiment: models.SentimentPositive,
		},
		{
			name:          "strong bearish",
			title:         "Filing rejected, launch delayed indefinitely",
			snippet:       "regulator warns of further risks",
			wantDirection: models.DirectionNo,
			wantSentiment: models.SentimentNegative,
		},
		{
			name:          "single hit is not enough",
			title:         "Company confirmed its quarterly call",
			wantDirection: models.DirectionNeutral,
			wantSentiment: models.SentimentPositive,
		},
		{
			name:          "narrow margin stays neutral",
			title:         "Launch approved and confirmed but filing delayed amid lawsuit",
			wantDirection: models.DirectionNeutral,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name:          "no keywords",
			title:         "Quarterly update scheduled for Tuesday",
			wantDirection: models.DirectionNeutral,
			wantSentiment: models.SentimentNeutral,
		},
	}
	for _, tc := range cases {
		r := models.ResearchResult{Title: tc.title, Snippet: tc.snippet}
		TagDirection(&r)
		if r.SupportsDirection != tc.wantDirection {
			t.Errorf("%s: direction=%s want=%s", tc.name, r.SupportsDirection, tc.wantDirection)
		}
		if r.Sentiment != tc.wantSentiment {
			t.Errorf("%s: sentiment=%s want=%s", tc.name, r.Sentiment, tc.wantSentiment)
		}
	}
}

// A headline sharing no vocabulary with the market's outcome definitions
// must still tag a direction; the heuristic reads the evidence text alone,
// so sparse definitions never flatten consensus to the no-directional floor.
func TestTagDirectionIgnoresOutcomeDefinitions(t *testing.T) {
	r := models.ResearchResult{
		Title: "Breakthrough confirmed: approval wins record success",
	}
	TagDirection(&r)
	if r.SupportsDirection != models.DirectionYes {
		t.Fatalf("direction=%s want=%s", r.SupportsDirection, models.DirectionYes)
	}
}
