package judge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// makeTranscript builds a plausible episode transcript long enough to pass
// the length check, mentioning the given show and topic throughout.
func makeTranscript(show, topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sarah: Welcome to %s, I'm your host Sarah. Today we talk about %s.\n", show, topic)
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "%02d:%02d\n", i/10, (i*7)%60)
		fmt.Fprintf(&b, "Sarah: So what do you think about part %d of this, and how does it change things?\n", i)
		fmt.Fprintf(&b, "Guest: Yeah, I think that's a great question about %s, number %d.\n", topic, i)
		fmt.Fprintf(&b, "Guest: Well, you know, the way I see it, it really depends on the team and the context, round %d.\n", i)
	}
	b.WriteString("Sarah: Thanks for listening, see you next episode.\n")
	return b.String()
}

func TestEvaluateAcceptsRealTranscript(t *testing.T) {
	j := New()
	content := makeTranscript("Tech Podcast", "the AI impact on software teams")

	v := j.Evaluate(content, "Tech Podcast", "AI Impact")

	if !v.IsValid {
		t.Fatalf("expected valid verdict, got %+v", v)
	}
	if v.Confidence != ConfidenceHigh && v.Confidence != ConfidenceMedium {
		t.Errorf("expected high or medium confidence, got %s", v.Confidence)
	}
	if v.OverallScore < 0.6 {
		t.Errorf("expected overall >= 0.6, got %.2f", v.OverallScore)
	}
	if v.ComponentScores["accuracy"] < 0.3 {
		t.Errorf("expected accuracy >= 0.3, got %.2f", v.ComponentScores["accuracy"])
	}
}

func TestEvaluateRejectsBoilerplate(t *testing.T) {
	j := New()

	v := j.Evaluate("Click here to subscribe! Privacy Policy | Terms of Service",
		"Tech Podcast", "AI Impact")

	if v.IsValid {
		t.Fatal("expected boilerplate to be rejected")
	}
	if v.OverallScore >= 0.3 {
		t.Errorf("expected overall < 0.3, got %.2f", v.OverallScore)
	}
	if len(v.Reasons) == 0 {
		t.Error("expected reasons for the rejection")
	}
}

func TestEvaluateRejectsWrongShow(t *testing.T) {
	j := New()
	// Everything about this text is transcript-like, but it belongs to a
	// different show and episode.
	content := makeTranscript("Cooking Hour", "sourdough starters")

	v := j.Evaluate(content, "Tech Podcast", "AI Impact")

	if v.IsValid {
		t.Fatal("expected transcript of the wrong show to be rejected")
	}
	if v.ComponentScores["accuracy"] >= 0.3 {
		t.Errorf("expected accuracy below the gate, got %.2f", v.ComponentScores["accuracy"])
	}
}

func TestEvaluateEmptyContent(t *testing.T) {
	j := New()

	for _, content := range []string{"", "   \n\t "} {
		v := j.Evaluate(content, "Tech Podcast", "AI Impact")
		if v.OverallScore != 0 {
			t.Errorf("empty content: expected overall 0, got %.2f", v.OverallScore)
		}
		if v.IsValid {
			t.Error("empty content must not be valid")
		}
		if diff := cmp.Diff(ConfidenceVeryLow, v.Confidence); diff != "" {
			t.Errorf("confidence mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	j := New()
	content := makeTranscript("Tech Podcast", "the AI impact on software teams")

	first := j.Evaluate(content, "Tech Podcast", "AI Impact")
	second := j.Evaluate(content, "Tech Podcast", "AI Impact")

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical input produced different verdicts (-want +got):\n%s", diff)
	}
}

func TestEvaluateShortContentFailsLength(t *testing.T) {
	j := New()

	v := j.Evaluate("Sarah: Welcome to the Tech Podcast. Guest: Thanks!", "Tech Podcast", "AI Impact")

	if diff := cmp.Diff(0.0, v.ComponentScores["length"]); diff != "" {
		t.Errorf("length score mismatch (-want +got):\n%s", diff)
	}
}

func TestStrictProfileGatesOnConversation(t *testing.T) {
	strict := NewStrict()

	// Long and on-topic but written prose, not conversation.
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "Tech Podcast covers the AI impact in measured editorial prose, item %d. ", i)
	}
	v := strict.Evaluate(b.String(), "Tech Podcast", "AI Impact")

	if v.IsValid {
		t.Fatal("expected strict profile to reject non-conversational prose")
	}
}

func TestStrictProfileAcceptsRealTranscript(t *testing.T) {
	strict := NewStrict()
	content := makeTranscript("Tech Podcast", "the AI impact on software teams")

	v := strict.Evaluate(content, "Tech Podcast", "AI Impact")

	if !v.IsValid {
		t.Fatalf("expected strict profile to accept a real transcript, got %+v", v)
	}
}

func TestBestPrefersHigherOverall(t *testing.T) {
	j := New()
	good := makeTranscript("Tech Podcast", "the AI impact on software teams")

	best := j.Best([]Candidate{
		{Source: "scraper-a", Content: "Click here to subscribe!"},
		{Source: "scraper-b", Content: good},
	}, "Tech Podcast", "AI Impact")

	if best == nil {
		t.Fatal("expected a best candidate")
	}
	if diff := cmp.Diff("scraper-b", best.Source); diff != "" {
		t.Errorf("best source mismatch (-want +got):\n%s", diff)
	}
}

func TestBestBreaksTiesByAccuracy(t *testing.T) {
	// Two custom checks engineered so both candidates score the same
	// overall but differ on accuracy; the accurate one must win even
	// though it is listed last.
	checks := []Check{
		{Name: "accuracy", Weight: 0.5, Fn: func(d *doc) (float64, string) {
			if strings.Contains(d.lower, "alpha") {
				return 1, ""
			}
			return 0.5, ""
		}},
		{Name: "other", Weight: 0.5, Fn: func(d *doc) (float64, string) {
			if strings.Contains(d.lower, "alpha") {
				return 0.5, ""
			}
			return 1, ""
		}},
	}
	j := NewWithChecks(checks, 0.6)

	best := j.Best([]Candidate{
		{Source: "plain", Content: "something else entirely"},
		{Source: "accurate", Content: "alpha content"},
	}, "", "")

	if best == nil {
		t.Fatal("expected a best candidate")
	}
	if diff := cmp.Diff("accurate", best.Source); diff != "" {
		t.Errorf("tie-break mismatch (-want +got):\n%s", diff)
	}
}

func TestBestEmptyCandidates(t *testing.T) {
	if got := New().Best(nil, "show", "episode"); got != nil {
		t.Errorf("expected nil for empty candidates, got %+v", got)
	}
}

func TestConfidenceBuckets(t *testing.T) {
	tests := []struct {
		overall  float64
		accuracy float64
		want     Confidence
	}{
		{0.85, 0.7, ConfidenceHigh},
		{0.85, 0.5, ConfidenceMedium},
		{0.65, 0.45, ConfidenceMedium},
		{0.5, 0.35, ConfidenceLow},
		{0.45, 0.2, ConfidenceVeryLow},
		{0.2, 0.9, ConfidenceVeryLow},
	}
	for _, tt := range tests {
		got := confidenceFor(tt.overall, tt.accuracy)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("confidenceFor(%.2f, %.2f) mismatch (-want +got):\n%s", tt.overall, tt.accuracy, diff)
		}
	}
}
