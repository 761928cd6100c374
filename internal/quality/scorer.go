// Package quality scores arbitrary ingested content (articles, newsletters)
// on readability, depth, sourcing, bias, and completeness. Scoring is a pure
// function of the input; same content and metadata always produce the same
// assessment.
package quality

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Level buckets an overall score for reporting.
type Level string

// Quality levels.
const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelPoor      Level = "poor"
	LevelVeryPoor  Level = "very_poor"
)

// Assessment is the multi-dimensional verdict for one piece of content.
type Assessment struct {
	OverallScore    float64
	Level           Level
	ComponentScores map[string]float64
	BiasScores      map[string]float64
	Recommendations []string
}

// Combination weights for the overall score.
const (
	weightReadability  = 0.20
	weightDepth        = 0.25
	weightAccuracy     = 0.25
	weightBias         = 0.15
	weightCompleteness = 0.15
)

// Scorer assesses general content quality. Stateless and safe for
// concurrent use.
type Scorer struct{}

// NewScorer returns a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Assess scores content with its title and optional metadata. An empty
// metadata map is not penalized: the metadata completeness check is dropped
// from the denominator entirely when nothing was supplied.
func (s *Scorer) Assess(content, title string, metadata map[string]string) Assessment {
	if strings.TrimSpace(content) == "" {
		return Assessment{
			Level:           LevelVeryPoor,
			ComponentScores: map[string]float64{},
			BiasScores:      map[string]float64{},
			Recommendations: []string{"no content to assess"},
		}
	}

	elements := countElements(content)
	text := extractText(content)
	words := strings.Fields(text)

	readability := readabilityScore(text, words)
	depth := depthScore(elements)
	accuracy := accuracyScore(text, len(words))
	bias := biasScores(text, len(words))
	completeness := completenessScore(title, words, elements, metadata)

	overall := clamp01(
		weightReadability*readability +
			weightDepth*depth +
			weightAccuracy*accuracy +
			weightBias*(1-mean(bias)) +
			weightCompleteness*completeness,
	)

	a := Assessment{
		OverallScore: overall,
		Level:        levelFor(overall),
		ComponentScores: map[string]float64{
			"readability":  readability,
			"depth":        depth,
			"accuracy":     accuracy,
			"completeness": completeness,
		},
		BiasScores: bias,
	}
	a.Recommendations = recommend(a)
	return a
}

func levelFor(score float64) Level {
	switch {
	case score >= 0.8:
		return LevelExcellent
	case score >= 0.6:
		return LevelGood
	case score >= 0.4:
		return LevelFair
	case score >= 0.2:
		return LevelPoor
	default:
		return LevelVeryPoor
	}
}

func recommend(a Assessment) []string {
	var recs []string
	if a.ComponentScores["readability"] < 0.4 {
		recs = append(recs, "text is hard to read; shorter sentences would help")
	}
	if a.ComponentScores["depth"] < 0.3 {
		recs = append(recs, "content lacks structure (headings, lists, links)")
	}
	if a.ComponentScores["accuracy"] < 0.3 {
		recs = append(recs, "few evidenced claims; citations would strengthen it")
	}
	for category, score := range a.BiasScores {
		if score > 0.6 {
			recs = append(recs, "strong "+category+" phrasing detected")
		}
	}
	if a.ComponentScores["completeness"] < 0.5 {
		recs = append(recs, "content appears incomplete")
	}
	return recs
}

// extractText strips markup, returning the prose for word-level analysis.
// Plain text passes through unchanged.
func extractText(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	doc.Find("script, style").Remove()
	text := strings.TrimSpace(doc.Text())
	if text == "" {
		return content
	}
	return text
}

func mean(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
