// Package judge decides whether a block of text is a real transcript of a
// specific named show and episode. It replaces the usual pattern of two
// parallel validators with one judge driven by a named set of weighted
// checks, so lenient vs. strict is a configuration choice.
package judge

import (
	"sort"
	"strings"
)

// Confidence buckets for a verdict.
type Confidence string

// Confidence levels, derived from the overall and accuracy scores.
const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceVeryLow Confidence = "very_low"
)

// Verdict is the outcome of judging one candidate transcript.
type Verdict struct {
	IsValid         bool
	OverallScore    float64
	ComponentScores map[string]float64
	Confidence      Confidence
	Reasons         []string
}

// Check is one named, weighted signal. Critical checks additionally gate
// validity: a candidate failing any critical check's threshold is rejected
// no matter how well the rest score.
type Check struct {
	Name     string
	Weight   float64
	Critical bool
	// Threshold is the minimum score a critical check must reach.
	Threshold float64
	Fn        func(d *doc) (score float64, reason string)
}

// Judge evaluates candidate transcripts against a check set. The zero value
// is not usable; construct with New or NewStrict. A Judge is immutable after
// construction and safe for concurrent use.
type Judge struct {
	checks     []Check
	minOverall float64
}

// New returns a judge with the default (lenient) check set: accuracy is the
// only gating check, weighted heaviest.
func New() *Judge {
	return &Judge{
		checks: []Check{
			{Name: "accuracy", Weight: 0.40, Critical: true, Threshold: 0.3, Fn: checkAccuracy},
			{Name: "length", Weight: 0.25, Fn: checkLength},
			{Name: "conversation", Weight: 0.20, Fn: checkConversation},
			{Name: "structure", Weight: 0.10, Fn: checkStructure},
			{Name: "negative", Weight: 0.05, Fn: checkNegative},
		},
		minOverall: 0.6,
	}
}

// NewStrict returns a judge with the strict check set: the lenient signals
// plus navigation-pollution, word-density, repetition, and coherence checks,
// with length, conversation, and transcript-structure made gating.
func NewStrict() *Judge {
	return &Judge{
		checks: []Check{
			{Name: "accuracy", Weight: 0.30, Critical: true, Threshold: 0.3, Fn: checkAccuracy},
			{Name: "length", Weight: 0.15, Critical: true, Threshold: 0.5, Fn: checkLength},
			{Name: "conversation", Weight: 0.15, Critical: true, Threshold: 0.3, Fn: checkConversation},
			{Name: "structure", Weight: 0.10, Fn: checkStructure},
			{Name: "negative", Weight: 0.05, Fn: checkNegative},
			{Name: "navigation", Weight: 0.10, Fn: checkNavigation},
			{Name: "word_density", Weight: 0.05, Fn: checkWordDensity},
			{Name: "repetition", Weight: 0.05, Fn: checkRepetition},
			{Name: "coherence", Weight: 0.05, Fn: checkCoherence},
		},
		minOverall: 0.6,
	}
}

// NewWithChecks returns a judge with a caller-supplied check set.
func NewWithChecks(checks []Check, minOverall float64) *Judge {
	return &Judge{checks: checks, minOverall: minOverall}
}

// Evaluate judges content claimed to be a transcript of the given show and
// episode. It is a pure function of its arguments: no I/O, no randomness.
// Garbage input produces a zero verdict, never an error.
func (j *Judge) Evaluate(content, expectedShow, expectedEpisode string) Verdict {
	if strings.TrimSpace(content) == "" {
		return Verdict{
			ComponentScores: map[string]float64{},
			Confidence:      ConfidenceVeryLow,
			Reasons:         []string{"content is empty"},
		}
	}

	d := newDoc(content, expectedShow, expectedEpisode)

	components := make(map[string]float64, len(j.checks))
	var overall float64
	var reasons []string
	criticalOK := true

	for _, c := range j.checks {
		score, reason := c.Fn(d)
		score = clamp01(score)
		components[c.Name] = score
		overall += c.Weight * score
		if reason != "" {
			reasons = append(reasons, reason)
		}
		if c.Critical && score < c.Threshold {
			criticalOK = false
		}
	}
	overall = clamp01(overall)

	accuracy := components["accuracy"]
	return Verdict{
		IsValid:         overall >= j.minOverall && criticalOK,
		OverallScore:    overall,
		ComponentScores: components,
		Confidence:      confidenceFor(overall, accuracy),
		Reasons:         reasons,
	}
}

// Candidate pairs a source label with candidate transcript text for Best.
type Candidate struct {
	Source  string
	Content string
}

// BestResult is the winning candidate from Best, with its verdict.
type BestResult struct {
	Source  string
	Content string
	Verdict Verdict
}

// Best evaluates each candidate independently and returns the one with the
// lexicographically greatest (overall, accuracy) pair. Ties on overall score
// are broken by accuracy, not by candidate order. Returns nil for an empty
// candidate list.
func (j *Judge) Best(candidates []Candidate, expectedShow, expectedEpisode string) *BestResult {
	if len(candidates) == 0 {
		return nil
	}

	results := make([]BestResult, len(candidates))
	for i, c := range candidates {
		results[i] = BestResult{
			Source:  c.Source,
			Content: c.Content,
			Verdict: j.Evaluate(c.Content, expectedShow, expectedEpisode),
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		va, vb := results[a].Verdict, results[b].Verdict
		if va.OverallScore != vb.OverallScore {
			return va.OverallScore > vb.OverallScore
		}
		return va.ComponentScores["accuracy"] > vb.ComponentScores["accuracy"]
	})
	best := results[0]
	return &best
}

func confidenceFor(overall, accuracy float64) Confidence {
	switch {
	case overall >= 0.8 && accuracy >= 0.6:
		return ConfidenceHigh
	case overall >= 0.6 && accuracy >= 0.4:
		return ConfidenceMedium
	case overall >= 0.4 && accuracy >= 0.3:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
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
