package quality

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// elementCounts holds per-type counts of structural elements in the markup.
type elementCounts map[string]int

// Weights per structural element type for the depth score.
var elementWeights = map[string]float64{
	"headings": 3,
	"lists":    2,
	"code":     2,
	"images":   1,
	"links":    1,
	"tables":   2,
}

// perElementCap is where additional occurrences of one element type stop
// adding to the depth score.
const perElementCap = 5

func countElements(content string) elementCounts {
	counts := elementCounts{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return counts
	}
	counts["headings"] = doc.Find("h1, h2, h3, h4, h5, h6").Length()
	counts["lists"] = doc.Find("ul, ol").Length()
	counts["code"] = doc.Find("pre, code").Length()
	counts["images"] = doc.Find("img").Length()
	counts["links"] = doc.Find("a[href]").Length()
	counts["tables"] = doc.Find("table").Length()
	return counts
}

// depthScore is achieved weight over maximum possible weight, with counts
// capped per element type.
func depthScore(elements elementCounts) float64 {
	var achieved, possible float64
	for name, weight := range elementWeights {
		count := elements[name]
		if count > perElementCap {
			count = perElementCap
		}
		achieved += weight * float64(count)
		possible += weight * perElementCap
	}
	if possible == 0 {
		return 0
	}
	return achieved / possible
}

// readabilityScore maps an approximate Flesch-Kincaid grade level onto 0-1.
// Grade 0 scores 1.0, grade 20 and above scores 0.
func readabilityScore(text string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	grade := 0.39*(float64(len(words))/float64(sentences)) +
		11.8*(float64(syllables)/float64(len(words))) - 15.59
	return clamp01(1 - grade/20)
}

// countSyllables approximates syllables by counting vowel groups, with a
// silent-e adjustment. Every word counts as at least one syllable.
func countSyllables(word string) int {
	word = strings.ToLower(strings.Trim(word, ".,!?;:\"'()"))
	if word == "" {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

var evidencePhrases = []string{
	"according to", "research shows", "studies show", "study found",
	"data from", "survey", "published in", "experts say", "evidence",
	"statistics", "reported by",
}

// maxEvidenceDensity is the per-1000-words phrase density treated as fully
// sourced content.
const maxEvidenceDensity = 5.0

func accuracyScore(text string, wordCount int) float64 {
	if wordCount == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, p := range evidencePhrases {
		hits += strings.Count(lower, p)
	}
	density := float64(hits) / float64(wordCount) * 1000
	return clamp01(density / maxEvidenceDensity)
}

var biasPhrases = map[string][]string{
	"left-leaning": {
		"progressive values", "social justice", "systemic inequality",
		"corporate greed", "far-right",
	},
	"right-leaning": {
		"traditional values", "radical left", "mainstream media",
		"government overreach", "woke",
	},
	"sensationalist": {
		"shocking", "you won't believe", "destroyed", "slams",
		"outrageous", "unbelievable", "mind-blowing", "explosive",
	},
}

// maxBiasDensity is the per-1000-words density at which a category counts
// as maximally biased.
const maxBiasDensity = 5.0

// biasScores computes an independent 0-1 density score per category. The
// caller combines them by averaging and inverting.
func biasScores(text string, wordCount int) map[string]float64 {
	scores := make(map[string]float64, len(biasPhrases))
	lower := strings.ToLower(text)
	for category, phrases := range biasPhrases {
		if wordCount == 0 {
			scores[category] = 0
			continue
		}
		hits := 0
		for _, p := range phrases {
			hits += strings.Count(lower, p)
		}
		density := float64(hits) / float64(wordCount) * 1000
		scores[category] = clamp01(density / maxBiasDensity)
	}
	return scores
}

// minCompleteWords is the word count above which content counts as
// substantial for the completeness check.
const minCompleteWords = 500

// completenessScore is the fraction of satisfied completeness checks. The
// metadata check only enters the denominator when metadata was supplied, so
// a document with no metadata to check is not penalized for lacking it.
func completenessScore(title string, words []string, elements elementCounts, metadata map[string]string) float64 {
	checks, passed := 0, 0

	checks++
	if strings.TrimSpace(title) != "" {
		passed++
	}

	checks++
	if len(words) > 0 {
		passed++
	}

	checks++
	if len(words) >= minCompleteWords {
		passed++
	}

	checks++
	distinct := 0
	for _, count := range elements {
		if count > 0 {
			distinct++
		}
	}
	if distinct >= 3 {
		passed++
	}

	if len(metadata) > 0 {
		checks++
		present := 0
		for _, key := range []string{"author", "date", "source"} {
			if strings.TrimSpace(metadata[key]) != "" {
				present++
			}
		}
		if present >= 2 {
			passed++
		}
	}

	return float64(passed) / float64(checks)
}
