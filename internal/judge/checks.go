package judge

import (
	"regexp"
	"strings"
)

// doc is the pre-tokenized view of one candidate shared by all checks.
type doc struct {
	content string
	lower   string
	words   []string
	show    string
	episode string
}

func newDoc(content, show, episode string) *doc {
	lower := strings.ToLower(content)
	return &doc{
		content: content,
		lower:   lower,
		words:   strings.Fields(lower),
		show:    strings.ToLower(strings.TrimSpace(show)),
		episode: strings.ToLower(strings.TrimSpace(episode)),
	}
}

const (
	// A transcript of a full episode rarely fits under this many characters.
	minTranscriptChars = 5000
	// Beyond this, content likely concatenates multiple episodes or scraped junk.
	maxComfortableChars = 150000
)

func checkLength(d *doc) (float64, string) {
	n := len(d.content)
	switch {
	case n < minTranscriptChars:
		return 0, "content too short for a full transcript"
	case n <= maxComfortableChars:
		return 1, ""
	default:
		score := 1 - float64(n-maxComfortableChars)/300000
		if score < 0.3 {
			score = 0.3
		}
		return score, "content unusually long, possibly multiple episodes"
	}
}

var timestampRe = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\b`)

var segmentMarkers = []string{"episode", "part ", "segment", "chapter"}

func checkStructure(d *doc) (float64, string) {
	markers := len(timestampRe.FindAllString(d.content, -1))
	for _, m := range segmentMarkers {
		markers += strings.Count(d.lower, m)
	}
	for _, line := range strings.Split(d.content, "\n") {
		if strings.HasSuffix(strings.TrimSpace(line), "?") {
			markers++
		}
	}
	if markers == 0 {
		return 0, "no transcript structure markers found"
	}
	return min(1, float64(markers)/20), ""
}

var fillerWords = map[string]struct{}{
	"yeah": {}, "okay": {}, "right": {}, "well": {}, "gonna": {},
	"actually": {}, "really": {}, "so": {},
	"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {},
}

var fillerPhrases = []string{"you know", "i think", "i mean", "let's", "kind of", "sort of"}

// conversationalTarget is the filler-to-word ratio treated as fully
// conversational speech.
const conversationalTarget = 0.04

func checkConversation(d *doc) (float64, string) {
	if len(d.words) == 0 {
		return 0, "no words in content"
	}

	count := 0
	for _, w := range d.words {
		w = strings.Trim(w, ".,!?;:\"'")
		if _, ok := fillerWords[w]; ok {
			count++
		}
	}
	for _, p := range fillerPhrases {
		count += strings.Count(d.lower, p)
	}

	ratio := float64(count) / float64(len(d.words))
	score := min(1, ratio/conversationalTarget)
	if score < 0.3 {
		return score, "little conversational language"
	}
	return score, ""
}

var indicatorPhrases = []string{
	"transcript", "welcome to", "my guest", "thanks for listening",
	"today's episode", "in this episode", "joining me",
}

var episodeStopwords = map[string]struct{}{
	"with": {}, "from": {}, "this": {}, "that": {}, "what": {},
	"when": {}, "where": {}, "your": {}, "about": {},
	"episode": {}, "podcast": {}, "show": {},
}

func checkAccuracy(d *doc) (float64, string) {
	var score float64
	var reason string

	if showPresent(d) {
		score += 0.4
	} else {
		reason = "expected show name not found in content"
	}

	terms := significantTerms(d.episode)
	if len(terms) > 0 {
		matched := 0
		for _, t := range terms {
			if strings.Contains(d.lower, t) {
				matched++
			}
		}
		score += 0.4 * float64(matched) / float64(len(terms))
	} else if len(d.content) >= minTranscriptChars {
		// No usable title terms; fall back to a weaker length-based credit.
		score += 0.2
	}

	hits := 0
	for _, p := range indicatorPhrases {
		hits += strings.Count(d.lower, p)
	}
	score += min(0.2, 0.04*float64(hits))

	return min(1, score), reason
}

// showPresent checks the show name and its normalized variants (stripped of
// "the", "podcast", and "with ..." suffixes) against the content.
func showPresent(d *doc) bool {
	if d.show == "" {
		return false
	}
	variants := []string{d.show}
	v := strings.TrimPrefix(d.show, "the ")
	variants = append(variants, v)
	v = strings.TrimSpace(strings.ReplaceAll(v, "podcast", ""))
	variants = append(variants, v)
	if i := strings.Index(v, " with "); i > 0 {
		variants = append(variants, strings.TrimSpace(v[:i]))
	}
	for _, variant := range variants {
		if len(variant) >= 3 && strings.Contains(d.lower, variant) {
			return true
		}
	}
	return false
}

func significantTerms(title string) []string {
	var terms []string
	for _, w := range strings.Fields(title) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) < 4 {
			continue
		}
		if _, stop := episodeStopwords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

var htmlTagRe = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

var antiPatterns = []string{
	"click here", "subscribe now", "privacy policy", "terms of service",
	"cookie", "all rights reserved", "sign up", "advertisement",
}

func checkNegative(d *doc) (float64, string) {
	hits := len(htmlTagRe.FindAllString(d.content, -1))
	for _, p := range antiPatterns {
		hits += strings.Count(d.lower, p)
	}
	score := clamp01(1 - float64(hits)/5)
	if score < 0.5 {
		return score, "content contains boilerplate anti-patterns"
	}
	return score, ""
}

var navPatterns = []string{
	"home", "menu", "log in", "login", "sign in", "next page",
	"previous", "contact us", "about us", "faq",
}

func checkNavigation(d *doc) (float64, string) {
	hits := 0
	for _, p := range navPatterns {
		hits += strings.Count(d.lower, p)
	}
	score := clamp01(1 - float64(hits)/8)
	if score < 0.5 {
		return score, "content looks like website navigation"
	}
	return score, ""
}

func checkWordDensity(d *doc) (float64, string) {
	if len(d.words) == 0 {
		return 0, ""
	}
	avg := float64(len(d.content)) / float64(len(d.words))
	switch {
	case avg >= 3 && avg <= 9:
		return 1, ""
	case avg < 3:
		return avg / 3, "words are implausibly short"
	default:
		return clamp01(1 - (avg-9)/9), "words are implausibly long"
	}
}

func checkRepetition(d *doc) (float64, string) {
	var lines []string
	for _, line := range strings.Split(d.lower, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 20 {
			lines = append(lines, line)
		}
	}
	if len(lines) < 3 {
		return 1, ""
	}
	unique := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		unique[line] = struct{}{}
	}
	score := float64(len(unique)) / float64(len(lines))
	if score < 0.5 {
		return score, "content repeats the same chunks"
	}
	return score, ""
}

var commonWords = []string{"the", "and", "to", "of", "a", "in"}

func checkCoherence(d *doc) (float64, string) {
	sentences := 0
	for _, r := range d.content {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 || len(d.words) == 0 {
		return 0, "content has no sentence structure"
	}

	avgLen := float64(len(d.words)) / float64(sentences)
	sentencePart := 1.0
	switch {
	case avgLen < 3:
		sentencePart = avgLen / 3
	case avgLen > 40:
		sentencePart = clamp01(1 - (avgLen-40)/40)
	}

	present := 0
	for _, w := range commonWords {
		if strings.Contains(d.lower, " "+w+" ") {
			present++
		}
	}
	commonPart := float64(present) / float64(len(commonWords))

	score := 0.5*sentencePart + 0.5*commonPart
	if score < 0.5 {
		return score, "content does not read like natural language"
	}
	return score, ""
}
