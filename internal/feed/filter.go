package feed

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleKind defines the type of filter rule.
type RuleKind string

// Supported rule kinds.
const (
	RuleInclude   RuleKind = "include"
	RuleExclude   RuleKind = "exclude"
	RuleIncludeRe RuleKind = "include_re"
	RuleExcludeRe RuleKind = "exclude_re"
)

// Rule is a single filtering rule applied to discovered items.
type Rule struct {
	Kind    RuleKind `yaml:"kind"`
	Pattern string   `yaml:"pattern"`
}

// Match checks whether an item passes the given rules. With no rules every
// item passes. Include rules use OR logic (at least one must match),
// exclude rules use AND logic (none may match).
func Match(title, description string, rules []Rule) bool {
	if len(rules) == 0 {
		return true
	}

	text := strings.ToLower(title + " " + description)
	hasIncludes := false
	anyIncludeMatched := false

	for _, r := range rules {
		switch r.Kind {
		case RuleInclude, RuleIncludeRe:
			hasIncludes = true
			if matchesRule(text, r) {
				anyIncludeMatched = true
			}
		case RuleExclude, RuleExcludeRe:
			if matchesRule(text, r) {
				return false
			}
		}
	}

	if hasIncludes && !anyIncludeMatched {
		return false
	}
	return true
}

func matchesRule(text string, r Rule) bool {
	switch r.Kind {
	case RuleInclude, RuleExclude:
		return strings.Contains(text, strings.ToLower(r.Pattern))
	case RuleIncludeRe, RuleExcludeRe:
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return false
}

// ValidateRule checks that a rule's pattern is usable, compiling it when
// the kind is a regular expression.
func ValidateRule(r Rule) error {
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("empty pattern")
	}
	switch r.Kind {
	case RuleIncludeRe, RuleExcludeRe:
		if _, err := regexp.Compile("(?i)" + r.Pattern); err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
	case RuleInclude, RuleExclude:
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	return nil
}
