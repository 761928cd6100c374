package feed

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		rules       []Rule
		want        bool
	}{
		{
			name:  "no rules passes everything",
			title: "Anything Goes",
			want:  true,
		},
		{
			name:  "include substring match",
			title: "Deep Dive: Kubernetes",
			rules: []Rule{{Kind: RuleInclude, Pattern: "kubernetes"}},
			want:  true,
		},
		{
			name:  "include substring no match",
			title: "Cooking Tips",
			rules: []Rule{{Kind: RuleInclude, Pattern: "kubernetes"}},
			want:  false,
		},
		{
			name:        "include matches description",
			title:       "Episode 12",
			description: "We discuss Kubernetes upgrades.",
			rules:       []Rule{{Kind: RuleInclude, Pattern: "kubernetes"}},
			want:        true,
		},
		{
			name:  "multiple includes use or logic",
			title: "All About Go",
			rules: []Rule{
				{Kind: RuleInclude, Pattern: "rust"},
				{Kind: RuleInclude, Pattern: "go"},
			},
			want: true,
		},
		{
			name:  "exclude wins over include",
			title: "Kubernetes Trailer",
			rules: []Rule{
				{Kind: RuleInclude, Pattern: "kubernetes"},
				{Kind: RuleExclude, Pattern: "trailer"},
			},
			want: false,
		},
		{
			name:  "include regex",
			title: "Season 3 Episode 14",
			rules: []Rule{{Kind: RuleIncludeRe, Pattern: `episode \d+`}},
			want:  true,
		},
		{
			name:  "exclude regex",
			title: "Bonus: Q&A Session",
			rules: []Rule{{Kind: RuleExcludeRe, Pattern: `^bonus`}},
			want:  false,
		},
		{
			name:  "case insensitive",
			title: "KUBERNETES NEWS",
			rules: []Rule{{Kind: RuleInclude, Pattern: "Kubernetes"}},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.title, tt.description, tt.rules)
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"valid include", Rule{Kind: RuleInclude, Pattern: "go"}, false},
		{"valid regex", Rule{Kind: RuleIncludeRe, Pattern: `episode \d+`}, false},
		{"empty pattern", Rule{Kind: RuleInclude, Pattern: "  "}, true},
		{"broken regex", Rule{Kind: RuleExcludeRe, Pattern: "("}, true},
		{"unknown kind", Rule{Kind: "fuzzy", Pattern: "go"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(tt.rule)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
