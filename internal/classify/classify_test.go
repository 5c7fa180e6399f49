// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/content-engine/pkg/types"
)

func TestClassifyType(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  types.QueryType
	}{
		{"news", "Latest casino regulation news in the UK", types.QueryNews},
		{"comparison", "Betway vs 888 casino", types.QueryComparison},
		{"tutorial", "How to withdraw winnings from an online casino", types.QueryTutorial},
		{"review", "Is Mr Green legit? Full review", types.QueryReview},
		{"promotional", "Best welcome bonus offers", types.QueryPromotional},
		{"technical", "What RTP and volatility does Starburst have", types.QueryTechnical},
		{"factual", "What is a progressive jackpot", types.QueryFactual},
		{"general", "casino games", types.QueryGeneral},
		{"empty", "", types.QueryGeneral},
		{"news wins over comparison", "breaking: casino A vs casino B", types.QueryNews},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query, types.Hints{})
			assert.Equal(t, tt.want, got.Type)
		})
	}
}

func TestClassifyExpertise(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  types.Expertise
	}{
		{"expert", "expert guide to blackjack card counting", types.ExpertiseExpert},
		{"advanced", "advanced poker strategy", types.ExpertiseAdvanced},
		{"novice", "I have never played roulette", types.ExpertiseNovice},
		{"beginner", "roulette basics for beginners", types.ExpertiseBeginner},
		{"default", "roulette odds", types.ExpertiseIntermediate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query, types.Hints{})
			assert.Equal(t, tt.want, got.Expertise)
		})
	}
}

func TestClassifyHintsOverride(t *testing.T) {
	q := Classify("casino games", types.Hints{
		Type:      types.QueryReview,
		Expertise: types.ExpertiseExpert,
		Tenant:    "acme",
		Locale:    "en-GB",
	})
	assert.Equal(t, types.QueryReview, q.Type)
	assert.Equal(t, types.ExpertiseExpert, q.Expertise)
	assert.Equal(t, types.FormatStructured, q.Format)
	assert.Equal(t, "acme", q.Tenant)
	assert.Equal(t, "en-GB", q.Locale)
}

func TestClassifyIgnoresUnknownHints(t *testing.T) {
	q := Classify("how to play blackjack", types.Hints{Type: "weird", Expertise: "guru"})
	assert.Equal(t, types.QueryTutorial, q.Type)
	assert.Equal(t, types.ExpertiseIntermediate, q.Expertise)
	assert.Equal(t, types.FormatStepByStep, q.Format)
}

func TestClassifyDeterministic(t *testing.T) {
	inputs := []string{
		"Betway vs 888 casino",
		"  What is   a progressive JACKPOT?? ",
		"latest bonus news 2025",
		"ｆｕｌｌｗｉｄｔｈ review",
	}
	for _, in := range inputs {
		first := Classify(in, types.Hints{Locale: "en"})
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, Classify(in, types.Hints{Locale: "en"}), "input %q", in)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello   World  ", "hello world"},
		{"What is RTP???", "what is rtp"},
		{"ｆｕｌｌｗｉｄｔｈ", "fullwidth"},
		{"tabs\tand\nnewlines.", "tabs and newlines"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestTimeSensitive(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"latest slot releases", true},
		{"best casinos 2025", true},
		{"new releases from NetEnt", true},
		{"new slots this autumn", true},
		{"blackjack rules", false},
		{"new to poker", false},
		{"is this a new account bonus", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query, types.Hints{}).TimeSensitive)
		})
	}
	assert.Equal(t, types.ExpertiseBeginner, Classify("new to poker", types.Hints{}).Expertise)
}

func TestTokens(t *testing.T) {
	toks := Tokens("The RTP of a slot, the RTP!")
	assert.Contains(t, toks, "rtp")
	assert.Contains(t, toks, "slot")
	assert.Contains(t, toks, "the")
	assert.NotContains(t, toks, "of")
	assert.Len(t, toks, 3)
}
