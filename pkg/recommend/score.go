// Package recommend scores catalog skills against a free-text prompt and
// picks the single best match.
package recommend

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/openskills/openskills/pkg/catalog"
)

// Field weights applied per matching prompt token.
const (
	nameWeight        = 3.0
	descriptionWeight = 2.0
	tagWeight         = 2.5
	categoryWeight    = 1.5
	phraseBonus       = 5.0

	minTokenLength = 3
)

// ScoredMatch pairs a skill with its relevance score.
type ScoredMatch struct {
	Skill catalog.Skill
	Score float64
}

// Tokenize lowercases prompt, splits it on whitespace and drops tokens
// shorter than three characters.
func Tokenize(prompt string) []string {
	fields := strings.Fields(strings.ToLower(prompt))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Score computes the relevance of skill for prompt.
//
// Tag matching is bidirectional and summed over every (tag, token) pair, so a
// token overlapping several tags, or repeated in the prompt, is counted each
// time.
func Score(prompt string, skill catalog.Skill) float64 {
	promptLower := strings.ToLower(prompt)
	return scoreTokens(promptLower, Tokenize(promptLower), skill)
}

func scoreTokens(promptLower string, tokens []string, skill catalog.Skill) float64 {
	var score float64

	name := strings.ToLower(skill.Name)
	description := strings.ToLower(skill.Description)
	category := strings.ToLower(skill.Category)

	for _, token := range tokens {
		if strings.Contains(name, token) {
			score += nameWeight
		}
		if strings.Contains(description, token) {
			score += descriptionWeight
		}
		if strings.Contains(category, token) {
			score += categoryWeight
		}
	}

	for _, tag := range skill.Tags {
		tag = strings.ToLower(tag)
		for _, token := range tokens {
			if strings.Contains(tag, token) || strings.Contains(token, tag) {
				score += tagWeight
			}
		}
	}

	if strings.Contains(description, promptLower) {
		score += phraseBonus
	}

	return score
}

// Rank scores every skill and returns those scoring above zero, best first.
// Equal scores keep catalog order.
func Rank(prompt string, skills []catalog.Skill) []ScoredMatch {
	promptLower := strings.ToLower(prompt)
	tokens := Tokenize(promptLower)

	matches := make([]ScoredMatch, 0, len(skills))
	for _, skill := range skills {
		score := scoreTokens(promptLower, tokens, skill)
		if score > 0 {
			matches = append(matches, ScoredMatch{Skill: skill, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}
