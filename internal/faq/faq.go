// Package faq answers common advising questions ("how do I drop a
// course", "what is a corequisite") from a YAML corpus. Retrieval is
// vector search over Qdrant when available, with a lexical fallback.
package faq

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoAnswer is returned when no FAQ entry is close enough to the query.
var ErrNoAnswer = errors.New("I'm sorry, I don't have an answer to that question yet. Please try rephrasing or contact your academic advisor.")

// Entry is a single question/answer pair in the corpus.
type Entry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Load reads the FAQ corpus from a YAML file. Entries with an empty
// question or answer are rejected.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq corpus %s: %w", path, err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse faq corpus %s: %w", path, err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("faq corpus %s: entry %d has an empty question or answer", path, i)
		}
	}
	return entries, nil
}

// lexicalCutoff is the minimum token overlap for a lexical match.
const lexicalCutoff = 0.4

// tokenize lowercases and splits a question into word tokens.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?\"'()")
		if w != "" {
			tokens[w] = true
		}
	}
	return tokens
}

// overlap computes the Jaccard similarity of two token sets.
func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for w := range a {
		if b[w] {
			common++
		}
	}
	union := len(a) + len(b) - common
	return float64(common) / float64(union)
}

// lexicalMatch returns the best entry by token overlap, or an error when
// nothing clears the cutoff. Ties break toward the earlier entry.
func lexicalMatch(entries []Entry, query string) (*Entry, float64, error) {
	q := tokenize(query)
	bestScore := 0.0
	bestIdx := -1
	for i := range entries {
		s := overlap(q, tokenize(entries[i].Question))
		if s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < lexicalCutoff {
		return nil, 0, ErrNoAnswer
	}
	return &entries[bestIdx], bestScore, nil
}

// sortedQuestions returns the corpus questions in sorted order. Used for
// the help listing.
func sortedQuestions(entries []Entry) []string {
	qs := make([]string, len(entries))
	for i, e := range entries {
		qs[i] = e.Question
	}
	sort.Strings(qs)
	return qs
}
