// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

// Package textmatch provides multi-pattern string matching for signal
// content scanning. Keyword rules can carry dozens of phrases; scanning
// each signal once against all of them beats a per-keyword substring
// pass as rule sets grow.
package textmatch

import (
	"strings"
	"sync"
)

// AhoCorasick implements the Aho-Corasick string matching algorithm.
// It finds all occurrences of multiple patterns in a text in
// O(n + m + z) time, where n is the text length, m the total pattern
// length and z the number of matches.
//
// Example:
//
//	ac := NewAhoCorasick()
//	ac.AddPattern("recall", "product_safety")
//	ac.AddPattern("lawsuit", "legal")
//	ac.Build()
//
//	matches := ac.Search("Class action lawsuit filed over battery recall")
type AhoCorasick struct {
	mu            sync.RWMutex
	root          *acNode
	patterns      []Pattern
	built         bool
	caseSensitive bool
}

// acNode is a node in the automaton trie.
type acNode struct {
	children map[rune]*acNode
	failure  *acNode
	output   []int // indices of patterns ending at this node
	depth    int
}

// Pattern is a search pattern with optional associated data.
type Pattern struct {
	Text string
	Data any
}

// Match is one pattern occurrence in the scanned text.
type Match struct {
	Pattern  string
	Data     any
	Position int
}

// NewAhoCorasick creates a case-insensitive automaton.
func NewAhoCorasick() *AhoCorasick {
	return &AhoCorasick{root: newACNode(0)}
}

// NewAhoCorasickCaseSensitive creates a case-sensitive automaton.
func NewAhoCorasickCaseSensitive() *AhoCorasick {
	return &AhoCorasick{root: newACNode(0), caseSensitive: true}
}

func newACNode(depth int) *acNode {
	return &acNode{
		children: make(map[rune]*acNode),
		output:   make([]int, 0),
		depth:    depth,
	}
}

// AddPattern adds a pattern. Empty patterns are ignored. Adding after
// Build marks the automaton dirty; call Build again before searching.
func (ac *AhoCorasick) AddPattern(pattern string, data any) {
	if pattern == "" {
		return
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()

	if ac.built {
		ac.built = false
	}
	ac.patterns = append(ac.patterns, Pattern{Text: pattern, Data: data})
}

// AddPatterns adds multiple patterns sharing the same data value.
func (ac *AhoCorasick) AddPatterns(patterns []string, data any) {
	for _, p := range patterns {
		ac.AddPattern(p, data)
	}
}

// Build constructs the automaton. Must be called after adding patterns
// and before searching.
func (ac *AhoCorasick) Build() {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	if ac.built {
		return
	}

	ac.root = newACNode(0)
	for i, p := range ac.patterns {
		ac.insertPattern(i, p.Text)
	}
	ac.buildFailureLinks()
	ac.built = true
}

func (ac *AhoCorasick) insertPattern(index int, pattern string) {
	node := ac.root

	text := pattern
	if !ac.caseSensitive {
		text = strings.ToLower(pattern)
	}

	for _, ch := range text {
		if node.children[ch] == nil {
			node.children[ch] = newACNode(node.depth + 1)
		}
		node = node.children[ch]
	}
	node.output = append(node.output, index)
}

// buildFailureLinks builds failure links with a BFS over the trie.
func (ac *AhoCorasick) buildFailureLinks() {
	queue := make([]*acNode, 0)
	for _, child := range ac.root.children {
		child.failure = ac.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for ch, child := range current.children {
			queue = append(queue, child)

			// Follow failure links to the longest proper suffix.
			fail := current.failure
			for fail != nil && fail.children[ch] == nil {
				fail = fail.failure
			}

			if fail == nil {
				child.failure = ac.root
			} else {
				child.failure = fail.children[ch]
				child.output = append(child.output, child.failure.output...)
			}
		}
	}
}

// Search finds all pattern matches in the text.
func (ac *AhoCorasick) Search(text string) []Match {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	if !ac.built || len(ac.patterns) == 0 {
		return nil
	}

	searchText := text
	if !ac.caseSensitive {
		searchText = strings.ToLower(text)
	}

	var matches []Match
	node := ac.root

	for i, ch := range searchText {
		for node != nil && node.children[ch] == nil {
			node = node.failure
		}
		if node == nil {
			node = ac.root
			continue
		}
		node = node.children[ch]

		for _, patternIdx := range node.output {
			pattern := ac.patterns[patternIdx]
			matches = append(matches, Match{
				Pattern:  pattern.Text,
				Data:     pattern.Data,
				Position: i - len(pattern.Text) + 1,
			})
		}
	}
	return matches
}

// SearchFirst finds the first pattern match in the text. Cheaper than
// Search when only one match is needed.
func (ac *AhoCorasick) SearchFirst(text string) (Match, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	if !ac.built || len(ac.patterns) == 0 {
		return Match{}, false
	}

	searchText := text
	if !ac.caseSensitive {
		searchText = strings.ToLower(text)
	}

	node := ac.root
	for i, ch := range searchText {
		for node != nil && node.children[ch] == nil {
			node = node.failure
		}
		if node == nil {
			node = ac.root
			continue
		}
		node = node.children[ch]

		if len(node.output) > 0 {
			pattern := ac.patterns[node.output[0]]
			return Match{
				Pattern:  pattern.Text,
				Data:     pattern.Data,
				Position: i - len(pattern.Text) + 1,
			}, true
		}
	}
	return Match{}, false
}

// Contains reports whether any pattern occurs in the text.
func (ac *AhoCorasick) Contains(text string) bool {
	_, found := ac.SearchFirst(text)
	return found
}

// PatternCount returns the number of registered patterns.
func (ac *AhoCorasick) PatternCount() int {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return len(ac.patterns)
}

// KeywordMatcher wraps a built automaton over a fixed keyword list. It
// is what rule evaluation holds per rule: build once at rule creation,
// scan every signal after that.
type KeywordMatcher struct {
	ac *AhoCorasick
}

// NewKeywordMatcher builds a matcher from a keyword list. Empty
// keywords are skipped; a list with no usable keywords returns a
// matcher that never matches.
func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	ac := NewAhoCorasick()
	ac.AddPatterns(keywords, nil)
	ac.Build()
	return &KeywordMatcher{ac: ac}
}

// Match returns all keyword occurrences in the text.
func (m *KeywordMatcher) Match(text string) []Match {
	return m.ac.Search(text)
}

// Contains reports whether any keyword occurs in the text.
func (m *KeywordMatcher) Contains(text string) bool {
	return m.ac.Contains(text)
}
