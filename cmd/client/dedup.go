package main

import (
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// TranslationDeduper suppresses near-duplicate translated lines. Consecutive
// audio chunks often overlap at their boundaries, so the same phrase can come
// back twice; a ring of recent lines compared by edit distance filters those.
type TranslationDeduper struct {
	lines     []string
	head      int
	size      int
	capacity  int
	threshold float64
	mu        sync.Mutex
}

// NewTranslationDeduper creates a deduper remembering the last capacity lines.
// threshold is the similarity ratio above which a line counts as a repeat.
func NewTranslationDeduper(capacity int, threshold float64) *TranslationDeduper {
	if capacity <= 0 {
		capacity = 1
	}

	return &TranslationDeduper{
		lines:     make([]string, capacity),
		capacity:  capacity,
		threshold: threshold,
	}
}

// Seen reports whether line repeats a recent one. New lines are remembered.
func (d *TranslationDeduper) Seen(line string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	normalized := normalizeLine(line)
	for i := 0; i < d.size; i++ {
		if similar(normalized, normalizeLine(d.lines[i]), d.threshold) {
			return true
		}
	}

	d.lines[d.head] = line
	d.head = (d.head + 1) % d.capacity
	if d.size < d.capacity {
		d.size++
	}
	return false
}

func normalizeLine(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}

// similar compares two normalized lines by Levenshtein similarity ratio.
func similar(a, b string, threshold float64) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}

	distance := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	similarity := 1.0 - (float64(distance) / float64(maxLen))
	return similarity >= threshold
}
