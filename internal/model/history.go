package model

import (
	"sort"
	"time"
)

// HistoryEntry is one accepted extraction for an entity
type HistoryEntry struct {
	Name       string     `json:"name"`
	Source     Source     `json:"source"`
	Confidence Confidence `json:"confidence"`
	SourceURL  string     `json:"source_url,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ExtractionHistory accumulates accepted extractions per entity id.
// It is owned by one crawl session and is not safe for concurrent use.
type ExtractionHistory struct {
	entries map[string][]HistoryEntry
}

// NewExtractionHistory creates an empty history
func NewExtractionHistory() *ExtractionHistory {
	return &ExtractionHistory{
		entries: make(map[string][]HistoryEntry),
	}
}

// Record appends a result to its entity's history. Results without an entity id are ignored.
func (h *ExtractionHistory) Record(r ExtractionResult) {
	id := r.Metadata.EntityID
	if id == "" {
		return
	}
	h.entries[id] = append(h.entries[id], HistoryEntry{
		Name:       r.Name,
		Source:     r.Source,
		Confidence: r.Confidence,
		SourceURL:  r.Metadata.SourceURL,
		Timestamp:  r.Metadata.Timestamp,
	})
}

// Latest returns the most recent entry for an entity
func (h *ExtractionHistory) Latest(entityID string) (HistoryEntry, bool) {
	entries := h.entries[entityID]
	if len(entries) == 0 {
		return HistoryEntry{}, false
	}
	latest := entries[0]
	for _, e := range entries[1:] {
		if !e.Timestamp.Before(latest.Timestamp) {
			latest = e
		}
	}
	return latest, true
}

// Entries returns an entity's history in timestamp order
func (h *ExtractionHistory) Entries(entityID string) []HistoryEntry {
	entries := append([]HistoryEntry(nil), h.entries[entityID]...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries
}

// Len returns the number of entities with at least one entry
func (h *ExtractionHistory) Len() int {
	return len(h.entries)
}
