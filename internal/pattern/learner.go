// Package pattern records which DOM selectors produce which restaurant fields
// and ranks them so later pages of the same template are extracted faster.
//
// Every type here is owned by one crawl session. None of them synchronize
// internally; callers process a session's pages sequentially.
package pattern

import (
	"sort"

	"github.com/ppiankov/menuscope/internal/model"
)

// Record holds the observation counters for one (field, selector) pair
type Record struct {
	Field     string `json:"field"`
	Selector  string `json:"selector"`
	Attempts  int    `json:"attempts"`
	Successes int    `json:"successes"`
}

// SuccessRate returns successes/attempts, or 0 before the first attempt
func (r Record) SuccessRate() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return float64(r.Successes) / float64(r.Attempts)
}

type recordKey struct {
	field    string
	selector string
}

// rankRecords orders by success rate, then attempts, then selector for stable output
func rankRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := records[i].SuccessRate(), records[j].SuccessRate()
		if ri != rj {
			return ri > rj
		}
		if records[i].Attempts != records[j].Attempts {
			return records[i].Attempts > records[j].Attempts
		}
		return records[i].Selector < records[j].Selector
	})
}

// Learner counts selector outcomes per field
type Learner struct {
	records map[recordKey]*Record
}

// NewLearner creates an empty learner
func NewLearner() *Learner {
	return &Learner{
		records: make(map[recordKey]*Record),
	}
}

// Record notes one attempt of selector for field
func (l *Learner) Record(field, selector string, success bool) {
	key := recordKey{field: field, selector: selector}
	rec, ok := l.records[key]
	if !ok {
		rec = &Record{Field: field, Selector: selector}
		l.records[key] = rec
	}
	rec.Attempts++
	if success {
		rec.Successes++
	}
}

// Lookup returns the counters for one pair
func (l *Learner) Lookup(field, selector string) (Record, bool) {
	rec, ok := l.records[recordKey{field: field, selector: selector}]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Ranked returns every selector seen for field, best first
func (l *Learner) Ranked(field string) []Record {
	var out []Record
	for key, rec := range l.records {
		if key.field == field {
			out = append(out, *rec)
		}
	}
	rankRecords(out)
	return out
}

// Top returns up to n selectors for field in rank order
func (l *Learner) Top(field string, n int) []string {
	var selectors []string
	for _, rec := range l.Ranked(field) {
		if len(selectors) >= n {
			break
		}
		selectors = append(selectors, rec.Selector)
	}
	return selectors
}

// Records returns a snapshot of every pair, ranked within field order
func (l *Learner) Records() []Record {
	fields := make(map[string]bool)
	for key := range l.records {
		fields[key.field] = true
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	var out []Record
	for _, f := range names {
		out = append(out, l.Ranked(f)...)
	}
	return out
}

type pageRecordKey struct {
	pageType model.PageType
	recordKey
}

// CrossPageAnalyzer partitions selector bookkeeping by page type
type CrossPageAnalyzer struct {
	records map[pageRecordKey]*Record
}

// NewCrossPageAnalyzer creates an empty analyzer
func NewCrossPageAnalyzer() *CrossPageAnalyzer {
	return &CrossPageAnalyzer{
		records: make(map[pageRecordKey]*Record),
	}
}

// Record notes one attempt of selector for field on a page of pageType
func (a *CrossPageAnalyzer) Record(pageType model.PageType, field, selector string, success bool) {
	key := pageRecordKey{pageType: pageType, recordKey: recordKey{field: field, selector: selector}}
	rec, ok := a.records[key]
	if !ok {
		rec = &Record{Field: field, Selector: selector}
		a.records[key] = rec
	}
	rec.Attempts++
	if success {
		rec.Successes++
	}
}

// SuccessRates returns field -> selector -> success rate for one page type
func (a *CrossPageAnalyzer) SuccessRates(pageType model.PageType) map[string]map[string]float64 {
	table := make(map[string]map[string]float64)
	for key, rec := range a.records {
		if key.pageType != pageType {
			continue
		}
		if table[key.field] == nil {
			table[key.field] = make(map[string]float64)
		}
		table[key.field][key.selector] = rec.SuccessRate()
	}
	return table
}

// Ranked returns the selectors seen for field on pageType, best first
func (a *CrossPageAnalyzer) Ranked(pageType model.PageType, field string) []Record {
	var out []Record
	for key, rec := range a.records {
		if key.pageType == pageType && key.field == field {
			out = append(out, *rec)
		}
	}
	rankRecords(out)
	return out
}

// PageTypes lists the page types observed so far
func (a *CrossPageAnalyzer) PageTypes() []model.PageType {
	seen := make(map[model.PageType]bool)
	var out []model.PageType
	for key := range a.records {
		if !seen[key.pageType] {
			seen[key.pageType] = true
			out = append(out, key.pageType)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
