package pattern

import (
	"math"
	"sort"
)

// ConfidenceCalculator keeps the full outcome history per (field, selector)
type ConfidenceCalculator struct {
	history map[recordKey][]bool
}

// NewConfidenceCalculator creates an empty calculator
func NewConfidenceCalculator() *ConfidenceCalculator {
	return &ConfidenceCalculator{
		history: make(map[recordKey][]bool),
	}
}

// Record appends one outcome
func (c *ConfidenceCalculator) Record(field, selector string, success bool) {
	key := recordKey{field: field, selector: selector}
	c.history[key] = append(c.history[key], success)
}

// Confidence returns successes/len(history), 0 with no history
func (c *ConfidenceCalculator) Confidence(field, selector string) float64 {
	outcomes := c.history[recordKey{field: field, selector: selector}]
	if len(outcomes) == 0 {
		return 0
	}
	successes := 0
	for _, ok := range outcomes {
		if ok {
			successes++
		}
	}
	return float64(successes) / float64(len(outcomes))
}

// History returns a copy of the outcome sequence
func (c *ConfidenceCalculator) History(field, selector string) []bool {
	return append([]bool(nil), c.history[recordKey{field: field, selector: selector}]...)
}

// Candidate is a selector with its observed accuracy and volume
type Candidate struct {
	Field       string  `json:"field"`
	Selector    string  `json:"selector"`
	SuccessRate float64 `json:"success_rate"`
	UsageCount  int     `json:"usage_count"`
	Score       float64 `json:"score"`
}

// Optimizer ranks candidate selectors by accuracy weighted by volume
type Optimizer struct{}

// NewOptimizer creates a new optimizer
func NewOptimizer() *Optimizer {
	return &Optimizer{}
}

// Score computes success_rate * (1 + min(usage_count/100, 1))
func (o *Optimizer) Score(successRate float64, usageCount int) float64 {
	if usageCount < 0 {
		usageCount = 0
	}
	volume := math.Min(float64(usageCount)/100, 1)
	return successRate * (1 + volume)
}

// Optimize scores every candidate and returns them best first
func (o *Optimizer) Optimize(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = o.Score(c.SuccessRate, c.UsageCount)
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// FromLearner converts a learner's records into optimizer candidates
func (o *Optimizer) FromLearner(l *Learner) []Candidate {
	records := l.Records()
	out := make([]Candidate, 0, len(records))
	for _, r := range records {
		out = append(out, Candidate{
			Field:       r.Field,
			Selector:    r.Selector,
			SuccessRate: r.SuccessRate(),
			UsageCount:  r.Attempts,
		})
	}
	return o.Optimize(out)
}
