package reconcile

import (
	"testing"
	"time"

	"github.com/ppiankov/menuscope/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataCorrelator_MergeParentChild(t *testing.T) {
	parent := record("market", model.SourceJSONLD, t0, "Night Market")
	parent.Address = "5 Canal St"
	parent.Cuisine = "Thai"
	parent.SocialMedia = []string{"https://x.com/market", "https://ig.com/shared"}
	parent.MenuItems["Drinks"] = []string{"Tea"}
	parent.MenuItems["Mains"] = []string{"Parent Curry"}

	child := record("stall-7", model.SourceMicrodata, t0.Add(time.Hour), "Stall 7")
	child.Phone = "555-0707"
	child.Cuisine = "Lao"
	child.SocialMedia = []string{"https://ig.com/shared"}
	child.MenuItems["Mains"] = []string{"Laap"}

	merged := NewDataCorrelator().MergeParentChild(parent, child)

	assert.Equal(t, "Stall 7", merged.Name)
	assert.Equal(t, "555-0707", merged.Phone)
	assert.Equal(t, "Lao", merged.Cuisine)
	assert.Equal(t, "5 Canal St", merged.Address)
	assert.Equal(t, []string{"https://ig.com/shared", "https://x.com/market"}, merged.SocialMedia)
	assert.Equal(t, map[string][]string{"Mains": {"Laap"}, "Drinks": {"Tea"}}, merged.MenuItems)
	assert.Equal(t, "stall-7", merged.EntityID())
	assert.Equal(t, "market", merged.Metadata.ParentID)
	assert.True(t, merged.Metadata.ParentCorrelation)

	assert.Equal(t, []string{"Laap"}, child.MenuItems["Mains"], "inputs are not modified")
	assert.Len(t, child.SocialMedia, 1)
}

func TestEntityCorrelationTracker(t *testing.T) {
	tr := NewEntityCorrelationTracker()
	a := record("a", model.SourceJSONLD, t0, "Blue Door")

	tr.Track("Blue Door", "page-1", a, t0)
	tr.Track("Blue Door", "page-2", a, t0.Add(time.Hour))
	tr.Track("blue door", "page-3", a, t0)
	tr.Track("", "page-4", a, t0)

	mentions := tr.Mentions("Blue Door")
	require.Len(t, mentions, 2)
	assert.Equal(t, "page-1", mentions[0].PageID)
	assert.Equal(t, "page-2", mentions[1].PageID)
	assert.Equal(t, []string{"Blue Door", "blue door"}, tr.Names())
	assert.Empty(t, tr.Mentions("Unknown"))
}

func TestCorrelationScorer(t *testing.T) {
	full := func(name, address, phone string) model.ExtractionResult {
		r := model.NewExtractionResult(model.SourceJSONLD)
		r.Name, r.Address, r.Phone = name, address, phone
		return r
	}

	tests := []struct {
		name    string
		a, b    model.ExtractionResult
		want    float64
		signals []string
	}{
		{"everything matches", full("Blue Door", "1 Main St", "555"), full("blue door", "1 Main St", "555"), 1.0, []string{"name_exact", "address", "phone"}},
		{"exact name only", full("Blue Door", "", ""), full("Blue Door", "", ""), 0.7, []string{"name_exact"}},
		{"containment", full("Blue Door", "", ""), full("The Blue Door Cafe", "", ""), 0.4, []string{"name_partial"}},
		{"containment with address", full("Blue Door", "1 Main St", ""), full("Blue Door Cafe", "1 Main St", ""), 0.6, []string{"name_partial", "address"}},
		{"empty addresses never match", full("A", "", "555"), full("B", "", "555"), 0.1, []string{"phone"}},
		{"empty names never match", full("", "", ""), full("", "", ""), 0, nil},
		{"unrelated", full("Blue Door", "1 Main St", "555"), full("Red Barn", "2 Oak Ave", "556"), 0, nil},
	}

	s := NewCorrelationScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := s.Explain(tt.a, tt.b)
			assert.InDelta(t, tt.want, m.Score, 1e-9)
			assert.Equal(t, tt.signals, m.Signals)
			assert.GreaterOrEqual(t, m.Score, 0.0)
			assert.LessOrEqual(t, m.Score, 1.0)
			assert.Equal(t, m.Score, s.Score(tt.b, tt.a), "symmetric")
		})
	}
}

func TestCorrelationScorer_FindDuplicates(t *testing.T) {
	agg := func(id, name, phone string) Aggregate {
		r := record(id, model.SourceJSONLD, t0, name)
		r.Phone = phone
		return Aggregate{EntityID: id, Result: r}
	}
	aggs := []Aggregate{
		agg("a", "Bistro A", "555-0100"),
		agg("b", "Cafe B", ""),
		agg("a2", "bistro a", "555-0100"),
		agg("a3", "Bistro", ""),
	}

	dups := NewCorrelationScorer().FindDuplicates(aggs, 0.7)
	require.Len(t, dups, 1)
	assert.Equal(t, "a", dups[0].EntityA)
	assert.Equal(t, "a2", dups[0].EntityB)
	assert.InDelta(t, 0.8, dups[0].Score, 1e-9)

	all := NewCorrelationScorer().FindDuplicates(aggs, 0.4)
	require.Len(t, all, 3)
	assert.Equal(t, "a2", all[0].EntityB, "strongest pair first")
	for _, d := range all[1:] {
		assert.InDelta(t, 0.4, d.Score, 1e-9)
	}

	assert.Empty(t, NewCorrelationScorer().FindDuplicates(aggs[:1], 0))
}
