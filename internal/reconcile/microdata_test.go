package reconcile

import (
	"testing"

	"github.com/ppiankov/menuscope/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicrodataPatternRecognizer(t *testing.T) {
	r := NewMicrodataPatternRecognizer()

	r.Record("name", "[itemprop=name]", true)
	assert.False(t, r.IsReliable("name", "[itemprop=name]"), "one attempt is not enough")

	r.Record("name", "[itemprop=name]", true)
	assert.True(t, r.IsReliable("name", "[itemprop=name]"))

	for i := 0; i < 4; i++ {
		r.Record("phone", "[itemprop=telephone]", true)
	}
	r.Record("phone", "[itemprop=telephone]", false)
	assert.True(t, r.IsReliable("phone", "[itemprop=telephone]"), "exactly 0.8 is reliable")

	r.Record("hours", "time", true)
	r.Record("hours", "time", false)
	assert.False(t, r.IsReliable("hours", "time"))
	assert.False(t, r.IsReliable("unknown", "x"))

	reliable := r.Reliable()
	require.Len(t, reliable, 2)
	assert.Equal(t, "name", reliable[0].Pattern)
	assert.Equal(t, "phone", reliable[1].Pattern)
}

func TestMicrodataValidator(t *testing.T) {
	v := NewMicrodataValidator()

	r := model.NewExtractionResult(model.SourceMicrodata)
	assert.ErrorIs(t, v.Validate(r), ErrMissingName)

	r.Name = "   "
	assert.ErrorIs(t, v.Validate(r), ErrMissingName)

	r.Name = "Cafe B"
	assert.NoError(t, v.Validate(r))
}

func TestDirectoryListingCorrelator(t *testing.T) {
	page := `<html><body><ul>
		<li itemscope itemtype="https://schema.org/Restaurant">
			<a itemprop="url" href="/r/first"><span itemprop="name">First</span></a>
		</li>
		<li itemscope itemtype="https://schema.org/Restaurant">
			<span itemprop="name">Second</span>
			<a href="#reviews">Reviews</a>
			<a href="https://elsewhere.example.com/second">Details</a>
		</li>
		<li itemscope itemtype="https://schema.org/Restaurant">
			<span itemprop="telephone">555-0000</span>
			<a href="/r/nameless">?</a>
		</li>
		<li itemscope itemtype="https://schema.org/FoodEstablishment">
			<span itemprop="name">Third</span>
		</li>
		<li itemscope itemtype="https://schema.org/Event">
			<span itemprop="name">Tasting Night</span>
		</li>
	</ul></body></html>`

	listings := NewDirectoryListingCorrelator(nil).Correlate(page, "https://guide.example.com/city/")
	assert.Equal(t, []Listing{
		{Name: "First", DetailURL: "https://guide.example.com/r/first"},
		{Name: "Second", DetailURL: "https://elsewhere.example.com/second"},
		{Name: "Third", DetailURL: ""},
	}, listings)
}

func TestDirectoryListingCorrelator_FirstLinkFallback(t *testing.T) {
	page := `<html><body>
		<div itemscope itemtype="https://schema.org/Restaurant">
			<h3 itemprop="name">Only Link</h3>
			<a href="detail/only">More</a>
		</div>
	</body></html>`

	listings := NewDirectoryListingCorrelator(nil).Correlate(page, "https://guide.example.com/city/")
	require.Len(t, listings, 1)
	assert.Equal(t, "https://guide.example.com/city/detail/only", listings[0].DetailURL)

	listings = NewDirectoryListingCorrelator(nil).Correlate(page, "")
	require.Len(t, listings, 1)
	assert.Equal(t, "detail/only", listings[0].DetailURL)

	assert.Empty(t, NewDirectoryListingCorrelator(nil).Correlate("", ""))
}
