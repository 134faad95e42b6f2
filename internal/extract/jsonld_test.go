package extract

import (
	"testing"

	"github.com/ppiankov/menuscope/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ldPage(blocks ...string) string {
	page := "<html><head><title>Test</title>"
	for _, b := range blocks {
		page += `<script type="application/ld+json">` + b + `</script>`
	}
	return page + "</head><body><p>hello</p></body></html>"
}

func TestJSONLDExtractor_Confidence(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)

	t.Run("name and telephone is medium", func(t *testing.T) {
		results := e.ExtractFromHTML(ldPage(`{"@type":"Restaurant","name":"Bistro A","telephone":"555-0100"}`), nil)
		require.Len(t, results, 1)

		r := results[0]
		assert.Equal(t, "Bistro A", r.Name)
		assert.Equal(t, "555-0100", r.Phone)
		assert.Equal(t, model.ConfidenceMedium, r.Confidence)
		assert.Equal(t, model.SourceJSONLD, r.Source)
		assert.Equal(t, "json-ld", r.Metadata.Method)
		assert.False(t, r.Metadata.Timestamp.IsZero())
	})

	t.Run("opening hours promote to high", func(t *testing.T) {
		results := e.ExtractFromHTML(ldPage(`{"@type":"Restaurant","name":"Bistro A","telephone":"555-0100","openingHours":"Mo-Su 9-5"}`), nil)
		require.Len(t, results, 1)
		assert.Equal(t, model.ConfidenceHigh, results[0].Confidence)
		assert.Equal(t, "Mo-Su 9-5", results[0].Hours)
	})

	t.Run("name only is medium", func(t *testing.T) {
		results := e.ExtractFromHTML(ldPage(`{"@type":"FoodEstablishment","name":"Corner Deli"}`), nil)
		require.Len(t, results, 1)
		assert.Equal(t, model.ConfidenceMedium, results[0].Confidence)
		assert.Equal(t, "FoodEstablishment", results[0].Metadata.SchemaType)
	})
}

func TestJSONLDExtractor_Fields(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)

	block := `{
		"@context": "https://schema.org",
		"@type": "Restaurant",
		"name": "  Harbor House ",
		"address": {
			"@type": "PostalAddress",
			"streetAddress": "12 Oak St",
			"addressLocality": "Portland",
			"addressRegion": "OR",
			"postalCode": "97201"
		},
		"openingHours": ["Mo-Fr 11:00-22:00", "Sa-Su 10:00-23:00"],
		"servesCuisine": ["Seafood", "American"],
		"priceRange": "$$",
		"sameAs": ["https://instagram.com/harborhouse", "https://facebook.com/harborhouse", "https://instagram.com/harborhouse"]
	}`

	results := e.ExtractFromHTML(ldPage(block), nil)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "Harbor House", r.Name)
	assert.Equal(t, "12 Oak St, Portland, OR 97201", r.Address)
	assert.Equal(t, "Mo-Fr 11:00-22:00, Sa-Su 10:00-23:00", r.Hours)
	assert.Equal(t, "Seafood, American", r.Cuisine)
	assert.Equal(t, "$$", r.PriceRange)
	assert.Equal(t, []string{"https://instagram.com/harborhouse", "https://facebook.com/harborhouse"}, r.SocialMedia)
	assert.Equal(t, model.ConfidenceHigh, r.Confidence)
}

func TestAddressValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"plain string", "  1 Main St,\n Springfield ", "1 Main St, Springfield"},
		{"full postal address", map[string]any{"streetAddress": "1 Main St", "addressLocality": "Springfield", "addressRegion": "IL", "postalCode": "62701"}, "1 Main St, Springfield, IL 62701"},
		{"no region", map[string]any{"streetAddress": "1 Main St", "addressLocality": "Springfield", "postalCode": "62701"}, "1 Main St, Springfield 62701"},
		{"postal code only", map[string]any{"postalCode": "62701"}, "62701"},
		{"no street", map[string]any{"addressLocality": "Springfield", "addressRegion": "IL"}, "Springfield, IL"},
		{"missing", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, addressValue(tt.in))
		})
	}
}

func TestJSONLDExtractor_SkipsMalformedBlocks(t *testing.T) {
	page := ldPage(
		`{"@type": "Restaurant", "name": }`,
		`{"@type":"Restaurant","name":"Second Block"}`,
	)

	results := NewJSONLDExtractor(model.JSONLDConfig{}, nil).ExtractFromHTML(page, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "Second Block", results[0].Name)
}

func TestJSONLDExtractor_Repair(t *testing.T) {
	page := ldPage(`{"@type":"Restaurant","name":"Fixed Diner",}`)

	assert.Empty(t, NewJSONLDExtractor(model.JSONLDConfig{}, nil).ExtractFromHTML(page, nil))

	results := NewJSONLDExtractor(model.JSONLDConfig{RepairMalformed: true}, nil).ExtractFromHTML(page, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "Fixed Diner", results[0].Name)
}

func TestJSONLDExtractor_ArraysAndGraph(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)

	page := ldPage(
		`[{"@type":"WebSite","name":"Site"},{"@type":["Organization","Restaurant"],"name":"Array Grill"}]`,
		`{"@context":"https://schema.org","@graph":[{"@type":"BreadcrumbList"},{"@type":"http://schema.org/LocalBusiness","name":"Graph Cafe"}]}`,
	)

	results := e.ExtractFromHTML(page, nil)
	require.Len(t, results, 2)
	assert.Equal(t, "Array Grill", results[0].Name)
	assert.Equal(t, "Restaurant", results[0].Metadata.SchemaType)
	assert.Equal(t, "Graph Cafe", results[1].Name)
}

func TestJSONLDExtractor_Rejects(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)

	tests := []struct {
		name string
		page string
	}{
		{"empty input", ""},
		{"no scripts", "<html><body><h1>Restaurant menu</h1></body></html>"},
		{"wrong type", ldPage(`{"@type":"Article","name":"Restaurant review"}`)},
		{"type substring is not a match", ldPage(`{"@type":"RestaurantReview","name":"Nope"}`)},
		{"missing name", ldPage(`{"@type":"Restaurant","telephone":"555-0100"}`)},
		{"blank name", ldPage(`{"@type":"Restaurant","name":"   "}`)},
		{"empty block", ldPage(``)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, e.ExtractFromHTML(tt.page, nil))
		})
	}
}

func TestJSONLDExtractor_Menu(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)

	block := `{
		"@type": "Restaurant",
		"name": "Blue Door",
		"hasMenu": {
			"@type": "Menu",
			"url": "/menu",
			"hasMenuSection": [
				{"name": "Starters", "hasMenuItem": [{"name": "Soup"}, {"name": "Salad"}]},
				{"name": "Mains", "hasMenuItem": {"name": "Steak"},
				 "hasMenuSection": {"name": "Sides", "hasMenuItem": ["Fries"]}}
			],
			"hasMenuItem": [{"name": "Bread"}]
		}
	}`

	ctx := NewContext("blue-door", "https://example.com/places/blue-door", model.PageTypeDetail)
	results := e.ExtractFromHTML(ldPage(block), ctx)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, map[string][]string{
		"Starters": {"Soup", "Salad"},
		"Mains":    {"Steak"},
		"Sides":    {"Fries"},
		"Menu":     {"Bread"},
	}, r.MenuItems)
	assert.Equal(t, []string{"https://example.com/menu"}, r.Metadata.ReferencedPages)
	assert.Equal(t, model.ConfidenceHigh, r.Confidence)
}

func TestJSONLDExtractor_DetailPageKeepsRestaurant(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)
	page := ldPage(
		`{"@type":"LocalBusiness","name":"Holding Co"}`,
		`{"@type":"Restaurant","name":"Real Place"}`,
	)

	results := e.ExtractFromHTML(page, NewContext("real", "", model.PageTypeDetail))
	require.Len(t, results, 1)
	assert.Equal(t, "Real Place", results[0].Name)

	results = e.ExtractFromHTML(page, NewContext("", "", model.PageTypeDirectory))
	assert.Len(t, results, 2)

	results = e.ExtractFromHTML(ldPage(
		`{"@type":"LocalBusiness","name":"First"}`,
		`{"@type":"LocalBusiness","name":"Second"}`,
	), NewContext("", "", model.PageTypeDetail))
	require.Len(t, results, 1)
	assert.Equal(t, "First", results[0].Name)
}

func TestJSONLDExtractor_SiblingPatternBoost(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)
	page := ldPage(`{"@type":"Restaurant","name":"Sibling Bistro"}`)

	ctx := NewContext("child", "", model.PageTypeDetail)
	ctx.SiblingPatterns = &SiblingPatterns{Type: "Restaurant"}

	results := e.ExtractFromHTML(page, ctx)
	require.Len(t, results, 1)
	assert.Equal(t, model.ConfidenceHigh, results[0].Confidence)
	assert.Equal(t, "sibling_pattern_match", results[0].Metadata.ConfidenceBoost)

	ctx.SiblingPatterns = &SiblingPatterns{Type: "Bakery"}
	results = e.ExtractFromHTML(page, ctx)
	require.Len(t, results, 1)
	assert.Equal(t, model.ConfidenceMedium, results[0].Confidence)
	assert.Empty(t, results[0].Metadata.ConfidenceBoost)
}

func TestJSONLDExtractor_SiblingPatternBoost_PrefixedTypes(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)
	page := ldPage(`{"@type":"https://schema.org/Restaurant","name":"Sibling Bistro"}`)

	ctx := NewContext("child", "", model.PageTypeDetail)
	ctx.SiblingPatterns = &SiblingPatterns{Type: "Restaurant"}

	results := e.ExtractFromHTML(page, ctx)
	require.Len(t, results, 1)
	assert.Equal(t, model.ConfidenceHigh, results[0].Confidence)
	assert.Equal(t, "sibling_pattern_match", results[0].Metadata.ConfidenceBoost)

	ctx.SiblingPatterns = &SiblingPatterns{Type: "schema:restaurant"}
	results = e.ExtractFromHTML(page, ctx)
	require.Len(t, results, 1)
	assert.Equal(t, model.ConfidenceHigh, results[0].Confidence)
}

func TestTypeMatches(t *testing.T) {
	assert.True(t, typeMatches("Restaurant", []string{"https://schema.org/Restaurant"}))
	assert.True(t, typeMatches("http://schema.org/Restaurant", []string{"Restaurant"}))
	assert.True(t, typeMatches("restaurant", []string{"LocalBusiness", "schema:Restaurant"}))
	assert.False(t, typeMatches("Bakery", []string{"https://schema.org/Restaurant"}))
	assert.False(t, typeMatches(" ", []string{"Restaurant"}))
}

func TestJSONLDExtractor_ContextMetadata(t *testing.T) {
	e := NewJSONLDExtractor(model.JSONLDConfig{}, nil)
	page := ldPage(`{"@type":"Restaurant","name":"Bistro A"}`)

	history := model.NewExtractionHistory()
	ctx := NewContext("bistro-a", "https://example.com/bistro-a", model.PageTypeDetail)
	ctx.ParentID = "city-guide"
	ctx.History = history
	ctx.Inherit("city", "Lyon").Inherit("price_tier", "$$")

	first := e.ExtractFromHTML(page, ctx)
	require.Len(t, first, 1)
	assert.Equal(t, "bistro-a", first[0].Metadata.EntityID)
	assert.Equal(t, "city-guide", first[0].Metadata.ParentID)
	assert.Equal(t, "https://example.com/bistro-a", first[0].Metadata.SourceURL)
	assert.Equal(t, []model.ContextEntry{{Key: "city", Value: "Lyon"}, {Key: "price_tier", Value: "$$"}}, first[0].Metadata.InheritedContext)
	assert.False(t, first[0].Metadata.IsUpdate)
	assert.Nil(t, first[0].Metadata.Previous)

	history.Record(first[0])

	second := e.ExtractFromHTML(page, ctx)
	require.Len(t, second, 1)
	assert.True(t, second[0].Metadata.IsUpdate)
	require.NotNil(t, second[0].Metadata.Previous)
	assert.Equal(t, "Bistro A", second[0].Metadata.Previous.Name)
	assert.Equal(t, model.SourceJSONLD, second[0].Metadata.Previous.Source)
}
