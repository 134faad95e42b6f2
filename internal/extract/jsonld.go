package extract

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/ppiankov/menuscope/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// defaultMenuSection names menu items that sit outside any named section
const defaultMenuSection = "Menu"

// fieldsForHighConfidence promote a named json-ld object from medium to high.
// A telephone alone is treated as a bare listing and stays medium.
var fieldsForHighConfidence = []string{"address", "openingHours", "priceRange", "servesCuisine", "hasMenu"}

// JSONLDExtractor reads restaurant objects from application/ld+json script blocks
type JSONLDExtractor struct {
	repair bool
	logger *slog.Logger
}

// NewJSONLDExtractor creates a new linked-data extractor
func NewJSONLDExtractor(cfg model.JSONLDConfig, logger *slog.Logger) *JSONLDExtractor {
	return &JSONLDExtractor{
		repair: cfg.RepairMalformed,
		logger: loggerOrDiscard(logger),
	}
}

// Name returns the source label
func (e *JSONLDExtractor) Name() model.Source {
	return model.SourceJSONLD
}

// ExtractFromHTML returns one result per named restaurant-typed object.
// Malformed blocks are skipped; detail pages keep a single result.
func (e *JSONLDExtractor) ExtractFromHTML(htmlContent string, ctx *Context) []model.ExtractionResult {
	ctx = resolveContext(ctx)

	doc, err := parseHTML(htmlContent)
	if err != nil {
		e.logger.Debug("json-ld: unparseable html", "url", ctx.SourceURL, "error", err)
		return nil
	}

	base := parseBaseURL(ctx.SourceURL)
	var results []model.ExtractionResult

	for i, block := range linkedDataBlocks(doc) {
		objects, ok := e.decodeBlock(block)
		if !ok {
			e.logger.Debug("json-ld: skipping malformed block", "url", ctx.SourceURL, "block", i)
			continue
		}
		for _, obj := range objects {
			if r, ok := e.buildResult(obj, ctx, base); ok {
				results = append(results, r)
			}
		}
	}

	if ctx.PageType == model.PageTypeDetail && len(results) > 1 {
		results = keepPrimaryRestaurant(results)
	}

	return results
}

// linkedDataBlocks returns the raw text of every ld+json script element
func linkedDataBlocks(doc *html.Node) []string {
	scripts := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Script &&
			strings.EqualFold(strings.TrimSpace(getAttribute(n, "type")), "application/ld+json")
	})

	blocks := make([]string, 0, len(scripts))
	for _, s := range scripts {
		var buf strings.Builder
		for c := s.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				buf.WriteString(c.Data)
			}
		}
		if text := strings.TrimSpace(buf.String()); text != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks
}

// decodeBlock parses a block into its top-level objects, flattening arrays and @graph
func (e *JSONLDExtractor) decodeBlock(block string) ([]map[string]any, bool) {
	var data any
	if err := json.Unmarshal([]byte(block), &data); err != nil {
		if !e.repair {
			return nil, false
		}
		repaired, repairErr := jsonrepair.JSONRepair(block)
		if repairErr != nil {
			return nil, false
		}
		if err := json.Unmarshal([]byte(repaired), &data); err != nil {
			return nil, false
		}
	}

	var objects []map[string]any
	var collect func(v any, depth int)
	collect = func(v any, depth int) {
		if depth > 4 {
			return
		}
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				collect(item, depth+1)
			}
		case map[string]any:
			if graph, ok := t["@graph"]; ok {
				collect(graph, depth+1)
				if _, typed := t["@type"]; !typed {
					return
				}
			}
			objects = append(objects, t)
		}
	}
	collect(data, 0)

	return objects, true
}

// buildResult converts one object; ok is false when the type does not match or the name is missing
func (e *JSONLDExtractor) buildResult(obj map[string]any, ctx *Context, base *url.URL) (model.ExtractionResult, bool) {
	types := stringList(obj["@type"])
	schemaType := ""
	for _, t := range types {
		if isRestaurantType(t) {
			schemaType = t
			break
		}
	}
	if schemaType == "" {
		return model.ExtractionResult{}, false
	}

	name := stringValue(obj["name"])
	if name == "" {
		e.logger.Debug("json-ld: discarding object without name", "url", ctx.SourceURL, "type", schemaType)
		return model.ExtractionResult{}, false
	}

	r := model.NewExtractionResult(model.SourceJSONLD)
	r.Name = name
	r.Address = addressValue(obj["address"])
	r.Phone = stringValue(obj["telephone"])
	r.Hours = strings.Join(stringList(obj["openingHours"]), ", ")
	r.PriceRange = stringValue(obj["priceRange"])
	r.Cuisine = strings.Join(stringList(obj["servesCuisine"]), ", ")
	r.MenuItems = menuItems(obj["hasMenu"])
	r.SocialMedia = dedupeStrings(stringList(obj["sameAs"]))

	r.Confidence = model.ConfidenceMedium
	for _, key := range fieldsForHighConfidence {
		if hasValue(obj[key]) {
			r.Confidence = model.ConfidenceHigh
			break
		}
	}

	if sp := ctx.SiblingPatterns; sp != nil && r.Confidence == model.ConfidenceMedium && typeMatches(sp.Type, types) {
		r.Confidence = model.ConfidenceHigh
		r.Metadata.ConfidenceBoost = "sibling_pattern_match"
	}

	r.Metadata.SchemaType = schemaType
	r.Metadata.ReferencedPages = referencedPages(obj, base)
	ctx.annotate(&r)

	return r, true
}

// keepPrimaryRestaurant keeps the first result typed as a restaurant, else the first result
func keepPrimaryRestaurant(results []model.ExtractionResult) []model.ExtractionResult {
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Metadata.SchemaType), "restaurant") {
			return []model.ExtractionResult{r}
		}
	}
	return results[:1]
}

// typeMatches compares a sibling's @type against any of the object's types,
// ignoring case and vocabulary prefixes on both sides
func typeMatches(siblingType string, types []string) bool {
	siblingType = schemaTypeName(siblingType)
	if siblingType == "" {
		return false
	}
	for _, t := range types {
		if strings.EqualFold(siblingType, schemaTypeName(t)) {
			return true
		}
	}
	return false
}

// stringValue renders scalars as trimmed strings; objects yield their name or @value
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		if val := stringValue(t["@value"]); val != "" {
			return val
		}
		return stringValue(t["name"])
	case []any:
		if len(t) > 0 {
			return stringValue(t[0])
		}
	}
	return ""
}

// stringList accepts a string or a list and returns the non-empty values
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := stringValue(t); s != "" {
			return []string{s}
		}
	}
	return nil
}

// hasValue reports whether a json value carries data
func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// addressValue normalizes a plain string or a PostalAddress object
func addressValue(v any) string {
	switch t := v.(type) {
	case string:
		return collapse(t)
	case []any:
		for _, item := range t {
			if s := addressValue(item); s != "" {
				return s
			}
		}
	case map[string]any:
		return formatAddress(
			stringValue(t["streetAddress"]),
			stringValue(t["addressLocality"]),
			stringValue(t["addressRegion"]),
			stringValue(t["postalCode"]),
		)
	}
	return ""
}

// menuItems walks Menu -> MenuSection -> MenuItem into section name -> item names
func menuItems(v any) map[string][]string {
	sections := make(map[string][]string)

	var walkSection func(v any, fallback string, depth int)
	walkSection = func(v any, fallback string, depth int) {
		if depth > 6 {
			return
		}
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				walkSection(item, fallback, depth+1)
			}
		case map[string]any:
			name := stringValue(t["name"])
			if name == "" {
				name = fallback
			}
			if items := stringList(t["hasMenuItem"]); len(items) > 0 {
				sections[name] = append(sections[name], items...)
			}
			if nested, ok := t["hasMenuSection"]; ok {
				walkSection(nested, name, depth+1)
			}
		}
	}

	var walkMenu func(v any)
	walkMenu = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				walkMenu(item)
			}
		case map[string]any:
			if items := stringList(t["hasMenuItem"]); len(items) > 0 {
				sections[defaultMenuSection] = append(sections[defaultMenuSection], items...)
			}
			if secs, ok := t["hasMenuSection"]; ok {
				walkSection(secs, defaultMenuSection, 0)
			}
		}
	}

	walkMenu(v)
	return sections
}

// referencedPages collects menu URLs the object points at
func referencedPages(obj map[string]any, base *url.URL) []string {
	var refs []string

	var addURL func(v any)
	addURL = func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" && looksLikeURL(s) {
				refs = append(refs, resolveURL(base, s))
			}
		case []any:
			for _, item := range t {
				addURL(item)
			}
		case map[string]any:
			if u, ok := t["url"]; ok {
				addURL(u)
			} else if id, ok := t["@id"].(string); ok {
				addURL(id)
			}
		}
	}

	addURL(obj["menu"])
	addURL(obj["hasMenu"])

	if len(refs) == 0 {
		return nil
	}
	return dedupeStrings(refs)
}

// looksLikeURL accepts absolute http(s) URLs and site-relative paths
func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}
