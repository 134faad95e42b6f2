package extract

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/ppiankov/menuscope/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parentInheritedFields are the facts a child may take from its parent record
var parentInheritedFields = []string{"cuisine", "price_range"}

// MicrodataExtractor reads restaurant items from itemscope/itemprop markup
type MicrodataExtractor struct {
	logger *slog.Logger
}

// NewMicrodataExtractor creates a new microdata extractor
func NewMicrodataExtractor(logger *slog.Logger) *MicrodataExtractor {
	return &MicrodataExtractor{logger: loggerOrDiscard(logger)}
}

// Name returns the source label
func (e *MicrodataExtractor) Name() model.Source {
	return model.SourceMicrodata
}

// ExtractFromHTML correlates every restaurant-typed block on the page into one result.
// Directory pages list several entities, so there each valid block stands alone.
func (e *MicrodataExtractor) ExtractFromHTML(htmlContent string, ctx *Context) []model.ExtractionResult {
	ctx = resolveContext(ctx)

	doc, err := parseHTML(htmlContent)
	if err != nil {
		e.logger.Debug("microdata: unparseable html", "url", ctx.SourceURL, "error", err)
		return nil
	}

	scopes := RestaurantScopes(doc)
	if len(scopes) == 0 {
		return nil
	}

	base := parseBaseURL(ctx.SourceURL)
	blocks := make([]model.ExtractionResult, 0, len(scopes))
	for _, scope := range scopes {
		blocks = append(blocks, e.readBlock(scope, base))
	}

	if ctx.PageType == model.PageTypeDirectory {
		var results []model.ExtractionResult
		for _, b := range blocks {
			if b.IsValid() {
				results = append(results, e.finish(b, ctx))
			}
		}
		return results
	}

	baseIdx := -1
	for i, b := range blocks {
		if b.IsValid() {
			baseIdx = i
			break
		}
	}
	if baseIdx < 0 {
		e.logger.Debug("microdata: no block with a name", "url", ctx.SourceURL, "blocks", len(blocks))
		return nil
	}

	merged := blocks[baseIdx]
	if len(blocks) > 1 {
		for i, b := range blocks {
			if i != baseIdx {
				fillEmpty(&merged, b)
			}
		}
		merged.Metadata.BlockCorrelation = true
	}

	return []model.ExtractionResult{e.finish(merged, ctx)}
}

// finish applies parent correlation, scores the record, and stamps context metadata
func (e *MicrodataExtractor) finish(r model.ExtractionResult, ctx *Context) model.ExtractionResult {
	if parent := ctx.ParentData; parent != nil {
		r.Metadata.ParentCorrelation = true
		for _, f := range parentInheritedFields {
			if strings.TrimSpace(r.Field(f)) == "" && strings.TrimSpace(parent.Field(f)) != "" {
				r.SetField(f, parent.Field(f))
				r.Metadata.CorrelationBoost = true
			}
		}
	}

	r.Confidence = fieldCountConfidence(r)
	ctx.annotate(&r)
	return r
}

// fieldCountConfidence: four or more populated fields is high, two or more medium
func fieldCountConfidence(r model.ExtractionResult) model.Confidence {
	count := r.PopulatedFields()
	switch {
	case count >= 4:
		return model.ConfidenceHigh
	case count >= 2:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// fillEmpty copies fields from other into r wherever r has nothing
func fillEmpty(r *model.ExtractionResult, other model.ExtractionResult) {
	for _, f := range model.CoreFields {
		if strings.TrimSpace(r.Field(f)) == "" {
			r.SetField(f, other.Field(f))
		}
	}
	if len(r.SocialMedia) == 0 && len(other.SocialMedia) > 0 {
		r.SocialMedia = append([]string(nil), other.SocialMedia...)
	}
	for section, items := range other.MenuItems {
		if _, ok := r.MenuItems[section]; !ok {
			r.MenuItems[section] = append([]string(nil), items...)
		}
	}
	r.Metadata.ReferencedPages = dedupeStrings(append(r.Metadata.ReferencedPages, other.Metadata.ReferencedPages...))
	if len(r.Metadata.ReferencedPages) == 0 {
		r.Metadata.ReferencedPages = nil
	}
}

// readBlock reads one item scope into an unscored result
func (e *MicrodataExtractor) readBlock(scope *html.Node, base *url.URL) model.ExtractionResult {
	r := model.NewExtractionResult(model.SourceMicrodata)
	r.Name = ItemPropValue(scope, "name")
	r.Phone = ItemPropValue(scope, "telephone")
	r.PriceRange = ItemPropValue(scope, "priceRange")
	r.Hours = strings.Join(itemPropValues(scope, "openingHours"), ", ")
	r.Cuisine = strings.Join(itemPropValues(scope, "servesCuisine"), ", ")
	r.SocialMedia = dedupeStrings(itemPropValues(scope, "sameAs"))
	r.Metadata.SchemaType = schemaTypeName(getAttribute(scope, "itemtype"))

	if addr := itemProps(scope, "address"); len(addr) > 0 {
		if hasAttribute(addr[0], "itemscope") {
			r.Address = formatAddress(
				ItemPropValue(addr[0], "streetAddress"),
				ItemPropValue(addr[0], "addressLocality"),
				ItemPropValue(addr[0], "addressRegion"),
				ItemPropValue(addr[0], "postalCode"),
			)
		} else {
			r.Address = propValueFor(addr[0], "address")
		}
	}

	var refs []string
	for _, prop := range []string{"menu", "hasMenu"} {
		for _, n := range itemProps(scope, prop) {
			if href := getAttribute(n, "href"); href != "" {
				refs = append(refs, resolveURL(base, href))
			}
		}
	}
	if refs = dedupeStrings(refs); len(refs) > 0 {
		r.Metadata.ReferencedPages = refs
	}

	return r
}

// RestaurantScopes returns every element carrying itemscope and a restaurant-like itemtype, in document order
func RestaurantScopes(doc *html.Node) []*html.Node {
	return findAll(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || !hasAttribute(n, "itemscope") {
			return false
		}
		itemType := strings.ToLower(getAttribute(n, "itemtype"))
		for _, rt := range restaurantTypes {
			if strings.Contains(itemType, rt) {
				return true
			}
		}
		return false
	})
}

// urlProperties take their value from href/src even on link elements
var urlProperties = map[string]bool{
	"url": true, "sameas": true, "menu": true, "hasmenu": true, "image": true, "logo": true,
}

// ItemPropValue returns the first value of a property belonging to scope
func ItemPropValue(scope *html.Node, name string) string {
	for _, n := range itemProps(scope, name) {
		if v := propValueFor(n, name); v != "" {
			return v
		}
	}
	return ""
}

func itemPropValues(scope *html.Node, name string) []string {
	var values []string
	for _, n := range itemProps(scope, name) {
		if v := propValueFor(n, name); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// propValueFor reads text from links carrying textual properties such as name
func propValueFor(n *html.Node, name string) string {
	if !urlProperties[strings.ToLower(name)] && (n.DataAtom == atom.A || n.DataAtom == atom.Link) {
		if getAttribute(n, "content") == "" {
			if text := nodeText(n); text != "" {
				return text
			}
		}
	}
	return propValue(n)
}

// itemProps finds descendants whose itemprop names the property, without
// descending into nested item scopes (their properties belong to the nested item)
func itemProps(scope *html.Node, name string) []*html.Node {
	var found []*html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			for _, prop := range strings.Fields(getAttribute(c, "itemprop")) {
				if strings.EqualFold(prop, name) {
					found = append(found, c)
					break
				}
			}
			if hasAttribute(c, "itemscope") {
				continue
			}
			walk(c)
		}
	}

	walk(scope)
	return found
}

// propValue reads a property value following the microdata value rules
func propValue(n *html.Node) string {
	if content := getAttribute(n, "content"); content != "" {
		return collapse(content)
	}
	switch n.DataAtom {
	case atom.Meta:
		return ""
	case atom.A, atom.Link, atom.Area:
		if href := getAttribute(n, "href"); href != "" {
			return strings.TrimSpace(href)
		}
	case atom.Img, atom.Audio, atom.Video, atom.Source, atom.Iframe, atom.Embed:
		return strings.TrimSpace(getAttribute(n, "src"))
	case atom.Time:
		if dt := getAttribute(n, "datetime"); dt != "" {
			return strings.TrimSpace(dt)
		}
	case atom.Data, atom.Meter:
		if v := getAttribute(n, "value"); v != "" {
			return strings.TrimSpace(v)
		}
	}
	return nodeText(n)
}

// schemaTypeName reduces "https://schema.org/Restaurant" or "schema:Restaurant" to "Restaurant"
func schemaTypeName(itemType string) string {
	fields := strings.Fields(itemType)
	if len(fields) == 0 {
		return ""
	}
	t := strings.TrimRight(fields[0], "/")
	if i := strings.LastIndexAny(t, "/#:"); i >= 0 {
		t = t[i+1:]
	}
	return t
}
