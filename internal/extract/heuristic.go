package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/menuscope/internal/cache"
	"github.com/ppiankov/menuscope/internal/model"
	"github.com/ppiankov/menuscope/internal/pattern"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// selectorFields are located by selector; cuisine and price range are always derived from text
var selectorFields = []string{"name", "phone", "address", "hours"}

var (
	phonePattern   = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{3}\)\s?|\b\d{3}[\s.-])?\b\d{3}[\s.-]\d{4}\b`)
	addressPattern = regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Za-z0-9'.-]+\s+){0,4}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Way|Place|Pl|Court|Ct|Square|Sq)\b\.?(?:,\s*[A-Z][A-Za-z .'-]*)?(?:,\s*[A-Z]{2}\s+\d{5})?`)
	hoursPattern   = regexp.MustCompile(`(?i)\b(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?(?:\s*(?:-|–|to|through)\s*(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?)?:?\s*\d{1,2}(?::\d{2})?\s*(?:am|pm)?\s*(?:-|–|to)\s*\d{1,2}(?::\d{2})?\s*(?:am|pm)?`)
	dollarRuns     = regexp.MustCompile(`\$+`)
	titleSeparator = regexp.MustCompile(`\s+[|–—-]\s+`)
)

// HeuristicExtractor finds restaurant facts by DOM and keyword patterns when no
// structured markup is available. Its output is never rated above medium.
type HeuristicExtractor struct {
	cfg       model.HeuristicConfig
	keywords  []string
	cuisines  []cuisineKeyword
	recovery  *pattern.FailureRecovery
	structure *pattern.StructureAnalyzer
	logger    *slog.Logger
}

// NewHeuristicExtractor creates a new heuristic extractor
func NewHeuristicExtractor(cfg model.HeuristicConfig, logger *slog.Logger) *HeuristicExtractor {
	defaults := model.DefaultConfig().Heuristic
	if cfg.MinKeywords <= 0 {
		cfg.MinKeywords = defaults.MinKeywords
	}
	if cfg.LearnerTopN <= 0 {
		cfg.LearnerTopN = defaults.LearnerTopN
	}
	if cfg.MaxCuisines <= 0 {
		cfg.MaxCuisines = defaults.MaxCuisines
	}

	return &HeuristicExtractor{
		cfg: cfg,
		keywords: []string{
			"menu", "restaurant", "dining", "cuisine", "food", "chef", "kitchen",
			"appetizers", "entrees", "desserts", "drinks", "wine", "bar",
		},
		cuisines: compileCuisines(
			"italian", "french", "chinese", "japanese", "mexican", "indian", "thai",
			"american", "mediterranean", "greek", "spanish", "korean", "vietnamese",
			"lebanese", "turkish", "ethiopian", "peruvian", "brazilian", "caribbean",
			"german", "seafood", "steakhouse", "sushi", "pizza", "ramen", "tapas",
			"barbecue", "bbq", "vegetarian", "vegan",
		),
		recovery:  pattern.NewFailureRecovery(),
		structure: pattern.NewStructureAnalyzer(),
		logger:    loggerOrDiscard(logger),
	}
}

// Name returns the source label
func (e *HeuristicExtractor) Name() model.Source {
	return model.SourceHeuristic
}

// ExtractFromHTML returns at most one result for the page's entity
func (e *HeuristicExtractor) ExtractFromHTML(htmlContent string, ctx *Context) []model.ExtractionResult {
	ctx = resolveContext(ctx)

	doc, err := parseHTML(htmlContent)
	if err != nil {
		e.logger.Debug("heuristic: unparseable html", "url", ctx.SourceURL, "error", err)
		return nil
	}

	text := visibleText(doc)
	lower := strings.ToLower(text)
	if hits := e.keywordHits(lower); hits < e.cfg.MinKeywords {
		e.logger.Debug("heuristic: page below relevance gate", "url", ctx.SourceURL, "keywords", hits)
		return nil
	}

	page := &heuristicPage{
		node:      doc,
		query:     goquery.NewDocumentFromNode(doc),
		structure: e.structure.Analyze(doc),
		ctx:       ctx,
		cacheKey:  cache.TemplateKey(ctx.SourceURL, string(ctx.PageType)),
	}

	r := model.NewExtractionResult(model.SourceHeuristic)
	selectors := make(map[string]string)
	for _, field := range selectorFields {
		value, selector := e.extractField(page, field)
		if value == "" {
			continue
		}
		r.SetField(field, value)
		selectors[field] = selector
	}

	if !r.IsValid() {
		e.logger.Debug("heuristic: no name found", "url", ctx.SourceURL)
		return nil
	}

	cuisines, cuisineHits := e.detectCuisines(lower)
	r.Cuisine = strings.Join(cuisines, ", ")
	r.PriceRange = priceRange(text)

	if r.PopulatedFields() >= 4 {
		r.Confidence = model.ConfidenceMedium
	} else {
		r.Confidence = model.ConfidenceLow
	}

	if ctx.PatternLearner != nil {
		r.Metadata.LearnedPattern = true
	}
	if words := len(strings.Fields(lower)); cuisineHits > 0 && words > 0 &&
		float64(cuisineHits)/float64(words) >= e.cfg.CuisineDensityThreshold && e.cfg.PatternConfidenceBoost > 0 {
		boost := e.cfg.PatternConfidenceBoost
		r.Metadata.PatternConfidenceBoost = &boost
	}
	if ctx.PageType == model.PageTypeMenu {
		r.Metadata.MenuFocused = true
		r.MenuItems = menuSections(doc)
	}
	if len(selectors) > 0 {
		r.Metadata.Selectors = selectors
	}

	ctx.annotate(&r)
	return []model.ExtractionResult{r}
}

// heuristicPage bundles the per-call views of one page
type heuristicPage struct {
	node      *html.Node
	query     *goquery.Document
	structure pattern.Structure
	ctx       *Context
	cacheKey  string
}

// extractField runs the field strategies in order: cached template selector,
// learned selectors, sibling selectors, dedicated matcher, failure recovery
func (e *HeuristicExtractor) extractField(page *heuristicPage, field string) (string, string) {
	ctx := page.ctx

	if ctx.PatternCache != nil {
		if sel, ok := ctx.PatternCache.Selector(page.cacheKey, field); ok {
			if value := refineField(field, pattern.SelectText(page.query, sel)); value != "" {
				e.learn(page, field, sel, true)
				return value, sel
			}
			ctx.PatternCache.Forget(page.cacheKey, field)
		}
	}

	if ctx.PatternLearner != nil {
		for _, sel := range ctx.PatternLearner.Top(field, e.cfg.LearnerTopN) {
			value := refineField(field, pattern.SelectText(page.query, sel))
			e.learn(page, field, sel, value != "")
			if value != "" {
				return value, sel
			}
		}
	}

	if ctx.SiblingSharer != nil {
		for _, shared := range ctx.SiblingSharer.FromSiblings(ctx.siblingIDs(), field) {
			if value := refineField(field, pattern.SelectText(page.query, shared.Selector)); value != "" {
				e.learn(page, field, shared.Selector, true)
				return value, shared.Selector
			}
		}
	}

	var value, sel string
	switch field {
	case "name":
		value, sel = e.matchName(page)
	case "phone":
		value, sel = matchPhone(page)
	case "address":
		value, sel = matchAddress(page)
	case "hours":
		value, sel = matchHours(page)
	}
	if value != "" {
		e.learn(page, field, sel, true)
		return value, sel
	}

	if raw, sel := e.recovery.Recover(page.query, field); raw != "" {
		if value := refineField(field, raw); value != "" {
			e.learn(page, field, sel, true)
			return value, sel
		}
	}

	return "", ""
}

// learn feeds one selector outcome to every learning collaborator on the context
func (e *HeuristicExtractor) learn(page *heuristicPage, field, selector string, success bool) {
	ctx := page.ctx
	if selector == "" {
		return
	}

	if ctx.PatternLearner != nil {
		if _, seen := ctx.PatternLearner.Lookup(field, selector); seen || success {
			ctx.PatternLearner.Record(field, selector, success)
		}
	}
	if ctx.Analyzer != nil {
		ctx.Analyzer.Record(ctx.PageType, field, selector, success)
	}
	if ctx.Calculator != nil {
		ctx.Calculator.Record(field, selector, success)
	}
	if !success {
		return
	}

	rate := 1.0
	if ctx.Calculator != nil {
		rate = ctx.Calculator.Confidence(field, selector)
	} else if ctx.PatternLearner != nil {
		if rec, ok := ctx.PatternLearner.Lookup(field, selector); ok {
			rate = rec.SuccessRate()
		}
	}

	if ctx.Adaptive != nil {
		ctx.Adaptive.Observe(ctx.PageType, field, selector, rate)
	}
	if ctx.PatternCache != nil {
		ctx.PatternCache.Put(page.cacheKey, field, selector)
	}
	if ctx.SiblingSharer != nil && ctx.EntityID != "" {
		ctx.SiblingSharer.Share(ctx.EntityID, field, selector, rate)
	}
}

// keywordHits counts distinct restaurant keywords present in lowercase text
func (e *HeuristicExtractor) keywordHits(lower string) int {
	hits := 0
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

type cuisineKeyword struct {
	word    string
	pattern *regexp.Regexp
}

func compileCuisines(words ...string) []cuisineKeyword {
	out := make([]cuisineKeyword, 0, len(words))
	for _, w := range words {
		out = append(out, cuisineKeyword{
			word:    w,
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`),
		})
	}
	return out
}

// detectCuisines returns up to MaxCuisines cuisine labels and the total keyword occurrences
func (e *HeuristicExtractor) detectCuisines(lower string) ([]string, int) {
	var found []string
	total := 0
	title := cases.Title(language.English)
	for _, kw := range e.cuisines {
		n := len(kw.pattern.FindAllStringIndex(lower, -1))
		if n == 0 {
			continue
		}
		total += n
		if len(found) < e.cfg.MaxCuisines {
			found = append(found, cuisineLabel(title, kw.word))
		}
	}
	return found, total
}

func cuisineLabel(title cases.Caser, kw string) string {
	if kw == "bbq" {
		return "BBQ"
	}
	return title.String(kw)
}

// matchName prefers the page heading; a lone h2 stands in when there is no h1
func (e *HeuristicExtractor) matchName(page *heuristicPage) (string, string) {
	var tags []atom.Atom
	if page.structure.Headers["h1"] > 0 {
		tags = append(tags, atom.H1)
	} else if page.structure.Headers["h2"] == 1 {
		tags = append(tags, atom.H2)
	}

	for _, tag := range tags {
		for _, n := range findAll(page.node, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.DataAtom == tag
		}) {
			if text := refineField("name", nodeText(n)); text != "" {
				return text, selectorFor(n)
			}
		}
	}
	return "", ""
}

// matchPhone tries tel: links, then a phone-shaped run of visible text
func matchPhone(page *heuristicPage) (string, string) {
	for _, n := range findAll(page.node, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.A &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(getAttribute(n, "href"))), "tel:")
	}) {
		if phone := refineField("phone", nodeText(n)); phone != "" {
			return phone, selectorFor(n)
		}
		href := strings.TrimSpace(getAttribute(n, "href"))
		if phone := collapse(href[len("tel:"):]); phone != "" {
			return phone, "a[href^='tel:']"
		}
	}

	if m, ok := findTextMatch(page.node, phonePattern); ok {
		return m.value, selectorFor(m.element)
	}
	return "", ""
}

// matchAddress tries <address>, address-classed elements, then a street-shaped run of text
func matchAddress(page *heuristicPage) (string, string) {
	for _, n := range findAll(page.node, func(n *html.Node) bool {
		return n.Type == html.ElementNode && (n.DataAtom == atom.Address ||
			strings.Contains(strings.ToLower(getAttribute(n, "class")), "address"))
	}) {
		if addr := refineField("address", nodeText(n)); addr != "" {
			return addr, selectorFor(n)
		}
	}

	if m, ok := findTextMatch(page.node, addressPattern); ok {
		return m.value, selectorFor(m.element)
	}
	return "", ""
}

// matchHours tries hours-classed elements, then day/time ranges in text
func matchHours(page *heuristicPage) (string, string) {
	for _, n := range findAll(page.node, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		marker := strings.ToLower(getAttribute(n, "class") + " " + getAttribute(n, "id"))
		return strings.Contains(marker, "hours")
	}) {
		if hours := refineField("hours", nodeText(n)); hours != "" {
			return hours, selectorFor(n)
		}
	}

	if m, ok := findTextMatch(page.node, hoursPattern); ok {
		return refineField("hours", nodeText(m.element)), selectorFor(m.element)
	}
	return "", ""
}

// refineField validates and trims text selected for a field; an empty return rejects it
func refineField(field, text string) string {
	text = collapse(text)
	if text == "" {
		return ""
	}

	switch field {
	case "name":
		if parts := titleSeparator.Split(text, 2); len(parts) > 1 {
			text = strings.TrimSpace(parts[0])
		}
		if len(text) > 120 {
			return ""
		}
		return text
	case "phone":
		return collapse(phonePattern.FindString(text))
	case "address":
		if m := addressPattern.FindString(text); m != "" {
			return collapse(m)
		}
		if len(text) <= 150 && strings.ContainsAny(text, "0123456789") {
			return text
		}
		return ""
	case "hours":
		if matches := hoursPattern.FindAllString(text, -1); len(matches) > 0 {
			for i, m := range matches {
				matches[i] = collapse(m)
			}
			return strings.Join(matches, ", ")
		}
		if len(text) <= 200 && strings.ContainsAny(text, "0123456789") {
			return text
		}
		return ""
	}
	return text
}

// priceRange maps the longest standalone run of '$' to a tier; runs followed by a digit are prices
func priceRange(text string) string {
	longest := 0
	for _, loc := range dollarRuns.FindAllStringIndex(text, -1) {
		end := loc[1]
		if end < len(text) && text[end] >= '0' && text[end] <= '9' {
			continue
		}
		if end+1 < len(text) && text[end] == ' ' && text[end+1] >= '0' && text[end+1] <= '9' {
			continue
		}
		if run := loc[1] - loc[0]; run > longest {
			longest = run
		}
	}

	switch {
	case longest == 0:
		return ""
	case longest >= 4:
		return "$$$$"
	default:
		return strings.Repeat("$", longest)
	}
}

// menuSections reads headings followed by lists as menu sections
func menuSections(doc *html.Node) map[string][]string {
	sections := make(map[string][]string)

	headings := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode &&
			(n.DataAtom == atom.H2 || n.DataAtom == atom.H3 || n.DataAtom == atom.H4)
	})
	for _, h := range headings {
		name := nodeText(h)
		if name == "" {
			continue
		}
		list := h.NextSibling
		for list != nil && list.Type != html.ElementNode {
			list = list.NextSibling
		}
		if list == nil || (list.DataAtom != atom.Ul && list.DataAtom != atom.Ol) {
			continue
		}
		for _, li := range findAll(list, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.DataAtom == atom.Li
		}) {
			if item := nodeText(li); item != "" {
				sections[name] = append(sections[name], item)
			}
		}
	}
	return sections
}
