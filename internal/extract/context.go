package extract

import (
	"strings"

	"github.com/ppiankov/menuscope/internal/cache"
	"github.com/ppiankov/menuscope/internal/model"
	"github.com/ppiankov/menuscope/internal/pattern"
)

// Relationships lists the entity ids related to the page's entity
type Relationships struct {
	Parent     string   `json:"parent,omitempty"`
	Siblings   []string `json:"siblings,omitempty"`
	Children   []string `json:"children,omitempty"`
	References []string `json:"references,omitempty"`
}

// SiblingPatterns describes what sibling entities' structured data looked like
type SiblingPatterns struct {
	Type   string   `json:"@type"`            // schema type observed on siblings
	Fields []string `json:"fields,omitempty"` // fields siblings populated
}

// Context carries identity, relationships, and shared session handles into one extraction call.
// Extractors never modify the identity fields; the shared handles accumulate learning.
type Context struct {
	EntityID      string
	ParentID      string
	SourceURL     string
	PageType      model.PageType
	Relationships Relationships
	ParentContext []model.ContextEntry // inherited facts, in parent order

	PatternCache      *cache.PatternCache
	PatternLearner    *pattern.Learner
	History           *model.ExtractionHistory
	SiblingPatterns   *SiblingPatterns
	SiblingsExtracted []string // sibling entity ids already processed this session
	ParentData        *model.ExtractionResult

	// Optional learning collaborators; nil disables each
	Analyzer      *pattern.CrossPageAnalyzer
	Adaptive      *pattern.AdaptiveSelector
	Calculator    *pattern.ConfidenceCalculator
	SiblingSharer *pattern.SiblingSharer
}

// NewContext creates a context with no shared handles
func NewContext(entityID, sourceURL string, pageType model.PageType) *Context {
	if pageType == "" {
		pageType = model.PageTypeOther
	}
	return &Context{
		EntityID:  entityID,
		SourceURL: sourceURL,
		PageType:  pageType,
	}
}

// Inherit appends an inherited key/value pair from the parent page
func (c *Context) Inherit(key, value string) *Context {
	c.ParentContext = append(c.ParentContext, model.ContextEntry{Key: key, Value: value})
	return c
}

// siblingIDs returns declared and already-extracted siblings without duplicates
func (c *Context) siblingIDs() []string {
	return dedupeStrings(append(append([]string(nil), c.Relationships.Siblings...), c.SiblingsExtracted...))
}

// annotate stamps identity, inherited context, and update status onto a result
func (c *Context) annotate(r *model.ExtractionResult) {
	r.Metadata.EntityID = c.EntityID
	r.Metadata.ParentID = c.ParentID
	if r.Metadata.ParentID == "" {
		r.Metadata.ParentID = c.Relationships.Parent
	}
	r.Metadata.SourceURL = c.SourceURL
	if len(c.ParentContext) > 0 {
		r.Metadata.InheritedContext = append([]model.ContextEntry(nil), c.ParentContext...)
	}

	if c.History == nil || c.EntityID == "" {
		return
	}
	if prev, ok := c.History.Latest(c.EntityID); ok {
		r.Metadata.IsUpdate = true
		r.Metadata.Previous = &model.PreviousExtraction{
			Name:       prev.Name,
			Source:     prev.Source,
			Confidence: prev.Confidence,
			Timestamp:  prev.Timestamp,
		}
	}
}

// resolveContext substitutes an empty context for nil so callers may omit it
func resolveContext(ctx *Context) *Context {
	if ctx == nil {
		return NewContext("", "", model.PageTypeOther)
	}
	if ctx.PageType == "" {
		ctx.PageType = model.PageTypeOther
	}
	return ctx
}

// restaurantTypes are the schema types every structured extractor accepts
var restaurantTypes = []string{"restaurant", "foodestablishment", "localbusiness"}

// isRestaurantType matches a schema type exactly, ignoring case and any vocabulary prefix
func isRestaurantType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.LastIndexAny(t, "/:#"); i >= 0 {
		t = t[i+1:]
	}
	for _, rt := range restaurantTypes {
		if t == rt {
			return true
		}
	}
	return false
}
