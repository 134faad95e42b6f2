package worker

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/menuscope/internal/model"
	"github.com/ppiankov/menuscope/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the optional per-site page description
const ManifestFile = "site.yaml"

// Site is one site's pages in processing order
type Site struct {
	Name  string
	Pages []pipeline.Page
}

// manifest describes relationships the files themselves cannot carry
type manifest struct {
	BaseURL string                  `yaml:"base_url"`
	Pages   map[string]manifestPage `yaml:"pages"` // keyed by file name
}

type manifestPage struct {
	EntityID   string               `yaml:"entity_id"`
	ParentID   string               `yaml:"parent_id"`
	URL        string               `yaml:"url"`
	PageType   string               `yaml:"page_type"`
	Siblings   []string             `yaml:"siblings"`
	Children   []string             `yaml:"children"`
	References []string             `yaml:"references"`
	Inherited  []model.ContextEntry `yaml:"inherited"`
}

// LoadSites reads every subdirectory of root as one site, in lexical order.
// Directories without HTML files are skipped.
func LoadSites(root string) ([]Site, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var sites []Site
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		site, err := LoadSite(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		if len(site.Pages) > 0 {
			sites = append(sites, site)
		}
	}
	return sites, nil
}

// LoadSite reads the HTML files of dir in lexical order.
// site.yaml, when present, supplies ids, urls, page types and relationships per file.
func LoadSite(dir string) (Site, error) {
	site := Site{Name: filepath.Base(dir)}

	m, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return site, err
	}
	if m.BaseURL == "" {
		m.BaseURL = "https://" + site.Name + "/"
	}
	base, err := url.Parse(m.BaseURL)
	if err != nil {
		return site, fmt.Errorf("site %s: base_url: %w", site.Name, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return site, fmt.Errorf("read %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !isHTML(e.Name()) {
			continue
		}
		content, err := ReadPage(filepath.Join(dir, e.Name()))
		if err != nil {
			return site, err
		}
		site.Pages = append(site.Pages, buildPage(e.Name(), content, base, m.Pages[e.Name()]))
	}
	return site, nil
}

// ReadPage returns a file's HTML
func ReadPage(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return string(b), nil
}

// InferPageType guesses a page type from a file name
func InferPageType(name string) model.PageType {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	switch {
	case stem == "index" || strings.HasPrefix(stem, "directory") || strings.HasPrefix(stem, "list"):
		return model.PageTypeDirectory
	case strings.HasPrefix(stem, "menu"):
		return model.PageTypeMenu
	default:
		return model.PageTypeDetail
	}
}

func readManifest(path string) (manifest, error) {
	var m manifest
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

func buildPage(file, content string, base *url.URL, meta manifestPage) pipeline.Page {
	page := pipeline.Page{
		EntityID:   meta.EntityID,
		ParentID:   meta.ParentID,
		URL:        meta.URL,
		Siblings:   meta.Siblings,
		Children:   meta.Children,
		References: meta.References,
		Inherited:  meta.Inherited,
		HTML:       content,
	}
	if page.EntityID == "" {
		page.EntityID = strings.TrimSuffix(file, filepath.Ext(file))
	}
	if page.URL == "" {
		page.URL = base.ResolveReference(&url.URL{Path: file}).String()
	}
	if meta.PageType != "" {
		page.Type = model.ParsePageType(meta.PageType)
	} else {
		page.Type = InferPageType(file)
	}
	return page
}

func isHTML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}
