package demo

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hanpama/sdlresolver/internal/entity"
	"github.com/hanpama/sdlresolver/internal/menu"
	"github.com/hanpama/sdlresolver/internal/routing"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the content of a fixture file.
type Fixtures struct {
	BaseURL     string            `yaml:"base_url"`
	EntityTypes []entity.Type     `yaml:"entity_types"`
	Entities    []EntityFixture   `yaml:"entities"`
	Menus       []MenuFixture     `yaml:"menus"`
	Routes      map[string]string `yaml:"routes"`
	Aliases     map[string]string `yaml:"aliases"`
}

type EntityFixture struct {
	Type         string                    `yaml:"type"`
	ID           string                    `yaml:"id"`
	Bundle       string                    `yaml:"bundle"`
	Language     string                    `yaml:"language"`
	Fields       map[string]any            `yaml:"fields"`
	Translations map[string]map[string]any `yaml:"translations"`
}

type MenuFixture struct {
	ID          string        `yaml:"id"`
	Label       string        `yaml:"label"`
	Description string        `yaml:"description"`
	Links       []LinkFixture `yaml:"links"`
}

// LinkFixture points either at a route with params or at a literal path.
type LinkFixture struct {
	ID          string            `yaml:"id"`
	Parent      string            `yaml:"parent"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Route       string            `yaml:"route"`
	Params      map[string]string `yaml:"params"`
	Path        string            `yaml:"path"`
	Weight      int               `yaml:"weight"`
	Enabled     *bool             `yaml:"enabled"`
	Expanded    bool              `yaml:"expanded"`
	Attributes  map[string]any    `yaml:"attributes"`
}

// ParseFixtures decodes a YAML fixture document. Unknown keys are errors.
func ParseFixtures(data []byte) (*Fixtures, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f Fixtures
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &f, nil
}

// LoadFixtures reads the fixture file at path, or the built-in fixtures
// when path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return ParseFixtures(defaultFixtures)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixtures(data)
}

// Stores holds the collaborators the producers read from.
type Stores struct {
	Entities  *entity.MemoryStorage
	Menus     *menu.Repository
	Generator *routing.Generator
}

// Build fills fresh stores with f.
func (f *Fixtures) Build() (*Stores, error) {
	baseURL := f.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost"
	}
	gen, err := routing.NewGenerator(baseURL)
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(f.Routes) {
		gen.AddRoute(name, f.Routes[name])
	}
	for _, path := range sortedKeys(f.Aliases) {
		gen.AddAlias(path, f.Aliases[path])
	}

	storage := entity.NewMemoryStorage()
	for _, t := range f.EntityTypes {
		storage.AddType(t)
	}
	for _, ef := range f.Entities {
		if err := storage.Save(ef.content()); err != nil {
			return nil, fmt.Errorf("entity %s:%s: %w", ef.Type, ef.ID, err)
		}
	}

	menus := menu.NewRepository()
	for _, mf := range f.Menus {
		m := menu.New(mf.ID, mf.Label)
		m.Description = mf.Description
		for _, lf := range mf.Links {
			if err := m.AddLink(lf.link()); err != nil {
				return nil, err
			}
		}
		menus.Save(m)
	}
	return &Stores{Entities: storage, Menus: menus, Generator: gen}, nil
}

func (ef EntityFixture) content() *entity.Content {
	c := entity.NewContent(ef.Type, ef.ID, ef.Bundle, ef.Language)
	setFields(c, ef.Fields)
	for _, lang := range sortedKeys(ef.Translations) {
		setFields(c.AddTranslation(lang), ef.Translations[lang])
	}
	return c
}

func setFields(c *entity.Content, fields map[string]any) {
	for name, v := range fields {
		if items, ok := v.([]any); ok {
			c.Set(name, items...)
			continue
		}
		c.Set(name, v)
	}
}

func (lf LinkFixture) link() menu.Link {
	l := menu.Link{
		ID:          lf.ID,
		Parent:      lf.Parent,
		Title:       lf.Title,
		Description: lf.Description,
		Weight:      lf.Weight,
		Enabled:     lf.Enabled == nil || *lf.Enabled,
		Expanded:    lf.Expanded,
	}
	switch {
	case lf.Route != "":
		l.URL = routing.FromRoute(lf.Route, lf.Params)
	case lf.Path != "":
		l.URL = routing.FromPath(lf.Path)
	}
	if len(lf.Attributes) > 0 {
		l.Options = map[string]any{"attributes": lf.Attributes}
	}
	return l
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
