// Package entity provides content entities, their storage and a batched
// loader that collects ids across a resolution depth.
package entity

import (
	"sort"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/typeddata"
)

// Entity is a stored content object.
type Entity interface {
	typeddata.Provider
	cachemeta.Cacheable
	EntityTypeID() string
	ID() string
	Bundle() string
	Label() string
	Language() string
	HasTranslation(lang string) bool
	// Translation returns the entity in lang, or the entity itself when no
	// such translation exists.
	Translation(lang string) Entity
}

// Type describes an entity type.
type Type struct {
	ID           string   `yaml:"id"`
	Label        string   `yaml:"label"`
	Bundles      []string `yaml:"bundles"`
	LabelKey     string   `yaml:"label_key"`
	Translatable bool     `yaml:"translatable"`
}

// ListCacheTags returns the tags invalidated whenever an entity of this
// type is created or deleted.
func (t Type) ListCacheTags() []string { return []string{t.ID + "_list"} }

// CacheTag returns the cache tag of a single entity.
func CacheTag(entityType, id string) string { return entityType + ":" + id }

// ItemList is the value of an entity field: one map per item, usually
// keyed by "value".
type ItemList []map[string]any

// Content is the in-memory Entity implementation.
type Content struct {
	entityType   string
	id           string
	bundle       string
	langcode     string
	labelKey     string
	fields       map[string]ItemList
	translations map[string]*Content
}

var _ Entity = (*Content)(nil)

// NewContent returns an entity without fields. The label is read from the
// "title" field unless SetLabelKey names another one.
func NewContent(entityType, id, bundle, langcode string) *Content {
	return &Content{
		entityType: entityType,
		id:         id,
		bundle:     bundle,
		langcode:   langcode,
		labelKey:   "title",
		fields:     make(map[string]ItemList),
	}
}

// SetLabelKey names the field holding the label.
func (c *Content) SetLabelKey(field string) *Content {
	c.labelKey = field
	return c
}

// Set replaces the items of a field. Map values are stored as items as-is;
// any other value becomes {"value": v}.
func (c *Content) Set(field string, values ...any) *Content {
	items := make(ItemList, 0, len(values))
	for _, v := range values {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
			continue
		}
		items = append(items, map[string]any{"value": v})
	}
	c.fields[field] = items
	return c
}

// Field returns the items of a field.
func (c *Content) Field(name string) ItemList { return c.fields[name] }

// AddTranslation registers a translation built from c's identity.
func (c *Content) AddTranslation(lang string) *Content {
	t := NewContent(c.entityType, c.id, c.bundle, lang).SetLabelKey(c.labelKey)
	if c.translations == nil {
		c.translations = make(map[string]*Content)
	}
	c.translations[lang] = t
	t.translations = c.translations
	if _, ok := c.translations[c.langcode]; !ok {
		c.translations[c.langcode] = c
	}
	return t
}

func (c *Content) EntityTypeID() string { return c.entityType }
func (c *Content) ID() string           { return c.id }
func (c *Content) Bundle() string       { return c.bundle }
func (c *Content) Language() string     { return c.langcode }

func (c *Content) Label() string {
	return typeddata.String(c.fields[c.labelKey])
}

func (c *Content) HasTranslation(lang string) bool {
	_, ok := c.translations[lang]
	return ok
}

func (c *Content) Translation(lang string) Entity {
	if t, ok := c.translations[lang]; ok {
		return t
	}
	return c
}

// CacheDependencies tags the entity with "<type>:<id>".
func (c *Content) CacheDependencies() cachemeta.Metadata {
	return cachemeta.New(CacheTag(c.entityType, c.id))
}

// TypedData exposes the entity as "entity:<type>:<bundle>". Base properties
// id, type, bundle and langcode come first, then fields in name order.
// Every property is an ItemList.
func (c *Content) TypedData() typeddata.ComplexData { return contentData{c} }

type contentData struct{ c *Content }

func (d contentData) DataType() string {
	return "entity:" + d.c.entityType + ":" + d.c.bundle
}

func (d contentData) PropertyNames() []string {
	names := make([]string, 0, len(d.c.fields))
	for n := range d.c.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return append([]string{"id", "type", "bundle", "langcode"}, names...)
}

func (d contentData) Property(name string) (any, bool) {
	switch name {
	case "id":
		return ItemList{{"value": d.c.id}}, true
	case "type":
		return ItemList{{"value": d.c.entityType}}, true
	case "bundle":
		return ItemList{{"value": d.c.bundle}}, true
	case "langcode":
		return ItemList{{"value": d.c.langcode}}, true
	}
	if items, ok := d.c.fields[name]; ok {
		return items, true
	}
	return nil, true
}

func (d contentData) Value() any { return d.c }
