// Package menu holds menus of links and builds their trees.
package menu

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/routing"
	"github.com/hanpama/sdlresolver/internal/typeddata"
)

// Link is a single menu entry.
type Link struct {
	ID          string
	Menu        string
	Parent      string
	Title       string
	Description string
	URL         *routing.URL
	Weight      int
	Enabled     bool
	Expanded    bool
	// Options holds rendering options; "attributes" maps to the HTML
	// attributes of the link.
	Options map[string]any
}

// DataType implements typeddata.Typed.
func (l *Link) DataType() string { return "menu_link" }

// Attribute returns options.attributes[name], or nil.
func (l *Link) Attribute(name string) any {
	attrs, ok := l.Options["attributes"].(map[string]any)
	if !ok {
		return nil
	}
	return attrs[name]
}

// CacheDependencies ties the link to its menu.
func (l *Link) CacheDependencies() cachemeta.Metadata {
	return cachemeta.New(CacheTag(l.Menu))
}

// CacheTag returns the tag invalidated when a menu or its links change.
func CacheTag(menu string) string { return "config:system.menu." + menu }

// TreeElement is a link placed in a tree.
type TreeElement struct {
	Link    *Link
	Subtree []*TreeElement
	Depth   int
}

// HasChildren reports whether the element has any child, enabled or not.
func (e *TreeElement) HasChildren() bool { return len(e.Subtree) > 0 }

// TypedData exposes the element with properties link, subtree and depth.
func (e *TreeElement) TypedData() typeddata.ComplexData { return elementData{e} }

type elementData struct{ e *TreeElement }

func (d elementData) DataType() string        { return "menu_link_tree_element" }
func (d elementData) PropertyNames() []string { return []string{"link", "subtree", "depth"} }
func (d elementData) Value() any              { return d.e }

func (d elementData) Property(name string) (any, bool) {
	switch name {
	case "link":
		return d.e.Link, true
	case "subtree":
		return d.e.Subtree, true
	case "depth":
		return d.e.Depth, true
	}
	return nil, false
}

// Menu is a named set of links.
type Menu struct {
	ID          string
	Label       string
	Description string

	mu    sync.RWMutex
	links map[string]*Link
	order []string
}

// New returns an empty menu.
func New(id, label string) *Menu {
	return &Menu{ID: id, Label: label, links: make(map[string]*Link)}
}

// DataType implements typeddata.Typed.
func (m *Menu) DataType() string { return "entity:menu" }

// CacheDependencies implements cachemeta.Cacheable.
func (m *Menu) CacheDependencies() cachemeta.Metadata {
	return cachemeta.New(CacheTag(m.ID))
}

// TypedData exposes id, label and description.
func (m *Menu) TypedData() typeddata.ComplexData { return menuData{m} }

type menuData struct{ m *Menu }

func (d menuData) DataType() string        { return d.m.DataType() }
func (d menuData) PropertyNames() []string { return []string{"id", "label", "description"} }
func (d menuData) Value() any              { return d.m }

func (d menuData) Property(name string) (any, bool) {
	switch name {
	case "id":
		return d.m.ID, true
	case "label":
		return d.m.Label, true
	case "description":
		return d.m.Description, true
	}
	return nil, false
}

// AddLink adds l to the menu. Its parent, when set, must already exist.
func (m *Menu) AddLink(l Link) error {
	if l.ID == "" {
		return fmt.Errorf("menu %s: link without id", m.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[l.ID]; ok {
		return fmt.Errorf("menu %s: duplicate link %s", m.ID, l.ID)
	}
	if l.Parent != "" {
		if _, ok := m.links[l.Parent]; !ok {
			return fmt.Errorf("menu %s: link %s has unknown parent %s", m.ID, l.ID, l.Parent)
		}
	}
	l.Menu = m.ID
	m.links[l.ID] = &l
	m.order = append(m.order, l.ID)
	return nil
}

// Link returns the link with the given id.
func (m *Menu) Link(id string) (*Link, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.links[id]
	return l, ok
}

// Tree returns the top-level elements. Siblings are ordered by weight,
// then title. Disabled links are kept; callers filter them.
func (m *Menu) Tree() []*TreeElement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	children := make(map[string][]*Link)
	for _, id := range m.order {
		l := m.links[id]
		children[l.Parent] = append(children[l.Parent], l)
	}
	return buildTree(children, "", 1)
}

func buildTree(children map[string][]*Link, parent string, depth int) []*TreeElement {
	links := children[parent]
	if len(links) == 0 {
		return nil
	}
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Weight != links[j].Weight {
			return links[i].Weight < links[j].Weight
		}
		return links[i].Title < links[j].Title
	})
	out := make([]*TreeElement, 0, len(links))
	for _, l := range links {
		out = append(out, &TreeElement{Link: l, Depth: depth, Subtree: buildTree(children, l.ID, depth+1)})
	}
	return out
}

// Enabled returns the elements whose link is enabled, keeping order.
func Enabled(elements []*TreeElement) []*TreeElement {
	out := make([]*TreeElement, 0, len(elements))
	for _, e := range elements {
		if e.Link == nil || e.Link.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Repository stores menus by id.
type Repository struct {
	mu    sync.RWMutex
	menus map[string]*Menu
}

func NewRepository() *Repository {
	return &Repository{menus: make(map[string]*Menu)}
}

// Save stores m, replacing a menu with the same id.
func (r *Repository) Save(m *Menu) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menus[m.ID] = m
}

// Load returns the menu with the given id.
func (r *Repository) Load(id string) (*Menu, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.menus[id]
	return m, ok
}
