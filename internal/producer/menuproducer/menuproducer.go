// Package menuproducer provides data producers for menus, menu trees and
// menu links.
package menuproducer

import (
	"fmt"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/menu"
	"github.com/hanpama/sdlresolver/internal/producer"
	"github.com/hanpama/sdlresolver/internal/resolve"
)

var (
	LoadDefinition = producer.Definition{
		ID:       "menu_load",
		Name:     "Load menu",
		Produces: "entity:menu",
		Consumes: []producer.Input{producer.Required("name", "string")},
	}
	LinksDefinition = producer.Definition{
		ID:          "menu_links",
		Name:        "Menu links",
		Description: "Returns the enabled top-level elements of a menu tree.",
		Produces:    "menu_link_tree_element",
		Consumes:    []producer.Input{producer.Required("menu", "entity:menu")},
	}
	SubtreeDefinition = producer.Definition{
		ID:          "menu_tree_subtree",
		Name:        "Menu tree subtree",
		Description: "Returns the enabled children of a menu tree element.",
		Produces:    "any",
		Consumes:    []producer.Input{producer.Required("element", "menu_link_tree_element")},
	}
	LabelDefinition = producer.Definition{
		ID:       "menu_link_label",
		Name:     "Menu link label",
		Produces: "string",
		Consumes: []producer.Input{producer.Required("link", "menu_link")},
	}
	DescriptionDefinition = producer.Definition{
		ID:       "menu_link_description",
		Name:     "Menu link description",
		Produces: "string",
		Consumes: []producer.Input{producer.Required("link", "menu_link")},
	}
	ExpandedDefinition = producer.Definition{
		ID:       "menu_link_expanded",
		Name:     "Menu link expanded",
		Produces: "boolean",
		Consumes: []producer.Input{producer.Required("link", "menu_link")},
	}
	AttributeDefinition = producer.Definition{
		ID:       "menu_link_attribute",
		Name:     "Menu link attribute",
		Produces: "string",
		Consumes: []producer.Input{
			producer.Required("link", "menu_link"),
			producer.Required("attribute", "string"),
		},
	}
	URLDefinition = producer.Definition{
		ID:       "menu_link_url",
		Name:     "Menu link url",
		Produces: "url",
		Consumes: []producer.Input{producer.Required("link", "menu_link")},
	}
)

// Register adds the menu producers to m.
func Register(m *producer.Manager, menus *menu.Repository) error {
	regs := []struct {
		def     producer.Definition
		factory producer.Factory
	}{
		{LoadDefinition, func() producer.Resolver { return loadMenu{menus} }},
		{LinksDefinition, resolver(menuLinks)},
		{SubtreeDefinition, resolver(subtree)},
		{LabelDefinition, linkReader(func(l *menu.Link, _ producer.Inputs) any { return l.Title })},
		{DescriptionDefinition, linkReader(func(l *menu.Link, _ producer.Inputs) any { return l.Description })},
		{ExpandedDefinition, linkReader(func(l *menu.Link, _ producer.Inputs) any { return l.Expanded })},
		{AttributeDefinition, linkReader(func(l *menu.Link, in producer.Inputs) any { return l.Attribute(in.String("attribute")) })},
		{URLDefinition, linkReader(func(l *menu.Link, _ producer.Inputs) any {
			if l.URL == nil {
				return nil
			}
			return l.URL
		})},
	}
	for _, r := range regs {
		if err := m.Register(r.def, r.factory); err != nil {
			return err
		}
	}
	return nil
}

type loadMenu struct{ menus *menu.Repository }

func (l loadMenu) Resolve(in producer.Inputs, rc *resolve.Context, _ *resolve.FieldInfo) (any, error) {
	name := in.String("name")
	m, ok := l.menus.Load(name)
	if !ok {
		rc.MergeCacheMetadata(cachemeta.New(menu.CacheTag(name)))
		return nil, nil
	}
	rc.AddCacheableDependency(m)
	return m, nil
}

func menuLinks(in producer.Inputs, rc *resolve.Context, info *resolve.FieldInfo) (any, error) {
	m, ok := in.Get("menu").(*menu.Menu)
	if !ok {
		return nil, unexpected(info, "menu", in.Get("menu"))
	}
	rc.AddCacheableDependency(m)
	return menu.Enabled(m.Tree()), nil
}

func subtree(in producer.Inputs, _ *resolve.Context, info *resolve.FieldInfo) (any, error) {
	e, ok := in.Get("element").(*menu.TreeElement)
	if !ok {
		return nil, unexpected(info, "menu tree element", in.Get("element"))
	}
	return menu.Enabled(e.Subtree), nil
}

func resolver(fn producer.ResolverFunc) producer.Factory {
	return func() producer.Resolver { return fn }
}

func linkReader(read func(*menu.Link, producer.Inputs) any) producer.Factory {
	return resolver(func(in producer.Inputs, _ *resolve.Context, info *resolve.FieldInfo) (any, error) {
		l, ok := in.Get("link").(*menu.Link)
		if !ok {
			return nil, unexpected(info, "menu link", in.Get("link"))
		}
		return read(l, in), nil
	})
}

func unexpected(info *resolve.FieldInfo, want string, got any) error {
	return fmt.Errorf("%s.%s: expected a %s, got %T", info.ParentType, info.FieldName, want, got)
}
