// Package demo wires a small content schema to the built-in producers.
//
// Articles, pages and menus come from a YAML fixture file. Every resolver
// is assembled from resolve.Builder steps and registered producers; the
// Node interface is resolved by the registry's data-type definitions.
package demo

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jensneuse/abstractlogger"

	"github.com/hanpama/sdlresolver/internal/entity"
	"github.com/hanpama/sdlresolver/internal/producer"
	"github.com/hanpama/sdlresolver/internal/producer/dataproducer"
	"github.com/hanpama/sdlresolver/internal/producer/entityproducer"
	"github.com/hanpama/sdlresolver/internal/producer/menuproducer"
	"github.com/hanpama/sdlresolver/internal/producer/routingproducer"
	"github.com/hanpama/sdlresolver/internal/resolve"
	"github.com/hanpama/sdlresolver/internal/schema"
	"github.com/hanpama/sdlresolver/internal/typeddata"
)

//go:embed schema.graphql
var SchemaSDL string

// EntityCacheSize bounds the entity cache in front of the fixture storage.
const EntityCacheSize = 1024

// App is a wired schema with its registry and stores.
type App struct {
	Schema    *schema.Schema
	Registry  *resolve.Registry
	Producers *producer.Manager
	Stores    *Stores
	Storage   *entity.CachedStorage
}

// New builds the schema from sdl, fills stores from f and registers the
// resolvers. An empty sdl selects SchemaSDL.
func New(sdl string, f *Fixtures, logger abstractlogger.Logger) (*App, error) {
	if sdl == "" {
		sdl = SchemaSDL
	}
	if logger == nil {
		logger = abstractlogger.NoopLogger
	}
	s, err := schema.BuildFromSDL(sdl)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	stores, err := f.Build()
	if err != nil {
		return nil, err
	}
	cached, err := entity.NewCachedStorage(stores.Entities, EntityCacheSize)
	if err != nil {
		return nil, err
	}

	producers := producer.NewManager(logger)
	registrations := []error{
		entityproducer.Register(producers, cached, entity.NewBuffer(cached)),
		menuproducer.Register(producers, stores.Menus),
		routingproducer.Register(producers, stores.Generator),
		dataproducer.Register(producers),
	}
	if err := errors.Join(registrations...); err != nil {
		return nil, fmt.Errorf("register producers: %w", err)
	}

	registry := resolve.NewRegistry(map[string]*typeddata.Definition{
		"Article": typeddata.NewDefinition("entity:node:article"),
		"Page":    typeddata.NewDefinition("entity:node:page"),
	}, resolve.WithLogger(logger))
	b := resolve.NewBuilder(producers)
	register(registry, b)
	if err := b.Err(); err != nil {
		return nil, err
	}
	if problems := registry.ValidateCompliance(s); len(problems) > 0 {
		return nil, fmt.Errorf("resolvers do not match the schema:\n  %s", strings.Join(problems, "\n  "))
	}
	return &App{Schema: s, Registry: registry, Producers: producers, Stores: stores, Storage: cached}, nil
}

func register(r *resolve.Registry, b *resolve.Builder) {
	entityOf := resolve.Mapping{"entity": b.FromParent()}
	link := b.FromPath(typeddata.NewDefinition("any"), "link")
	linkOf := resolve.Mapping{"link": link}
	path := func(source resolve.FieldResolverFunc) resolve.FieldResolverFunc {
		return b.Produce("url_path", resolve.Mapping{"url": source})
	}

	r.
		AddFieldResolver("Query", "article", b.Compose(
			b.Produce("entity_load", resolve.Mapping{
				"type":     b.FromValue("node"),
				"id":       b.FromArgument("id"),
				"bundles":  b.FromValue([]string{"article"}),
				"language": b.FromArgument("language"),
			}),
			b.Context("language", b.FromPath(typeddata.NewDefinition("string"), "langcode.value")),
		)).
		AddFieldResolver("Query", "node", b.Produce("entity_load", resolve.Mapping{
			"type": b.FromValue("node"),
			"id":   b.FromArgument("id"),
		})).
		AddFieldResolver("Query", "menu", b.Produce("menu_load", resolve.Mapping{
			"name": b.FromArgument("name"),
		})).
		AddFieldResolver("Query", "route", b.Compose(
			b.Produce("route_load", resolve.Mapping{"path": b.FromArgument("path")}),
			path(b.FromParent()),
		))

	r.
		AddFieldResolver("Article", "id", b.Produce("entity_id", entityOf)).
		AddFieldResolver("Article", "title", b.Produce("entity_label", entityOf)).
		AddFieldResolver("Article", "author", b.Produce("property_path", resolve.Mapping{
			"path":  b.FromValue("author.value"),
			"value": b.FromParent(),
			"type":  b.FromValue("entity:node"),
		})).
		AddFieldResolver("Article", "url", path(b.Produce("entity_url", entityOf))).
		AddFieldResolver("Article", "language", b.FromContext("language", "und"))

	r.
		AddFieldResolver("Menu", "name", b.FromPath(typeddata.NewDefinition("string"), "label")).
		AddFieldResolver("Menu", "links", b.Produce("menu_links", resolve.Mapping{"menu": b.FromParent()}))

	r.
		AddFieldResolver("MenuLink", "label", b.Produce("menu_link_label", linkOf)).
		AddFieldResolver("MenuLink", "description", b.Produce("menu_link_description", linkOf)).
		AddFieldResolver("MenuLink", "expanded", b.Produce("menu_link_expanded", linkOf)).
		AddFieldResolver("MenuLink", "url", b.Compose(
			b.Produce("menu_link_url", linkOf),
			path(b.FromParent()),
		)).
		AddFieldResolver("MenuLink", "target", b.Produce("menu_link_attribute", resolve.Mapping{
			"link":      link,
			"attribute": b.FromValue("target"),
		})).
		AddFieldResolver("MenuLink", "links", b.Produce("menu_tree_subtree", resolve.Mapping{
			"element": b.FromParent(),
		}))
}
