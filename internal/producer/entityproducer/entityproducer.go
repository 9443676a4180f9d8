// Package entityproducer provides data producers that load entities and
// read their base values.
package entityproducer

import (
	"fmt"
	"slices"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/deferred"
	"github.com/hanpama/sdlresolver/internal/entity"
	"github.com/hanpama/sdlresolver/internal/producer"
	"github.com/hanpama/sdlresolver/internal/resolve"
	"github.com/hanpama/sdlresolver/internal/routing"
)

var (
	LoadDefinition = producer.Definition{
		ID:          "entity_load",
		Name:        "Load entity",
		Description: "Loads a single entity, batched with other loads of the same type.",
		Produces:    "entity",
		Consumes: []producer.Input{
			producer.Required("type", "string"),
			producer.Required("id", "string"),
			producer.Optional("language", "string"),
			producer.Optional("bundles", "string").Multi(),
		},
	}
	LabelDefinition = producer.Definition{
		ID:       "entity_label",
		Name:     "Entity label",
		Produces: "string",
		Consumes: []producer.Input{producer.Required("entity", "entity")},
	}
	IDDefinition = producer.Definition{
		ID:       "entity_id",
		Name:     "Entity identifier",
		Produces: "string",
		Consumes: []producer.Input{producer.Required("entity", "entity")},
	}
	BundleDefinition = producer.Definition{
		ID:       "entity_bundle",
		Name:     "Entity bundle",
		Produces: "string",
		Consumes: []producer.Input{producer.Required("entity", "entity")},
	}
	URLDefinition = producer.Definition{
		ID:       "entity_url",
		Name:     "Entity url",
		Produces: "url",
		Consumes: []producer.Input{producer.Required("entity", "entity")},
	}
)

// Register adds the entity producers to m.
func Register(m *producer.Manager, storage entity.Storage, buffer *entity.Buffer) error {
	regs := []struct {
		def     producer.Definition
		factory producer.Factory
	}{
		{LoadDefinition, func() producer.Resolver { return &Load{storage: storage, buffer: buffer} }},
		{LabelDefinition, reader(func(e entity.Entity) any { return e.Label() })},
		{IDDefinition, reader(func(e entity.Entity) any { return e.ID() })},
		{BundleDefinition, reader(func(e entity.Entity) any { return e.Bundle() })},
		{URLDefinition, reader(func(e entity.Entity) any { return routing.EntityURL(e.EntityTypeID(), e.ID()) })},
	}
	for _, r := range regs {
		if err := m.Register(r.def, r.factory); err != nil {
			return err
		}
	}
	return nil
}

// Load resolves entity_load.
type Load struct {
	storage entity.Storage
	buffer  *entity.Buffer
}

func (l *Load) Resolve(in producer.Inputs, rc *resolve.Context, _ *resolve.FieldInfo) (any, error) {
	typ, id := in.String("type"), in.String("id")
	language, bundles := in.String("language"), in.Strings("bundles")
	load := l.buffer.Add(rc.Context(), typ, id)

	return deferred.New(func() (any, error) {
		e, err := load()
		if err != nil {
			return nil, err
		}
		if e == nil {
			// Purge whenever a new entity of this type is saved.
			if t, ok := l.storage.EntityType(typ); ok {
				rc.MergeCacheMetadata(cachemeta.New(t.ListCacheTags()...))
			}
			return nil, nil
		}
		if in.Has("bundles") && !slices.Contains(bundles, e.Bundle()) {
			rc.AddCacheableDependency(e)
			return nil, nil
		}
		if language != "" && language != e.Language() && e.HasTranslation(language) {
			e = e.Translation(language)
		}
		return e, nil
	}), nil
}

func reader(read func(entity.Entity) any) producer.Factory {
	return func() producer.Resolver {
		return producer.ResolverFunc(func(in producer.Inputs, _ *resolve.Context, info *resolve.FieldInfo) (any, error) {
			e, ok := in.Get("entity").(entity.Entity)
			if !ok {
				return nil, fmt.Errorf("%s.%s: expected an entity, got %T", info.ParentType, info.FieldName, in.Get("entity"))
			}
			return read(e), nil
		})
	}
}
