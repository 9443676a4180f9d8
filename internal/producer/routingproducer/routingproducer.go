// Package routingproducer provides data producers for URLs.
package routingproducer

import (
	"fmt"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/producer"
	"github.com/hanpama/sdlresolver/internal/resolve"
	"github.com/hanpama/sdlresolver/internal/routing"
)

var (
	PathDefinition = producer.Definition{
		ID:       "url_path",
		Name:     "Url path",
		Produces: "string",
		Consumes: []producer.Input{producer.Required("url", "url")},
	}
	RouteDefinition = producer.Definition{
		ID:       "route_load",
		Name:     "Load route",
		Produces: "url",
		Consumes: []producer.Input{producer.Required("path", "string")},
	}
)

// Register adds the routing producers to m.
func Register(m *producer.Manager, generator *routing.Generator) error {
	if err := m.Register(PathDefinition, func() producer.Resolver { return urlPath{generator} }); err != nil {
		return err
	}
	return m.Register(RouteDefinition, func() producer.Resolver {
		return producer.ResolverFunc(func(in producer.Inputs, _ *resolve.Context, _ *resolve.FieldInfo) (any, error) {
			return routing.FromPath(in.String("path")), nil
		})
	})
}

type urlPath struct{ generator *routing.Generator }

// Resolve returns the generated path together with the metadata of its
// generation.
func (p urlPath) Resolve(in producer.Inputs, _ *resolve.Context, info *resolve.FieldInfo) (any, error) {
	u, ok := in.Get("url").(*routing.URL)
	if !ok {
		return nil, fmt.Errorf("%s.%s: expected a url, got %T", info.ParentType, info.FieldName, in.Get("url"))
	}
	out, err := p.generator.Generate(u)
	if err != nil {
		return nil, err
	}
	return &cachemeta.Value{Value: out.URL, Metadata: out.Metadata}, nil
}
