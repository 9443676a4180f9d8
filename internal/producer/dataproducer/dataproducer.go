// Package dataproducer provides generic data producers over typed data.
package dataproducer

import (
	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/producer"
	"github.com/hanpama/sdlresolver/internal/resolve"
	"github.com/hanpama/sdlresolver/internal/typeddata"
)

var PropertyPathDefinition = producer.Definition{
	ID:          "property_path",
	Name:        "Property path",
	Description: "Resolves a dot-delimited property path on a typed value.",
	Produces:    "any",
	Consumes: []producer.Input{
		producer.Required("path", "string"),
		producer.Required("value", "any"),
		producer.Optional("type", "string"),
	},
}

// Register adds the data producers to m.
func Register(m *producer.Manager) error {
	return m.Register(PropertyPathDefinition, func() producer.Resolver {
		return producer.ResolverFunc(propertyPath)
	})
}

func propertyPath(in producer.Inputs, rc *resolve.Context, _ *resolve.FieldInfo) (any, error) {
	var def *typeddata.Definition
	if t := in.String("type"); t != "" {
		def = typeddata.NewDefinition(t)
	}
	collector := cachemeta.NewCollector()
	out, err := typeddata.FetchByPath(def, in.Get("value"), in.String("path"), collector)
	if err != nil {
		return nil, err
	}
	rc.MergeCacheMetadata(collector.Metadata())
	return out, nil
}
