package resolve

import (
	"context"
	"testing"

	"github.com/hanpama/sdlresolver/internal/schema"
)

func newTestContext() *Context { return NewContext(context.Background()) }

func fieldInfo(parent, field string, path ...any) *FieldInfo {
	return &FieldInfo{ParentType: parent, FieldName: field, Path: path}
}

func mustSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return s
}
