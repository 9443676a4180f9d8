package typeddata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
)

// PathResolutionError reports a property path that does not fit the shape
// of the data it is applied to.
type PathResolutionError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *PathResolutionError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("unable to resolve property path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("unable to resolve property path %q at %q: %s", e.Path, e.Segment, e.Reason)
}

// FetchByPath walks the dot-delimited path starting at value and returns
// the plain value found at its end.
//
// def describes the shape of value and may be nil. Segments that address
// a list either index it numerically or, for any other name, apply to its
// first item. Absent data along the way yields nil without error.
// Cacheable values met while walking are merged into c, which may be nil.
func FetchByPath(def *Definition, value any, path string, c *cachemeta.Collector) (any, error) {
	if path == "" {
		return nil, &PathResolutionError{Path: path, Reason: "empty path"}
	}
	segments := strings.Split(path, ".")
	cur, curDef := value, def
	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		if seg == "" {
			return nil, &PathResolutionError{Path: path, Reason: fmt.Sprintf("empty segment at position %d", i)}
		}
		if cur == nil {
			return nil, nil
		}
		if c != nil {
			c.AddDependency(cur)
		}
		if cur, _, _ = cachemeta.Unwrap(cur); cur == nil {
			return nil, nil
		}

		switch data := Wrap(cur).(type) {
		case ListData:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				if data.Len() == 0 {
					return nil, nil
				}
				cur, curDef = data.Index(0), curDef.item()
				i--
				continue
			}
			if idx < 0 {
				return nil, &PathResolutionError{Path: path, Segment: seg, Reason: "negative list index"}
			}
			if idx >= data.Len() {
				return nil, nil
			}
			cur, curDef = data.Index(idx), curDef.item()
		case ComplexData:
			pdef, declared := curDef.property(seg)
			if !declared {
				return nil, &PathResolutionError{Path: path, Segment: seg, Reason: fmt.Sprintf("property is not declared on %s", curDef.DataType)}
			}
			v, ok := data.Property(seg)
			if !ok {
				return nil, &PathResolutionError{Path: path, Segment: seg, Reason: fmt.Sprintf("unknown property of %s", data.DataType())}
			}
			cur, curDef = v, pdef
		default:
			return nil, &PathResolutionError{Path: path, Segment: seg, Reason: fmt.Sprintf("cannot read a property of %s value", DataTypeOf(cur))}
		}
	}
	if c != nil && cur != nil {
		c.AddDependency(cur)
	}
	cur, _, _ = cachemeta.Unwrap(cur)
	return Unwrap(cur), nil
}
