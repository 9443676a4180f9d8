package executor

import (
	language "github.com/hanpama/sdlresolver/internal/language"
	schema "github.com/hanpama/sdlresolver/internal/schema"
)

// fieldGroup is every field node of a selection set that answers to one
// response name. Nodes[0] decides the field definition.
type fieldGroup struct {
	ResponseName string
	Nodes        []*language.Field
}

// fieldCollector flattens fragments into response-name groups for one
// concrete object type.
type fieldCollector struct {
	state   *executionState
	object  *schema.Type
	groups  []fieldGroup
	byName  map[string]int
	visited map[string]struct{}
}

// collectFields groups the fields of selectionSet applying to objectType,
// in first-occurrence order.
func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) []fieldGroup {
	c := &fieldCollector{
		state:   state,
		object:  objectType,
		byName:  map[string]int{},
		visited: map[string]struct{}{},
	}
	c.collect(selectionSet)
	return c.groups
}

func (c *fieldCollector) collect(set language.SelectionSet) {
	for _, selection := range set {
		switch sel := selection.(type) {
		case *language.Field:
			if c.included(sel.Directives) {
				c.add(sel)
			}
		case *language.InlineFragment:
			if c.included(sel.Directives) && c.applies(sel.TypeCondition) {
				c.collect(sel.SelectionSet)
			}
		case *language.FragmentSpread:
			if !c.included(sel.Directives) {
				continue
			}
			if _, seen := c.visited[sel.Name]; seen {
				continue
			}
			c.visited[sel.Name] = struct{}{}
			frag := c.state.document.Fragments.ForName(sel.Name)
			if frag == nil || !c.applies(frag.TypeCondition) || !c.included(frag.Directives) {
				continue
			}
			c.collect(frag.SelectionSet)
		}
	}
}

func (c *fieldCollector) add(f *language.Field) {
	name := f.Alias
	if name == "" {
		name = f.Name
	}
	if i, ok := c.byName[name]; ok {
		c.groups[i].Nodes = append(c.groups[i].Nodes, f)
		return
	}
	c.byName[name] = len(c.groups)
	c.groups = append(c.groups, fieldGroup{ResponseName: name, Nodes: []*language.Field{f}})
}

// applies reports whether a type condition matches the collected object.
// Conditions on interfaces and unions match their possible types.
func (c *fieldCollector) applies(condition string) bool {
	if condition == "" || condition == c.object.Name {
		return true
	}
	return c.state.schema.IsPossibleType(condition, c.object.Name)
}

// included evaluates @skip and @include. An argument that does not
// evaluate to a boolean leaves the node in.
func (c *fieldCollector) included(dirs language.DirectiveList) bool {
	if skip, _ := c.directiveIf(dirs, "skip").(bool); skip {
		return false
	}
	include, ok := c.directiveIf(dirs, "include").(bool)
	return !ok || include
}

func (c *fieldCollector) directiveIf(dirs language.DirectiveList, name string) any {
	d := dirs.ForName(name)
	if d == nil {
		return nil
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return nil
	}
	return valueFromAST(arg.Value, c.state.variableValues)
}
