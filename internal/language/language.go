package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// Error is a located GraphQL error produced while parsing or validating.
type Error = gqlerror.Error

// ErrorList is a list of Errors. It implements error.
type ErrorList = gqlerror.List

// ParseQuery parses an executable document without validating it.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadQuery parses source and validates it against sc.
func LoadQuery(sc *ast.Schema, source string) (*QueryDocument, error) {
	doc, errs := gqlparser.LoadQuery(sc, source)
	if len(errs) > 0 {
		return nil, errs
	}
	return doc, nil
}
