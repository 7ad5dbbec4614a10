// Package parser is the boundary to the external lexer/parser. The
// engine consumes otto's syntax tree; this package produces that tree
// from source text and checks it against the node shapes the evaluator
// supports, so that unsupported syntax fails at construction time
// rather than mid-run.
package parser

import (
	"fmt"

	"github.com/robertkrimen/otto/ast"
	"github.com/robertkrimen/otto/file"
	"github.com/robertkrimen/otto/parser"
)

// ConstructError reports malformed or unsupported input detected
// before the engine reaches Running.
type ConstructError struct {
	Message string
	Pos     *file.Position
}

func (e *ConstructError) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("construction error at %s: %s", e.Pos.String(), e.Message)
	}
	return "construction error: " + e.Message
}

// Parse turns guest source text into a syntax tree and validates it.
func Parse(filename, src string) (*ast.Program, error) {
	program, err := parser.ParseFile(nil, filename, src, 0)
	if err != nil {
		return nil, &ConstructError{Message: err.Error()}
	}
	if err := Validate(program); err != nil {
		return nil, err
	}
	return program, nil
}

// Validate walks a pre-built tree and rejects node kinds outside the
// supported shape contract. Hosts supplying their own trees call this
// before constructing an engine.
func Validate(program *ast.Program) error {
	if program == nil {
		return &ConstructError{Message: "nil program"}
	}
	v := &shapeChecker{file: program.File}
	ast.Walk(v, program)
	return v.err
}

type shapeChecker struct {
	file *file.File
	err  error
}

func (c *shapeChecker) Enter(node ast.Node) ast.Visitor {
	if c.err != nil {
		return nil
	}
	switch n := node.(type) {
	case *ast.WithStatement:
		c.reject(n, "with statements are not supported")
	case *ast.SwitchStatement:
		c.reject(n, "switch statements are not supported")
	case *ast.RegExpLiteral:
		c.reject(n, "regular expression literals are not supported")
	case *ast.ObjectLiteral:
		for _, prop := range n.Value {
			if prop.Kind == "get" || prop.Kind == "set" {
				c.reject(n, "getter/setter properties are not supported")
				break
			}
		}
	case *ast.BadExpression:
		c.reject(n, "malformed expression")
	}
	if c.err != nil {
		return nil
	}
	return c
}

func (c *shapeChecker) Exit(ast.Node) {}

func (c *shapeChecker) reject(node ast.Node, msg string) {
	ce := &ConstructError{Message: msg}
	if c.file != nil {
		if pos := c.file.Position(node.Idx0()); pos != nil {
			ce.Pos = pos
		}
	}
	c.err = ce
}
