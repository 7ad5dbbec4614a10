package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAcceptsSupportedSyntax(t *testing.T) {
	src := `
		var total = 0;
		function add(a, b) { return a + b; }
		for (var i = 0; i < 3; i++) {
			total = add(total, i);
		}
		try { throw total; } catch (e) {} finally {}
		var o = { a: [1, 2], f: function() { return this; } };
		outer: while (true) { break outer; }
	`
	program, err := Parse("supported.js", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if program == nil || len(program.Body) == 0 {
		t.Fatalf("expected a non-empty program")
	}
}

func TestParseRejectsUnsupportedSyntax(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		detail string
	}{
		{"with", `with (o) { x; }`, "with statements"},
		{"switch", `switch (x) { case 1: break; }`, "switch statements"},
		{"regexp", `var r = /ab+c/;`, "regular expression literals"},
		{"getter", `var o = { get x() { return 1; } };`, "getter/setter"},
		{"setter", `var o = { set x(v) {} };`, "getter/setter"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse(c.name+".js", c.src)
			if err == nil {
				t.Fatalf("expected rejection")
			}
			var ce *ConstructError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConstructError, got %T", err)
			}
			if !strings.Contains(ce.Message, c.detail) {
				t.Fatalf("message %q does not mention %q", ce.Message, c.detail)
			}
		})
	}
}

func TestParseReportsSyntaxErrors(t *testing.T) {
	_, err := Parse("broken.js", `var = ;`)
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	var ce *ConstructError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConstructError, got %T", err)
	}
}

func TestValidateNilProgram(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatalf("expected nil program to be rejected")
	}
}
