package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"crank/pkg/interpreter"
	"crank/pkg/parser"
	"crank/pkg/runtime"
)

const (
	historyFile = ".crank_history"
	promptMain  = ">> "
	promptCont  = ".. "
)

const replHelp = `REPL commands:
  :help    show this help
  :reset   clear the session
  :quit    exit
`

// runRepl reads snippets and evaluates them against an accumulated
// session. Engines are single-shot, so each snippet replays the whole
// session in a fresh engine; output already shown is suppressed and a
// snippet that fails is dropped from the session.
func runRepl(args []string) int {
	_ = args

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := filepath.Join(os.TempDir(), historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println(cliVersion + " (:quit to exit, :help for commands)")

	var session []string
	printed := 0
	for {
		src, ok := readSnippet(ln)
		if !ok {
			return 0
		}
		trimmed := strings.TrimSpace(src)
		switch trimmed {
		case "":
			continue
		case ":quit":
			return 0
		case ":reset":
			session = nil
			printed = 0
			continue
		case ":help":
			fmt.Print(replHelp)
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(trimmed, "\n", " "))

		candidate := append(append([]string{}, session...), src)
		value, output, err := evalSession(strings.Join(candidate, "\n"))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		session = candidate
		for _, line := range output[printed:] {
			fmt.Println(line)
		}
		printed = len(output)
		fmt.Println(runtime.ToString(value))
	}
}

// readSnippet collects one or more physical lines until they parse as
// a complete program. The second result is false on end of input.
func readSnippet(ln *liner.State) (string, bool) {
	var b strings.Builder
	prompt := promptMain
	for {
		line, err := ln.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			return "", true
		}
		if err == io.EOF {
			fmt.Println()
			return "", false
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return "", false
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)

		src := b.String()
		trimmed := strings.TrimSpace(src)
		if trimmed == "" || strings.HasPrefix(trimmed, ":") {
			return src, true
		}
		if _, err := parser.Parse("repl", src); err != nil && incompleteInput(err) {
			prompt = promptCont
			continue
		}
		return src, true
	}
}

func incompleteInput(err error) bool {
	return strings.Contains(err.Error(), "Unexpected end of input")
}

func evalSession(src string) (runtime.Value, []string, error) {
	program, err := parser.Parse("repl", src)
	if err != nil {
		return nil, nil, err
	}
	var output []string
	eng, err := interpreter.New(program, interpreter.WithBootstrap(
		func(eng *interpreter.Engine, global *runtime.Object) error {
			eng.RegisterNative(global, "log", func(call *interpreter.NativeCall) (any, error) {
				parts := make([]string, 0, call.NumArgs())
				for i := 0; i < call.NumArgs(); i++ {
					parts = append(parts, runtime.ToString(call.RawArg(i)))
				}
				output = append(output, strings.Join(parts, " "))
				return nil, nil
			})
			return nil
		}))
	if err != nil {
		return nil, nil, err
	}
	if err := eng.Run(); err != nil {
		return nil, output, err
	}
	return eng.Value(), output, nil
}
