package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"crank/pkg/interpreter"
	"crank/pkg/parser"
	"crank/pkg/runtime"
)

const cliVersion = "crank 0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}
	switch args[0] {
	case "--help", "-h":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliVersion)
		return 0
	case "run":
		return runEntry(args[1:])
	case "repl":
		return runRepl(args[1:])
	default:
		return runEntry(args)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: crank <command> [arguments]

Commands:
  run <file.js>   execute a script
  repl            start an interactive session
  version         print the version

Run flags:
  -steps N        abort after N evaluation steps (0 means unlimited)
  -trace          log engine internals to stderr
`)
}

// wakeup delivers the resolution of one deferred native call back to
// the driving loop.
type wakeup struct {
	token string
	value any
}

func runEntry(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	steps := fs.Uint64("steps", 0, "maximum number of evaluation steps")
	trace := fs.Bool("trace", false, "log engine internals to stderr")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		printUsage()
		return 1
	}

	path := fs.Arg(0)
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	program, err := parser.Parse(path, string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	wakeups := make(chan wakeup, 16)
	opts := []interpreter.Option{
		interpreter.WithBootstrap(hostGlobals(os.Stdout, wakeups)),
	}
	if *trace {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		opts = append(opts, interpreter.WithLogger(slog.New(handler)))
	}
	eng, err := interpreter.New(program, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for {
		more, err := eng.Step()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if !more {
			break
		}
		if *steps > 0 && eng.Steps() >= *steps {
			fmt.Fprintf(os.Stderr, "step budget of %d exhausted\n", *steps)
			return 1
		}
		if eng.Awaiting() {
			w := <-wakeups
			if err := eng.Resume(w.token, w.value); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
	}
	if err := eng.Failure(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// hostGlobals installs the script-facing host functions: log, now,
// and a deferred sleep that exercises the suspend/resume path.
func hostGlobals(out io.Writer, wakeups chan wakeup) interpreter.Bootstrap {
	return func(eng *interpreter.Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "log", func(call *interpreter.NativeCall) (any, error) {
			parts := make([]string, 0, call.NumArgs())
			for i := 0; i < call.NumArgs(); i++ {
				parts = append(parts, runtime.ToString(call.RawArg(i)))
			}
			fmt.Fprintln(out, strings.Join(parts, " "))
			return nil, nil
		})

		eng.RegisterNative(global, "now", func(call *interpreter.NativeCall) (any, error) {
			return float64(time.Now().UnixMilli()), nil
		})

		eng.RegisterNative(global, "sleep", func(call *interpreter.NativeCall) (any, error) {
			ms, _ := call.Arg(0).(float64)
			if ms < 0 {
				return nil, call.Throw("RangeError", "sleep duration must be non-negative")
			}
			p, err := call.Defer()
			if err != nil {
				return nil, err
			}
			go func(token string, d time.Duration) {
				time.Sleep(d)
				wakeups <- wakeup{token: token}
			}(p.Token, time.Duration(ms)*time.Millisecond)
			return p, nil
		})

		return nil
	}
}
