package interpreter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"gopkg.in/yaml.v3"

	"crank/pkg/parser"
	"crank/pkg/runtime"
)

// fixtureCase is one scripted program plus its expected observable
// behaviour. Each case is executed twice, once with Run and once one
// step at a time, and both executions must agree.
type fixtureCase struct {
	Name   string   `yaml:"name"`
	Source string   `yaml:"source"`
	Result *string  `yaml:"result"`
	Output []string `yaml:"output"`
	Error  string   `yaml:"error"`
}

type fixtureFile struct {
	Cases []fixtureCase `yaml:"cases"`
}

func TestFixtures(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob testdata: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no fixture files under testdata")
	}
	for _, path := range files {
		path := path
		group := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(group, func(t *testing.T) {
			for _, c := range loadFixtureFile(t, path) {
				c := c
				t.Run(c.Name, func(t *testing.T) {
					runFixtureCase(t, c)
				})
			}
		})
	}
}

func loadFixtureFile(t *testing.T, path string) []fixtureCase {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	var doc fixtureFile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	if len(doc.Cases) == 0 {
		t.Fatalf("%s declares no cases", path)
	}
	return doc.Cases
}

func runFixtureCase(t *testing.T, c fixtureCase) {
	t.Helper()

	ranOutput, ranErr, ranValue := executeFixture(t, c, false)
	steppedOutput, steppedErr, steppedValue := executeFixture(t, c, true)

	if diff := deep.Equal(ranOutput, steppedOutput); diff != nil {
		t.Fatalf("run/step output divergence: %v", diff)
	}
	if (ranErr == nil) != (steppedErr == nil) {
		t.Fatalf("run/step error divergence: run=%v step=%v", ranErr, steppedErr)
	}
	if ranErr == nil {
		ran, stepped := runtime.ToString(ranValue), runtime.ToString(steppedValue)
		if ran != stepped {
			t.Fatalf("run/step result divergence: %q vs %q", ran, stepped)
		}
	}

	checkFixtureOutcome(t, c, ranOutput, ranErr, ranValue)
}

// executeFixture runs one fixture program and reports everything the
// program was able to observe or emit.
func executeFixture(t *testing.T, c fixtureCase, stepwise bool) ([]string, error, runtime.Value) {
	t.Helper()

	program, err := parser.Parse(c.Name+".js", c.Source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var output []string
	eng, err := New(program, WithBootstrap(func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "log", func(call *NativeCall) (any, error) {
			for i := 0; i < call.NumArgs(); i++ {
				output = append(output, runtime.ToString(call.RawArg(i)))
			}
			return nil, nil
		})
		return nil
	}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	if !stepwise {
		return output, eng.Run(), eng.Value()
	}
	for {
		more, err := eng.Step()
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if eng.Awaiting() {
			t.Fatal("fixture suspended on await; fixtures must be synchronous")
		}
		if !more {
			break
		}
	}
	return output, eng.Failure(), eng.Value()
}

func checkFixtureOutcome(t *testing.T, c fixtureCase, output []string, err error, value runtime.Value) {
	t.Helper()

	if c.Error != "" {
		if err == nil {
			t.Fatalf("expected error containing %q, program completed with %s",
				c.Error, runtime.ToString(value))
		}
		if !strings.Contains(err.Error(), c.Error) {
			t.Fatalf("error %q does not contain %q", err.Error(), c.Error)
		}
	} else if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}

	if c.Result != nil {
		if got := runtime.ToString(value); got != *c.Result {
			t.Fatalf("result = %q, want %q", got, *c.Result)
		}
	}

	want := c.Output
	if want == nil {
		want = []string{}
	}
	got := output
	if got == nil {
		got = []string{}
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Fatalf("output mismatch: %v", diff)
	}
}
