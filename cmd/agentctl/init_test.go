package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitProjectVariants(t *testing.T) {
	dir := t.TempDir()
	for _, typ := range []string{"minimal", "sidekick", "mcp"} {
		if err := initProject(filepath.Join(dir, typ), typ); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		b, err := os.ReadFile(filepath.Join(dir, typ, "main.go"))
		if err != nil {
			t.Fatalf("%s main.go missing: %v", typ, err)
		}
		if !strings.Contains(string(b), "github.com/KamdynS/agent-contrib/") {
			t.Errorf("%s main.go does not import the module", typ)
		}
		mod, _ := os.ReadFile(filepath.Join(dir, typ, "go.mod"))
		if !strings.HasPrefix(string(mod), "module "+typ+"\n") {
			t.Errorf("%s go.mod = %q", typ, mod)
		}
	}
	if err := initProject(filepath.Join(dir, "bad"), "nope"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad")); !os.IsNotExist(err) {
		t.Errorf("unknown type should not create a directory")
	}
}

func TestGraphCommandPrintsSidekick(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"graph", "--conds"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	diagram := out.String()
	for _, want := range []string{"graph TD\n", "clarification_check", "evaluator", "|END|"} {
		if !strings.Contains(diagram, want) {
			t.Errorf("diagram missing %q:\n%s", want, diagram)
		}
	}
}

func TestGraphCommandEventPlanner(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"graph", "event_planner", "--dir", "LR"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "graph LR\n") || !strings.Contains(out.String(), "intake") {
		t.Errorf("unexpected diagram:\n%s", out.String())
	}
}

func TestGraphCommandUnknown(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"graph", "nope"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unknown graph")
	}
}
