package pipeline

import (
	"strings"
	"testing"
)

func TestCompileAndRunAddsAndLogs(t *testing.T) {
	source := "let x = 1 + 2;\nstdout x;\n"

	res := Compile(source)
	if res.Failed {
		t.Fatalf("unexpected failure, diagnostics: %v", res.Diagnostics.All())
	}
	if len(res.Timings) == 0 {
		t.Fatalf("expected phase timings to be recorded")
	}

	var out strings.Builder
	if err := Run(res.Bytecode, &out); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if got := out.String(); got != "3\n" {
		t.Fatalf("expected stdout %q, got %q", "3\n", got)
	}
}

func TestCompileReportsParseDiagnostics(t *testing.T) {
	res := Compile("let = 1;\n")
	if !res.Failed {
		t.Fatalf("expected a parse failure for a missing identifier")
	}
	if res.Diagnostics.Len() == 0 {
		t.Fatalf("expected at least one diagnostic")
	}
}

func TestCompileReportsTypeDiagnostics(t *testing.T) {
	res := Compile("let x = 1 + \"oops\";\nstdout x;\n")
	if !res.Failed {
		t.Fatalf("expected a type-checking failure mixing int and string")
	}
}
