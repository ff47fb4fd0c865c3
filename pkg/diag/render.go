package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/vyn-lang/vync/pkg/source"
)

// Render formats a Diagnostic using the report template from the spec:
//
//	<Category>::Error -> <message>
//
//	Error caused by:
//	    Ln <L>:<C> | <source line>
//	                ^~~~
//
//	[Optional secondary snippet]
//
//	Hint: <hint text>
//
// useColor controls whether ANSI escapes (via fatih/color) are emitted;
// the CLI disables this when --no-progress is given.
func Render(d Diagnostic, source string, useColor bool) string {
	var b strings.Builder

	bold := colorFn(useColor, color.Bold)
	red := colorFn(useColor, color.FgRed)
	cyan := colorFn(useColor, color.FgCyan)
	yellow := colorFn(useColor, color.FgYellow)
	white := colorFn(useColor, color.FgWhite)

	b.WriteString(bold(red(fmt.Sprintf("%s::Error", d.Category()))))
	b.WriteString(red(fmt.Sprintf(" -> %s\n\n", d.Message)))
	b.WriteString(bold(white("Error caused by:\n")))
	writeSnippet(&b, source, d.Span, cyan, red)

	if d.Secondary != nil {
		b.WriteString("\n")
		b.WriteString(white(d.Secondary.Label + ":\n"))
		writeSnippet(&b, source, d.Secondary.Span, cyan, red)
	}

	if d.Hint != "" {
		b.WriteString("\n")
		b.WriteString(bold(yellow("Hint: ")))
		b.WriteString(d.Hint)
		b.WriteString("\n")
	}

	return b.String()
}

func writeSnippet(b *strings.Builder, src string, span source.Span, cyan, red func(string) string) {
	lines := strings.Split(src, "\n")
	line := span.Line
	var content string
	if line >= 1 && line <= len(lines) {
		content = lines[line-1]
	} else {
		content = "<source unavailable>"
	}

	prefix := fmt.Sprintf("Ln %d:%d", line, span.StartColumn)
	fmt.Fprintf(b, "    %s | %s\n", cyan(prefix), content)

	gutter := strings.Repeat(" ", len(prefix)+3)
	pad := strings.Repeat(" ", maxInt(span.StartColumn-1, 0))
	caret := "^" + strings.Repeat("~", span.Width()-1)
	fmt.Fprintf(b, "    %s%s%s\n", gutter, pad, red(caret))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func colorFn(enabled bool, attrs ...color.Attribute) func(string) string {
	c := color.New(attrs...)
	c.EnableColor()
	if !enabled {
		return func(s string) string { return s }
	}
	return c.Sprint
}

// RenderAll renders every diagnostic in the collector, in order,
// followed by a summary line, matching the CLI's multi-error output.
func RenderAll(c *Collector, src string, useColor bool) string {
	var b strings.Builder
	for _, d := range c.All() {
		b.WriteString(Render(d, src, useColor))
		b.WriteString("\n")
	}
	if n := c.Len(); n > 0 {
		word := "error"
		if n != 1 {
			word = "errors"
		}
		fmt.Fprintf(&b, "* Could not compile due to %d %s\n", n, word)
	}
	return b.String()
}
