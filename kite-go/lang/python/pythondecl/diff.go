package pythondecl

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares two renderings line by line. Lines only in want are prefixed
// with "-", lines only in got with "+"; it returns "" when they are equal.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	dmp := diffmatchpatch.New()
	charsW, charsG, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(charsW, charsG, false), lines)

	var b strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			prefix = "  "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			b.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// DiffModules diffs the renderings of two modules
func DiffModules(want, got *Module) string {
	return Diff(want.String(), got.String())
}
