package presentation

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffOp marks a line as kept, added or removed.
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffInsert
	DiffDelete
)

// DiffLine is one line of a line-level diff.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// LineDiff compares two lists line by line. Every element of a and b is one
// line; elements must not contain newlines.
func LineDiff(a, b []string) []DiffLine {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(joinLines(a), joinLines(b))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		op := DiffEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = DiffInsert
		case diffmatchpatch.DiffDelete:
			op = DiffDelete
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, DiffLine{Op: op, Text: line})
		}
	}
	return out
}

// DiffStats counts inserted and deleted lines.
func DiffStats(lines []DiffLine) (added, removed int) {
	for _, l := range lines {
		switch l.Op {
		case DiffInsert:
			added++
		case DiffDelete:
			removed++
		}
	}
	return added, removed
}

func joinLines(values []string) string {
	var sb strings.Builder
	for _, v := range values {
		sb.WriteString(v)
		sb.WriteByte('\n')
	}
	return sb.String()
}
