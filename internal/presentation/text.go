package presentation

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 100

var (
	textMutedColor     = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}
	textAccentColor    = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}
	statusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	statusWarningColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#FECA57"}
	statusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
)

// Text renders DTOs for a terminal.
type Text struct {
	w     io.Writer
	width int

	title  lipgloss.Style
	muted  lipgloss.Style
	accent lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	fail   lipgloss.Style
}

// TextOption configures a Text renderer.
type TextOption func(*textConfig)

type textConfig struct {
	color bool
	width int
}

// WithColor enables or disables styling. Styling is on by default and is
// dropped anyway when w is not a terminal.
func WithColor(enabled bool) TextOption {
	return func(c *textConfig) { c.color = enabled }
}

// WithWidth sets the line width used for truncation and wrapping.
func WithWidth(width int) TextOption {
	return func(c *textConfig) {
		if width > 0 {
			c.width = width
		}
	}
}

// NewText creates a text renderer writing to w.
func NewText(w io.Writer, opts ...TextOption) *Text {
	cfg := textConfig{color: true, width: DefaultWidth}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := lipgloss.NewRenderer(w)
	if !cfg.color {
		r.SetColorProfile(termenv.Ascii)
		r.SetHasDarkBackground(true)
	}
	return &Text{
		w:      w,
		width:  cfg.width,
		title:  r.NewStyle().Bold(true),
		muted:  r.NewStyle().Foreground(textMutedColor),
		accent: r.NewStyle().Foreground(textAccentColor),
		ok:     r.NewStyle().Foreground(statusSuccessColor),
		warn:   r.NewStyle().Foreground(statusWarningColor),
		fail:   r.NewStyle().Foreground(statusErrorColor).Bold(true),
	}
}

// Backends renders the backend table. The default backend is marked with *.
func (t *Text) Backends(backends []BackendDTO) error {
	rows := make([][]string, 0, len(backends))
	for _, b := range backends {
		mark := " "
		if b.Default {
			mark = "*"
		}
		rows = append(rows, []string{mark, b.Display, orDash(b.Parent), orDash(b.DefaultFlow), b.Description})
	}
	return t.table([]string{"", "BACKEND", "PARENT", "DEFAULT FLOW", "DESCRIPTION"}, rows)
}

// Flows renders one row per flow.
func (t *Text) Flows(flows []FlowDTO) error {
	if len(flows) == 0 {
		return t.line(t.muted.Render("no flows"))
	}
	rows := make([][]string, 0, len(flows))
	for _, f := range flows {
		passes := strconv.Itoa(len(f.Passes))
		if f.Aggregate {
			passes = "-"
		}
		rows = append(rows, []string{f.Name, passes, strings.Join(f.Requires, ", ")})
	}
	return t.table([]string{"FLOW", "PASSES", "REQUIRES"}, rows)
}

// Plan renders a numbered pass list, grouped by contributing flow when the
// plan carries contributions.
func (t *Text) Plan(plan PlanDTO) error {
	header := fmt.Sprintf("%s %s", t.title.Render(plan.Flow), t.muted.Render(fmt.Sprintf("(%d passes)", len(plan.Passes))))
	if err := t.line(header); err != nil {
		return err
	}
	digits := len(strconv.Itoa(len(plan.Passes)))

	if len(plan.Contributions) == 0 {
		for i, p := range plan.Passes {
			if err := t.line(fmt.Sprintf("  %*d  %s", digits, i+1, t.truncate(p, digits+4))); err != nil {
				return err
			}
		}
		return nil
	}

	n := 0
	for _, c := range plan.Contributions {
		if err := t.line("  " + t.accent.Render(c.Flow)); err != nil {
			return err
		}
		for _, p := range c.Passes {
			n++
			if err := t.line(fmt.Sprintf("    %*d  %s", digits, n, t.truncate(p, digits+6))); err != nil {
				return err
			}
		}
	}
	return nil
}

// Report renders one run: a summary line, every step, the passes that never
// ran and the failure if any.
func (t *Text) Report(r ReportDTO) error {
	state := t.ok.Render(r.State)
	if r.Failure != nil {
		state = t.fail.Render(r.State)
	}
	summary := fmt.Sprintf("%s %s  %s  %s", t.muted.Render("run"), shortID(r.RunID), t.title.Render(r.Flow), state)
	if err := t.line(summary); err != nil {
		return err
	}

	digits := len(strconv.Itoa(len(r.Plan)))
	nameWidth := 0
	for _, p := range r.Plan {
		nameWidth = max(nameWidth, runewidth.StringWidth(p))
	}
	nameWidth = min(nameWidth, max(t.width/2, 10))

	for _, s := range r.Steps {
		mark, outcome := t.ok.Render("✓"), t.muted.Render(s.Outcome)
		if s.Error != "" {
			mark, outcome = t.fail.Render("✗"), t.fail.Render("failed")
		} else if s.Outcome == "transformed" {
			outcome = t.accent.Render(s.Outcome)
		}
		name := runewidth.FillRight(runewidth.Truncate(s.Pass, nameWidth, "…"), nameWidth)
		if err := t.line(fmt.Sprintf("  %s %*d  %s  %s %s", mark, digits, s.Index+1, name, outcome,
			t.muted.Render(fmt.Sprintf("%.2fms", s.Duration)))); err != nil {
			return err
		}
	}
	for i, p := range r.Skipped {
		name := runewidth.Truncate(p, nameWidth, "…")
		if err := t.line(fmt.Sprintf("  %s %*d  %s", t.muted.Render("·"), digits, len(r.Steps)+i+1, t.muted.Render(name))); err != nil {
			return err
		}
	}

	if r.Failure != nil {
		msg := fmt.Sprintf("pass %d (%s): %s", r.Failure.Index+1, r.Failure.Pass, r.Failure.Error)
		if err := t.line(t.fail.Render(wordwrap.String(msg, t.width))); err != nil {
			return err
		}
	}
	return t.line(t.muted.Render(fmt.Sprintf("%d transformed, %d skipped, %.2fms", r.Transformed, len(r.Skipped), r.Duration)))
}

// Reports renders run history, newest first.
func (t *Text) Reports(reports []ReportDTO) error {
	if len(reports) == 0 {
		return t.line(t.muted.Render("no recorded runs"))
	}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		passes := fmt.Sprintf("%d/%d", len(r.Steps), len(r.Plan))
		rows = append(rows, []string{shortID(r.RunID), r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.State, passes, r.Flow})
	}
	return t.table([]string{"RUN", "STARTED", "STATE", "PASSES", "FLOW"}, rows)
}

// Missing renders the result of a catalog check.
func (t *Text) Missing(missing []MissingPassDTO) error {
	if len(missing) == 0 {
		return t.line(t.ok.Render("every flow resolves to registered passes"))
	}
	rows := make([][]string, 0, len(missing))
	for _, m := range missing {
		rows = append(rows, []string{m.Flow, m.Pass})
	}
	if err := t.table([]string{"FLOW", "MISSING PASS"}, rows); err != nil {
		return err
	}
	return t.line(t.warn.Render(fmt.Sprintf("%d missing", len(missing))))
}

// Diff renders the requirement and plan differences between two flows.
func (t *Text) Diff(d DiffDTO) error {
	if err := t.line(fmt.Sprintf("%s %s\n%s %s", t.fail.Render("---"), d.A, t.ok.Render("+++"), d.B)); err != nil {
		return err
	}
	for _, section := range []struct {
		name string
		a, b []string
	}{
		{"requires", d.ARequires, d.BRequires},
		{"plan", d.APlan, d.BPlan},
	} {
		lines := LineDiff(section.a, section.b)
		added, removed := DiffStats(lines)
		if err := t.line(t.accent.Render(fmt.Sprintf("@@ %s +%d -%d @@", section.name, added, removed))); err != nil {
			return err
		}
		for _, l := range lines {
			var s string
			switch l.Op {
			case DiffInsert:
				s = t.ok.Render("+" + l.Text)
			case DiffDelete:
				s = t.fail.Render("-" + l.Text)
			default:
				s = " " + l.Text
			}
			if err := t.line(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// table pads every column to its widest cell and truncates the last column
// to the renderer width.
func (t *Text) table(header []string, rows [][]string) error {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row[:len(row)-1] {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	format := func(cells []string) string {
		var sb strings.Builder
		used := 0
		for i, cell := range cells {
			if i == len(cells)-1 {
				sb.WriteString(runewidth.Truncate(cell, max(t.width-used, 1), "…"))
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
			used += widths[i] + 2
		}
		return strings.TrimRight(sb.String(), " ")
	}

	if err := t.line(t.muted.Render(format(header))); err != nil {
		return err
	}
	for _, row := range rows {
		if err := t.line(format(row)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Text) truncate(s string, indent int) string {
	return runewidth.Truncate(s, max(t.width-indent, 1), "…")
}

func (t *Text) line(s string) error {
	_, err := fmt.Fprintln(t.w, s)
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
