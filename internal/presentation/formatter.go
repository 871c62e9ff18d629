package presentation

import (
	"encoding/json"
	"io"
)

// Formatter handles JSON output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatJSON writes v as indented JSON. Every *DTO type in this package is
// written through it.
func (f *Formatter) FormatJSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatBackends formats a list of backends as JSON
func (f *Formatter) FormatBackends(backends []BackendDTO) error {
	return f.FormatJSON(backends)
}

// FormatFlows formats a list of flows as JSON
func (f *Formatter) FormatFlows(flows []FlowDTO) error {
	return f.FormatJSON(flows)
}

// FormatPlan formats a resolved plan as JSON
func (f *Formatter) FormatPlan(plan PlanDTO) error {
	return f.FormatJSON(plan)
}

// FormatReport formats a run report as JSON
func (f *Formatter) FormatReport(report ReportDTO) error {
	return f.FormatJSON(report)
}

// FormatReports formats run history as JSON
func (f *Formatter) FormatReports(reports []ReportDTO) error {
	return f.FormatJSON(reports)
}
