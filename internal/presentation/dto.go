package presentation

import (
	"time"

	"github.com/zjrosen/passflow/internal/backend"
	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/pipeline"
)

// BackendDTO represents a backend for presentation
type BackendDTO struct {
	Name        string   `json:"name"`
	Display     string   `json:"display"`
	Parent      string   `json:"parent,omitempty"`
	Lineage     []string `json:"lineage,omitempty"`
	Description string   `json:"description,omitempty"`
	DefaultFlow string   `json:"default_flow,omitempty"`
	WriterFlow  string   `json:"writer_flow,omitempty"`
	Source      string   `json:"source,omitempty"`
	Default     bool     `json:"default"`
}

// FromBackend converts a backend to a DTO. lineage may be nil.
func FromBackend(b backend.Backend, lineage []string, defaultBackend string) BackendDTO {
	return BackendDTO{
		Name:        b.Name,
		Display:     b.Display,
		Parent:      b.Parent,
		Lineage:     lineage,
		Description: b.Description,
		DefaultFlow: nameString(b.DefaultFlow),
		WriterFlow:  nameString(b.WriterFlow),
		Source:      b.Source,
		Default:     b.Name == flow.NormalizeBackend(defaultBackend),
	}
}

// FlowDTO represents a flow definition
type FlowDTO struct {
	Name      string   `json:"name"`
	Backend   string   `json:"backend,omitempty"`
	Passes    []string `json:"passes"`
	Requires  []string `json:"requires"` // always present, may be empty
	Aggregate bool     `json:"aggregate"`
}

// FromFlow converts a flow definition to a DTO.
func FromFlow(def *flow.Definition) FlowDTO {
	passes := def.Passes()
	if passes == nil {
		passes = []string{}
	}
	return FlowDTO{
		Name:      def.Name().String(),
		Backend:   def.Backend(),
		Passes:    passes,
		Requires:  nameStrings(def.Requires()),
		Aggregate: def.IsAggregate(),
	}
}

// FromFlows converts a list of flow definitions.
func FromFlows(defs []*flow.Definition) []FlowDTO {
	out := make([]FlowDTO, 0, len(defs))
	for _, def := range defs {
		out = append(out, FromFlow(def))
	}
	return out
}

// ContributionDTO lists the passes one flow placed into a plan.
type ContributionDTO struct {
	Flow   string   `json:"flow"`
	Passes []string `json:"passes"`
}

// PlanDTO represents a resolved plan. Contributions is set by --explain.
type PlanDTO struct {
	Flow          string            `json:"flow"`
	Passes        []string          `json:"passes"`
	Contributions []ContributionDTO `json:"contributions,omitempty"`
}

// FromPlan converts a plan and optional contributions to a DTO.
func FromPlan(plan flow.Plan, contributions []flow.Contribution) PlanDTO {
	dto := PlanDTO{Flow: plan.Flow.String(), Passes: plan.Passes}
	if dto.Passes == nil {
		dto.Passes = []string{}
	}
	for _, c := range contributions {
		dto.Contributions = append(dto.Contributions, ContributionDTO{Flow: c.Flow.String(), Passes: c.Passes})
	}
	return dto
}

// StepDTO represents one executed pass
type StepDTO struct {
	Index    int     `json:"index"`
	Pass     string  `json:"pass"`
	Outcome  string  `json:"outcome"`
	Duration float64 `json:"duration_ms"`
	Error    string  `json:"error,omitempty"`
}

// FailureDTO identifies the pass that aborted a run
type FailureDTO struct {
	Pass  string `json:"pass"`
	Index int    `json:"index"`
	Error string `json:"error"`
}

// ReportDTO represents a compile run
type ReportDTO struct {
	RunID       string      `json:"run_id"`
	Flow        string      `json:"flow"`
	State       string      `json:"state"`
	Plan        []string    `json:"plan"`
	Steps       []StepDTO   `json:"steps"`
	Transformed int         `json:"transformed"`
	Skipped     []string    `json:"skipped,omitempty"`
	Failure     *FailureDTO `json:"failure,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	Duration    float64     `json:"duration_ms"`
}

// FromReport converts a run report to a DTO.
func FromReport(r *pipeline.Report) ReportDTO {
	dto := ReportDTO{
		RunID:       r.RunID,
		Flow:        r.Flow.String(),
		State:       r.State.String(),
		Plan:        r.Plan,
		Steps:       make([]StepDTO, 0, len(r.Steps)),
		Transformed: r.Transformed(),
		Skipped:     r.Skipped(),
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Duration:    millis(r.Duration()),
	}
	if dto.Plan == nil {
		dto.Plan = []string{}
	}
	for _, s := range r.Steps {
		step := StepDTO{
			Index:    s.Index,
			Pass:     s.Pass,
			Outcome:  s.Outcome.String(),
			Duration: millis(s.Duration),
		}
		if s.Err != nil {
			step.Error = s.Err.Error()
			step.Outcome = "failed"
		}
		dto.Steps = append(dto.Steps, step)
	}
	if r.Failure != nil {
		dto.Failure = &FailureDTO{Pass: r.Failure.Pass, Index: r.Failure.Index, Error: errString(r.Failure.Err)}
	}
	return dto
}

// FromReports converts a list of reports.
func FromReports(reports []*pipeline.Report) []ReportDTO {
	out := make([]ReportDTO, 0, len(reports))
	for _, r := range reports {
		out = append(out, FromReport(r))
	}
	return out
}

// MissingPassDTO is a plan entry with no registered pass
type MissingPassDTO struct {
	Flow string `json:"flow"`
	Pass string `json:"pass"`
}

// FromMissingPasses converts check results.
func FromMissingPasses(missing []backend.MissingPass) []MissingPassDTO {
	out := make([]MissingPassDTO, 0, len(missing))
	for _, m := range missing {
		out = append(out, MissingPassDTO{Flow: m.Flow.String(), Pass: m.Pass})
	}
	return out
}

// DiffDTO compares two flows
type DiffDTO struct {
	A         string   `json:"a"`
	B         string   `json:"b"`
	ARequires []string `json:"a_requires"`
	BRequires []string `json:"b_requires"`
	APlan     []string `json:"a_plan"`
	BPlan     []string `json:"b_plan"`
}

// FromRequirementDiff converts a requirement diff.
func FromRequirementDiff(d backend.RequirementDiff) DiffDTO {
	return DiffDTO{
		A:         d.A.String(),
		B:         d.B.String(),
		ARequires: nameStrings(d.ARequires),
		BRequires: nameStrings(d.BRequires),
		APlan:     nonNil(d.APlan),
		BPlan:     nonNil(d.BPlan),
	}
}

func nameString(n flow.Name) string {
	if n.IsZero() {
		return ""
	}
	return n.String()
}

func nameStrings(names []flow.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
