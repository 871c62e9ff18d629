package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/pass"
	"github.com/zjrosen/passflow/internal/pipeline"
)

// RunModel is a row of the runs table. Times are Unix milliseconds.
type RunModel struct {
	ID          int64
	RunID       string
	Backend     string
	Flow        string
	State       string
	Plan        string  // JSON array of pass names
	FailedPass  *string // nullable
	FailedIndex *int    // nullable
	Failure     *string // nullable
	Transformed int
	StartedAt   int64
	FinishedAt  int64
}

// StepModel is a row of the run_steps table.
type StepModel struct {
	RunID      string
	Index      int
	Pass       string
	Outcome    string
	DurationUS int64
	Error      *string // nullable
}

func toRunModel(r *pipeline.Report) (*RunModel, error) {
	plan := r.Plan
	if plan == nil {
		plan = []string{}
	}
	encoded, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	m := &RunModel{
		RunID:       r.RunID,
		Backend:     r.Flow.Backend,
		Flow:        r.Flow.Flow,
		State:       r.State.String(),
		Plan:        string(encoded),
		Transformed: r.Transformed(),
		StartedAt:   r.StartedAt.UnixMilli(),
		FinishedAt:  r.FinishedAt.UnixMilli(),
	}
	if f := r.Failure; f != nil {
		name, index := f.Pass, f.Index
		m.FailedPass = &name
		m.FailedIndex = &index
		if f.Err != nil {
			msg := f.Err.Error()
			m.Failure = &msg
		}
	}
	return m, nil
}

func toStepModel(s pipeline.Step) *StepModel {
	m := &StepModel{
		RunID:      s.RunID,
		Index:      s.Index,
		Pass:       s.Pass,
		Outcome:    s.Outcome.String(),
		DurationUS: s.Duration.Microseconds(),
	}
	if s.Err != nil {
		msg := s.Err.Error()
		m.Error = &msg
	}
	return m
}

// toDomain rebuilds a report. Stored error messages come back as opaque
// errors; their original types are not preserved.
func (m *RunModel) toDomain(steps []*StepModel) (*pipeline.Report, error) {
	state, err := pipeline.ParseState(m.State)
	if err != nil {
		return nil, err
	}
	var plan []string
	if err := json.Unmarshal([]byte(m.Plan), &plan); err != nil {
		return nil, fmt.Errorf("decode plan of run %s: %w", m.RunID, err)
	}
	name := flow.Name{Backend: m.Backend, Flow: m.Flow}
	r := &pipeline.Report{
		RunID:      m.RunID,
		Flow:       name,
		Plan:       plan,
		State:      state,
		StartedAt:  time.UnixMilli(m.StartedAt),
		FinishedAt: time.UnixMilli(m.FinishedAt),
	}
	for _, s := range steps {
		r.Steps = append(r.Steps, s.toDomain(name))
	}
	if m.FailedPass != nil {
		f := &pipeline.PassExecutionError{Flow: name, Pass: *m.FailedPass}
		if m.FailedIndex != nil {
			f.Index = *m.FailedIndex
		}
		if m.Failure != nil {
			f.Err = errors.New(*m.Failure)
		}
		r.Failure = f
	}
	return r, nil
}

func (m *StepModel) toDomain(name flow.Name) pipeline.Step {
	s := pipeline.Step{
		RunID:    m.RunID,
		Flow:     name,
		Index:    m.Index,
		Pass:     m.Pass,
		Outcome:  parseOutcome(m.Outcome),
		Duration: time.Duration(m.DurationUS) * time.Microsecond,
	}
	if m.Error != nil {
		s.Err = errors.New(*m.Error)
	}
	return s
}

func parseOutcome(s string) pass.Outcome {
	if s == pass.OutcomeTransformed.String() {
		return pass.OutcomeTransformed
	}
	return pass.OutcomeNoOp
}
