package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zjrosen/passflow/internal/log"
	"github.com/zjrosen/passflow/internal/pipeline"
)

const runColumns = `id, run_id, backend, flow, state, plan, failed_pass, failed_index, failure,
	transformed, started_at, finished_at`

// reportRepository implements pipeline.ReportRepository using SQLite.
type reportRepository struct {
	db *sql.DB
}

func newReportRepository(db *sql.DB) *reportRepository {
	return &reportRepository{db: db}
}

var _ pipeline.ReportRepository = (*reportRepository)(nil)

func scanRun(scanner interface{ Scan(...any) error }) (*RunModel, error) {
	var m RunModel
	err := scanner.Scan(
		&m.ID, &m.RunID, &m.Backend, &m.Flow, &m.State, &m.Plan,
		&m.FailedPass, &m.FailedIndex, &m.Failure,
		&m.Transformed, &m.StartedAt, &m.FinishedAt,
	)
	return &m, err
}

// Save stores a report and its steps. Saving a run id again replaces the
// previous record.
func (r *reportRepository) Save(ctx context.Context, report *pipeline.Report) error {
	if report.RunID == "" {
		return errors.New("save report: empty run id")
	}
	model, err := toRunModel(report)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_steps WHERE run_id = ?`, model.RunID); err != nil {
		return fmt.Errorf("failed to clear run steps: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, model.RunID); err != nil {
		return fmt.Errorf("failed to clear run: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO runs (
			run_id, backend, flow, state, plan, failed_pass, failed_index, failure,
			transformed, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		model.RunID, model.Backend, model.Flow, model.State, model.Plan,
		model.FailedPass, model.FailedIndex, model.Failure,
		model.Transformed, model.StartedAt, model.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, step := range report.Steps {
		if step.RunID == "" {
			step.RunID = report.RunID
		}
		s := toStepModel(step)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, idx, pass, outcome, duration_us, error) VALUES (?, ?, ?, ?, ?, ?)`,
			model.RunID, s.Index, s.Pass, s.Outcome, s.DurationUS, s.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step %d: %w", s.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		log.Debug(log.CatDB, "saved run", "runID", model.RunID, "row", id, "steps", len(report.Steps))
	}
	return nil
}

// FindByRunID returns ReportNotFoundError when no run has the id.
func (r *reportRepository) FindByRunID(ctx context.Context, runID string) (*pipeline.Report, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	model, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &pipeline.ReportNotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	steps, err := r.steps(ctx, runID)
	if err != nil {
		return nil, err
	}
	return model.toDomain(steps)
}

// List returns matching reports, newest first.
func (r *reportRepository) List(ctx context.Context, filter pipeline.ListFilter) ([]*pipeline.Report, error) {
	var (
		where []string
		args  []any
	)
	if !filter.Flow.IsZero() {
		where = append(where, "backend = ?")
		args = append(args, filter.Flow.Backend)
		if filter.Flow.Flow != "" {
			where = append(where, "flow = ?")
			args = append(args, filter.Flow.Flow)
		}
	}
	if filter.State != nil {
		where = append(where, "state = ?")
		args = append(args, filter.State.String())
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	var models []*RunModel
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		models = append(models, m)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	reports := make([]*pipeline.Report, 0, len(models))
	for _, m := range models {
		steps, err := r.steps(ctx, m.RunID)
		if err != nil {
			return nil, err
		}
		report, err := m.toDomain(steps)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Prune keeps the newest keep runs and deletes the rest, returning how many
// runs were removed.
func (r *reportRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must be >= 0, got %d", keep)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM run_steps WHERE run_id NOT IN (SELECT run_id FROM runs)`); err != nil {
		return 0, fmt.Errorf("failed to prune run steps: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	if removed > 0 {
		log.Info(log.CatDB, "pruned run history", "removed", removed, "kept", keep)
	}
	return removed, nil
}

func (r *reportRepository) steps(ctx context.Context, runID string) ([]*StepModel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, idx, pass, outcome, duration_us, error FROM run_steps WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var steps []*StepModel
	for rows.Next() {
		var s StepModel
		if err := rows.Scan(&s.RunID, &s.Index, &s.Pass, &s.Outcome, &s.DurationUS, &s.Error); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, &s)
	}
	return steps, rows.Err()
}
