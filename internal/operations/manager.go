package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sentfactor/internal/infrastructure"
)

// Manager runs the registered stages strictly in order. Each stage's
// completion is a hard barrier: the next stage starts only after the
// previous one committed its artifacts, and a failure stops the run.
type Manager struct {
	steps   []Step
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewManager creates a pipeline manager over the ordered stage list
func NewManager(steps []Step, metrics *infrastructure.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		steps:   steps,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "operations_manager")),
	}
}

// Execute runs the full pipeline and returns the final run state. The
// returned state is complete even on failure: it records which stage
// failed and how long each stage ran.
func (m *Manager) Execute(ctx context.Context) (*RunState, error) {
	state := NewRunState(uuid.New().String())
	for _, step := range m.steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}
	state.Start()

	m.logger.InfoContext(ctx, "study run starting",
		slog.String("run_id", state.ID),
		slog.Int("stages", len(m.steps)))

	for _, step := range m.steps {
		if err := ctx.Err(); err != nil {
			state.Fail(err)
			return state, err
		}

		stepState := state.GetStep(step.ID())
		stepState.Start()
		started := time.Now()

		m.logger.InfoContext(ctx, "stage starting",
			slog.String("run_id", state.ID),
			slog.String("stage", step.ID()))

		if err := step.Execute(ctx, state); err != nil {
			stepState.Fail(err)
			state.Fail(err)
			m.logger.ErrorContext(ctx, "stage failed",
				slog.String("run_id", state.ID),
				slog.String("stage", step.ID()),
				slog.String("error", err.Error()))
			return state, fmt.Errorf("stage %s: %w", step.ID(), err)
		}

		stepState.Complete()
		elapsed := time.Since(started)
		if m.metrics != nil {
			m.metrics.RecordStage(ctx, step.ID(), elapsed)
		}

		m.logger.InfoContext(ctx, "stage completed",
			slog.String("run_id", state.ID),
			slog.String("stage", step.ID()),
			slog.Duration("duration", elapsed))
	}

	state.Complete()
	m.logger.InfoContext(ctx, "study run completed",
		slog.String("run_id", state.ID),
		slog.Duration("duration", time.Since(state.StartTime)))

	return state, nil
}
