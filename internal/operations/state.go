package operations

import (
	"sync"
	"time"

	"sentfactor/internal/dataset"
	"sentfactor/internal/factors"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Artifacts holds the typed data each stage commits for its successors.
// A field is written exactly once, by the stage that owns it, before the
// barrier releases the next stage.
type Artifacts struct {
	Instruments  []dataset.Instrument
	Prices       map[string][]dataset.PriceBar
	Fundamentals map[string][]dataset.FundamentalRecord
	Macro        map[string][]dataset.MacroObservation
	Articles     []dataset.NewsArticle

	Scores       []dataset.ArticleScore
	Sentiment    map[string][]dataset.SentimentAggregate
	AltSentiment map[string][]dataset.SentimentAggregate

	Panel    []dataset.PanelRow
	AltPanel []dataset.PanelRow

	Factors    []factors.Observation
	Marginals  []dataset.MarginalResult
	Importance map[string]float64

	Robustness []dataset.RobustnessResult
	Groups     []dataset.GroupResult
}

// RunState is the complete state of one study run
type RunState struct {
	mu sync.RWMutex

	ID        string     `json:"id"`
	Status    RunStatus  `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	Artifacts Artifacts `json:"-"`

	Error error `json:"error,omitempty"`
}

// NewRunState creates a pending run state
func NewRunState(id string) *RunState {
	return &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Error = err
}

// GetStep returns the state of a specific step
func (r *RunState) GetStep(stepID string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Steps[stepID]
}

// SetStep registers the state of a specific step
func (r *RunState) SetStep(stepID string, state *StepState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps[stepID] = state
}
