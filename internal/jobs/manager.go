package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/padel-scheduler/internal/booking"
)

// ErrAlreadyRunning is returned by Start while an attempt is in flight. A
// single browser session cannot serve two bookings, so concurrent requests
// are rejected rather than queued.
var ErrAlreadyRunning = errors.New("a booking attempt is already running")

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Job is the process-wide booking job record. It lives in memory only;
// restarts forget it, which is an accepted limitation for a single-operator
// service.
type Job struct {
	ID        string          `json:"id,omitempty"`
	Status    Status          `json:"status"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	Result    *booking.Result `json:"result,omitempty"`
}

// Runner is one end-to-end booking attempt. Satisfied by
// *booking.Orchestrator.
type Runner interface {
	Run(ctx context.Context, req booking.Request) booking.Result
}

// Recorder receives finished attempts, e.g. for an audit trail. May be nil.
type Recorder interface {
	Record(ctx context.Context, job Job, req booking.Request) error
}

// Manager owns the single job record and runs at most one attempt at a
// time. The record behind the mutex is the only state shared between the
// request path and the background attempt.
type Manager struct {
	runner   Runner
	recorder Recorder
	log      *zap.Logger

	mu  sync.Mutex
	job Job
}

func NewManager(runner Runner, recorder Recorder, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		runner:   runner,
		recorder: recorder,
		log:      log,
		job:      Job{Status: StatusIdle},
	}
}

// Start validates the request synchronously, then begins the attempt in the
// background. Configuration-class errors (unknown device mode, date outside
// the booking horizon, malformed fields) are returned here, before any job
// exists; an in-flight job is left untouched.
func (m *Manager) Start(req booking.Request) (Job, error) {
	strat, err := booking.NewNavigationStrategy(req.DeviceMode)
	if err != nil {
		return Job{}, err
	}
	if err := req.Validate(strat.MaxAdvanceDays(), time.Now()); err != nil {
		return Job{}, err
	}

	m.mu.Lock()
	if m.job.Status == StatusRunning {
		m.mu.Unlock()
		return Job{}, ErrAlreadyRunning
	}
	now := time.Now()
	m.job = Job{ID: uuid.NewString(), Status: StatusRunning, StartedAt: &now}
	snap := m.job
	m.mu.Unlock()

	m.log.Info("booking job started",
		zap.String("job_id", snap.ID),
		zap.String("device_mode", string(req.DeviceMode)))

	// The attempt outlives the HTTP request that triggered it.
	go m.run(snap.ID, req)
	return snap, nil
}

func (m *Manager) run(id string, req booking.Request) {
	res := m.runner.Run(context.Background(), req)
	m.complete(id, res, req)
}

func (m *Manager) complete(id string, res booking.Result, req booking.Request) {
	m.mu.Lock()
	if m.job.ID != id {
		// A completion may only land on the job that started it.
		m.mu.Unlock()
		return
	}
	if res.Status == booking.StatusSuccess {
		m.job.Status = StatusSuccess
	} else {
		m.job.Status = StatusError
	}
	r := res
	m.job.Result = &r
	snap := m.job
	m.mu.Unlock()

	m.log.Info("booking job finished",
		zap.String("job_id", id),
		zap.String("status", string(snap.Status)),
		zap.String("message", res.Message))

	if m.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.recorder.Record(ctx, snap, req); err != nil {
			m.log.Warn("recording attempt failed", zap.Error(err))
		}
	}
}

// Snapshot returns the current job record without blocking on a running
// attempt.
func (m *Manager) Snapshot() Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job
}
