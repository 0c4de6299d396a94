package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/padel-scheduler/internal/booking"
)

// blockingRunner parks until release is closed, so tests can observe the
// running state deterministically.
type blockingRunner struct {
	release chan struct{}
	started chan struct{}
	result  booking.Result
}

func newBlockingRunner(res booking.Result) *blockingRunner {
	return &blockingRunner{
		release: make(chan struct{}),
		started: make(chan struct{}),
		result:  res,
	}
}

func (r *blockingRunner) Run(context.Context, booking.Request) booking.Result {
	close(r.started)
	<-r.release
	return r.result
}

func validRequest(t *testing.T) booking.Request {
	t.Helper()
	return booking.Request{
		LoginURL:        "https://portal.example/login",
		Date:            booking.DateOnly(time.Now()).AddDate(0, 0, 1),
		StartTime:       "21:30",
		DurationHours:   1,
		BookerFirstName: "Bram",
		Candidates:      []string{"Daan", "Sven", "Timo"},
		DeviceMode:      booking.DeviceMobile,
	}
}

func waitForStatus(t *testing.T, m *Manager, want Status) Job {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if job := m.Snapshot(); job.Status == want {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached status %q (now %q)", want, m.Snapshot().Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManagerStartsIdle(t *testing.T) {
	m := NewManager(newBlockingRunner(booking.Result{}), nil, nil)
	if got := m.Snapshot().Status; got != StatusIdle {
		t.Fatalf("status %q, want idle", got)
	}
}

func TestManagerRunsSingleJob(t *testing.T) {
	runner := newBlockingRunner(booking.Result{Status: booking.StatusSuccess, Message: "booked"})
	m := NewManager(runner, nil, nil)

	job, err := m.Start(validRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	if job.ID == "" || job.Status != StatusRunning || job.StartedAt == nil {
		t.Fatalf("job %+v", job)
	}
	<-runner.started

	if _, err := m.Start(validRequest(t)); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second start: %v, want ErrAlreadyRunning", err)
	}
	// The rejected start must not disturb the running job.
	if snap := m.Snapshot(); snap.ID != job.ID || snap.Status != StatusRunning {
		t.Fatalf("job disturbed: %+v", snap)
	}

	close(runner.release)
	done := waitForStatus(t, m, StatusSuccess)
	if done.Result == nil || done.Result.Message != "booked" {
		t.Fatalf("result %+v", done.Result)
	}
}

func TestManagerRecordsErrorResult(t *testing.T) {
	runner := newBlockingRunner(booking.Result{
		Status:    booking.StatusError,
		Message:   "no court free",
		ErrorKind: booking.KindSlotNotFound,
	})
	m := NewManager(runner, nil, nil)

	if _, err := m.Start(validRequest(t)); err != nil {
		t.Fatal(err)
	}
	close(runner.release)

	done := waitForStatus(t, m, StatusError)
	if done.Result.ErrorKind != booking.KindSlotNotFound {
		t.Fatalf("kind %q", done.Result.ErrorKind)
	}
}

func TestManagerRestartableAfterCompletion(t *testing.T) {
	first := newBlockingRunner(booking.Result{Status: booking.StatusSuccess})
	m := NewManager(first, nil, nil)

	if _, err := m.Start(validRequest(t)); err != nil {
		t.Fatal(err)
	}
	close(first.release)
	waitForStatus(t, m, StatusSuccess)

	// The runner blocks again for the second job.
	first.release = make(chan struct{})
	first.started = make(chan struct{})
	job2, err := m.Start(validRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	if job2.Status != StatusRunning {
		t.Fatalf("status %q", job2.Status)
	}
	close(first.release)
	waitForStatus(t, m, StatusSuccess)
}

func TestManagerRejectsInvalidRequestWithoutJob(t *testing.T) {
	m := NewManager(newBlockingRunner(booking.Result{}), nil, nil)

	req := validRequest(t)
	req.DeviceMode = "tablet"
	if _, err := m.Start(req); booking.KindOf(err) != booking.KindInvalidRequest {
		t.Fatalf("err %v", err)
	}

	req = validRequest(t)
	req.Date = booking.DateOnly(time.Now()).AddDate(0, 0, 45)
	if _, err := m.Start(req); booking.KindOf(err) != booking.KindInvalidRequest {
		t.Fatalf("err %v", err)
	}

	if got := m.Snapshot().Status; got != StatusIdle {
		t.Fatalf("status %q, want idle after rejected starts", got)
	}
}

type captureRecorder struct {
	recorded chan Job
}

func (c *captureRecorder) Record(_ context.Context, job Job, _ booking.Request) error {
	c.recorded <- job
	return nil
}

func TestManagerNotifiesRecorder(t *testing.T) {
	runner := newBlockingRunner(booking.Result{Status: booking.StatusSuccess, Message: "booked"})
	rec := &captureRecorder{recorded: make(chan Job, 1)}
	m := NewManager(runner, rec, nil)

	if _, err := m.Start(validRequest(t)); err != nil {
		t.Fatal(err)
	}
	close(runner.release)

	select {
	case job := <-rec.recorded:
		if job.Status != StatusSuccess {
			t.Fatalf("recorded status %q", job.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("recorder was never called")
	}
}
