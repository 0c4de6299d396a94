// Package history keeps an audit trail of finished booking attempts. The
// live job record is in-memory only; this store is an append-only log for
// the operator to review what was tried and why it failed.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/example/padel-scheduler/internal/booking"
	"github.com/example/padel-scheduler/internal/db"
	"github.com/example/padel-scheduler/internal/jobs"
)

type Attempt struct {
	ID            int64
	JobID         string
	DeviceMode    string
	RequestedDate time.Time
	StartTime     string
	DurationHours float64
	Status        string
	Message       string
	BookedDate    *time.Time
	Players       []string
	DryRun        bool
	StartedAt     time.Time
	FinishedAt    time.Time
}

type Store struct{ db *db.DB }

func NewStore(d *db.DB) *Store { return &Store{db: d} }

// Record implements jobs.Recorder.
func (s *Store) Record(ctx context.Context, job jobs.Job, req booking.Request) error {
	var (
		message    string
		players    string
		dryRun     bool
		bookedDate *time.Time
	)
	if job.Result != nil {
		message = job.Result.Message
		players = strings.Join(job.Result.Players, ",")
		dryRun = job.Result.DryRun
		if job.Result.BookingDate != "" {
			if d, err := booking.ParseDate(job.Result.BookingDate); err == nil {
				bookedDate = &d
			}
		}
	}
	startedAt := time.Now()
	if job.StartedAt != nil {
		startedAt = *job.StartedAt
	}

	return s.db.Exec(ctx, `
INSERT INTO booking_attempts(job_id,device_mode,requested_date,start_time,duration_hours,status,message,booked_date,players,dry_run,started_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		job.ID, string(req.DeviceMode), req.Date, req.StartTime, req.DurationHours,
		string(job.Status), message, bookedDate, players, dryRun, startedAt,
	)
}

// Recent returns the latest finished attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
SELECT id,job_id,device_mode,requested_date,start_time,duration_hours,status,message,booked_date,players,dry_run,started_at,finished_at
FROM booking_attempts
ORDER BY finished_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var players string
		if err := rows.Scan(
			&a.ID, &a.JobID, &a.DeviceMode, &a.RequestedDate, &a.StartTime, &a.DurationHours,
			&a.Status, &a.Message, &a.BookedDate, &players, &a.DryRun, &a.StartedAt, &a.FinishedAt,
		); err != nil {
			return nil, err
		}
		if players != "" {
			a.Players = strings.Split(players, ",")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
