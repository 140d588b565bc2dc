// Package scheduler runs validation on a cron schedule and retrains when the
// registered model falls below its accuracy threshold.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// Validator validates the registered model and retrains below threshold
type Validator interface {
	ValidateAndRetrain(ctx context.Context, threshold float64, modelNames []string) (*models.TrainingRun, *models.TrainingRun, error)
}

// MonitorJob is one scheduled validation
type MonitorJob struct {
	ID        string     `json:"id"`
	Schedule  string     `json:"schedule"`
	Threshold float64    `json:"threshold"`
	Models    []string   `json:"models,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastScore float64    `json:"last_score,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Retrains  int        `json:"retrains"`
}

// Service provides scheduled validation
type Service struct {
	validator Validator
	cron      *cron.Cron
	logger    *slog.Logger
	timeout   time.Duration

	// OnRetrain is called after a retraining run registered a new model
	OnRetrain func(run *models.TrainingRun)

	mu      sync.Mutex
	jobs    map[string]*MonitorJob
	entries map[string]cron.EntryID // Maps job ID to cron entry ID
}

// NewService creates a new scheduler service
func NewService(v Validator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		validator: v,
		cron:      cron.New(),
		logger:    logger.With("component", "scheduler"),
		timeout:   time.Hour,
		jobs:      make(map[string]*MonitorJob),
		entries:   make(map[string]cron.EntryID),
	}
}

// Start starts the scheduler
func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info("validation scheduler started", "jobs", len(s.Jobs()))
}

// Stop stops the scheduler and waits for running jobs to finish or ctx to expire
func (s *Service) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.logger.Info("validation scheduler stopped")
}

// AddJob schedules validation with a standard five-field cron expression
func (s *Service) AddJob(schedule string, threshold float64, modelNames []string) (*MonitorJob, error) {
	if err := models.ValidateThreshold(&threshold); err != nil {
		return nil, err
	}
	parsed, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	job := &MonitorJob{
		ID:        uuid.New().String(),
		Schedule:  schedule,
		Threshold: threshold,
		Models:    modelNames,
		CreatedAt: time.Now().UTC(),
	}
	next := parsed.Next(time.Now())
	job.NextRun = &next

	entryID := s.cron.Schedule(parsed, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.run(ctx, job.ID)
	}))

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.entries[job.ID] = entryID
	s.mu.Unlock()

	s.logger.Info("validation scheduled", "job_id", job.ID, "schedule", schedule, "threshold", threshold)
	return job, nil
}

// RemoveJob unschedules a job
func (s *Service) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	s.cron.Remove(entryID)
	delete(s.entries, id)
	delete(s.jobs, id)
	return nil
}

// RunNow runs a job immediately, outside its schedule
func (s *Service) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	return s.run(ctx, id)
}

// Jobs returns a snapshot of the scheduled jobs ordered by creation time
func (s *Service) Jobs() []MonitorJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MonitorJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Service) run(ctx context.Context, id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("job not found: %s", id)
	}
	threshold, modelNames := job.Threshold, job.Models
	s.mu.Unlock()

	logger := s.logger.With("job_id", id)
	logger.Info("running scheduled validation")
	validation, retrain, err := s.validator.ValidateAndRetrain(ctx, threshold, modelNames)

	now := time.Now().UTC()
	s.mu.Lock()
	job.LastRun = &now
	job.LastError = ""
	if validation != nil {
		job.LastScore = validation.BestScore
	}
	if retrain != nil {
		job.Retrains++
	}
	if err != nil {
		job.LastError = err.Error()
	}
	if entryID, ok := s.entries[id]; ok {
		next := s.cron.Entry(entryID).Next
		if !next.IsZero() {
			job.NextRun = &next
		}
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error("scheduled validation failed", "error", err)
		return err
	}
	if retrain != nil && retrain.Status == models.RunStatusRegistered && s.OnRetrain != nil {
		s.OnRetrain(retrain)
	}
	return nil
}
