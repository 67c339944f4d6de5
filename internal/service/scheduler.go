package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ScheduledRun is one entry of the schedule manifest.
type ScheduledRun struct {
	Kind   string `yaml:"kind"` // procedure or pipe
	Name   string `yaml:"name"`
	Schema string `yaml:"schema"`
	Cron   string `yaml:"cron"`
}

// Manifest is a YAML file declaring recurring test runs.
type Manifest struct {
	Runs []ScheduledRun `yaml:"runs"`
}

// LoadManifest reads and validates a schedule manifest.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse schedule manifest: %w", err)
	}
	for i, r := range m.Runs {
		if r.Kind != "procedure" && r.Kind != "pipe" {
			return nil, fmt.Errorf("manifest entry %d: kind must be procedure or pipe, got %q", i, r.Kind)
		}
		if r.Name == "" || r.Schema == "" {
			return nil, fmt.Errorf("manifest entry %d: name and schema are required", i)
		}
		if r.Cron == "" {
			return nil, fmt.Errorf("manifest entry %d: cron expression is required", i)
		}
	}
	return &m, nil
}

// Scheduler triggers manifest-declared test runs on cron schedules. Runs
// execute in cron's goroutine; the Service serializes per object.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger *slog.Logger
}

// NewScheduler creates a scheduler for svc.
func NewScheduler(svc *Service, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		svc:    svc,
		logger: logger.With("component", "scheduler"),
	}
}

// Register adds every manifest entry to the cron table.
func (s *Scheduler) Register(m *Manifest) error {
	for _, r := range m.Runs {
		run := r
		_, err := s.cron.AddFunc(run.Cron, func() {
			s.trigger(run)
		})
		if err != nil {
			return fmt.Errorf("schedule %s %s.%s: %w", run.Kind, run.Schema, run.Name, err)
		}
		s.logger.Info("scheduled run registered",
			"kind", run.Kind, "object", run.Schema+"."+run.Name, "cron", run.Cron)
	}
	return nil
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron table and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) trigger(run ScheduledRun) {
	ctx := context.Background()
	logger := s.logger.With("kind", run.Kind, "object", run.Schema+"."+run.Name)
	logger.Info("scheduled run starting")

	var err error
	switch run.Kind {
	case "procedure":
		_, err = s.svc.TestProcedure(ctx, run.Name, run.Schema)
	case "pipe":
		_, err = s.svc.TestPipe(ctx, run.Name, run.Schema)
	}
	if err != nil {
		logger.Error("scheduled run failed", "error", err)
		return
	}
	logger.Info("scheduled run finished")
}
