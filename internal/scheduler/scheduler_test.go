package scheduler

import (
	"context"
	"testing"

	"github.com/alirezadp10/market-trends/internal/config"
)

type fakeJob struct {
	name   string
	runs   int
	params map[string]string
}

func (j *fakeJob) Name() string        { return j.name }
func (j *fakeJob) Description() string { return "test job" }
func (j *fakeJob) Execute(ctx context.Context, params map[string]string) error {
	j.runs++
	j.params = params
	return nil
}

func TestRegisterJob(t *testing.T) {
	s := New("Asia/Tehran", nil)

	if err := s.RegisterJob(&fakeJob{name: "a"}); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}
	if err := s.RegisterJob(&fakeJob{name: "a"}); err == nil {
		t.Error("Expected error for duplicate job name, but got none")
	}

	names := s.JobNames()
	if len(names) != 1 || names[0] != "a" {
		t.Errorf("Unexpected job names: %v", names)
	}
}

func TestRunJobNow(t *testing.T) {
	s := New("", nil)
	job := &fakeJob{name: "a"}
	if err := s.RegisterJob(job); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}

	params := map[string]string{"markets": "Dollar"}
	if err := s.RunJobNow("a", params); err != nil {
		t.Fatalf("Failed to run job: %v", err)
	}
	if job.runs != 1 {
		t.Errorf("Expected 1 run, but got %d", job.runs)
	}
	if job.params["markets"] != "Dollar" {
		t.Errorf("Expected params to reach the job, but got %v", job.params)
	}

	if err := s.RunJobNow("missing", nil); err == nil {
		t.Error("Expected error for unknown job, but got none")
	}
}

func TestStartSkipsDisabledAndUnscheduledJobs(t *testing.T) {
	schedules := map[string]config.JobSchedule{
		"enabled":  {Cron: "0 18 * * *", Enabled: true},
		"disabled": {Cron: "0 18 * * *", Enabled: false},
	}
	s := New("", schedules)
	for _, name := range []string{"enabled", "disabled", "unscheduled"} {
		if err := s.RegisterJob(&fakeJob{name: name}); err != nil {
			t.Fatalf("Failed to register job: %v", err)
		}
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	defer s.Stop()

	if len(s.entryIDs) != 1 {
		t.Errorf("Expected 1 scheduled entry, but got %d", len(s.entryIDs))
	}
	if _, ok := s.entryIDs["enabled"]; !ok {
		t.Error("Expected the enabled job to be scheduled")
	}

	if err := s.Start(); err == nil {
		t.Error("Expected error starting twice, but got none")
	}
}

func TestStartRejectsBadCron(t *testing.T) {
	schedules := map[string]config.JobSchedule{
		"bad": {Cron: "not a cron expr", Enabled: true},
	}
	s := New("", schedules)
	if err := s.RegisterJob(&fakeJob{name: "bad"}); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Expected error for invalid cron expression, but got none")
	}
}
