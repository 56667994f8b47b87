package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/workflow"
)

type stubReader struct {
	jobs     []*queue.Job
	stats    map[queue.Status]int
	statuses []queue.Status
}

func (s *stubReader) Get(_ context.Context, id string) (*queue.Job, error) {
	for _, job := range s.jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, nil
}

func (s *stubReader) List(_ context.Context, statuses ...queue.Status) ([]*queue.Job, error) {
	s.statuses = statuses
	return s.jobs, nil
}

func (s *stubReader) Stats(context.Context) (map[queue.Status]int, error) {
	return s.stats, nil
}

type stubIntake struct {
	submitted []string
	removed   []string
	halted    []string
	err       error
}

func (s *stubIntake) Submit(_ context.Context, ref string) (workflow.SubmitResult, error) {
	s.submitted = append(s.submitted, ref)
	return workflow.SubmitResult{JobID: "job-1", TaskID: "task-1", SourceRef: ref, Status: queue.StatusPending}, s.err
}

func (s *stubIntake) SubmitFeed(context.Context, string, int) ([]workflow.FeedSubmission, error) {
	return nil, s.err
}

func (s *stubIntake) Retry(_ context.Context, id string) (workflow.SubmitResult, error) {
	return workflow.SubmitResult{JobID: id, Status: queue.StatusPending}, s.err
}

func (s *stubIntake) Regenerate(_ context.Context, id string) (workflow.SubmitResult, error) {
	return workflow.SubmitResult{JobID: id, Status: queue.StatusPending}, s.err
}

func (s *stubIntake) RegenerateAll(context.Context) (int, error) {
	return 3, s.err
}

func (s *stubIntake) Halt(_ context.Context, id string) (*queue.Job, error) {
	s.halted = append(s.halted, id)
	return &queue.Job{ID: id, Status: queue.StatusProcessing, Halted: true}, s.err
}

func (s *stubIntake) Remove(_ context.Context, id string) error {
	if id == "missing" {
		return services.Wrap(services.ErrNotFound, "", "remove job", id, nil)
	}
	s.removed = append(s.removed, id)
	return s.err
}

func TestJobServiceListParsesStatusFilter(t *testing.T) {
	now := time.Now().UTC()
	reader := &stubReader{jobs: []*queue.Job{{
		ID:         "job-1",
		SourceRef:  "https://v/1",
		Status:     queue.StatusCompleted,
		MediaPath:  "/media/a.m4a",
		Transcript: "[0.00s -> 1.00s] hi",
		Notes:      "<notes/>",
		CreatedAt:  now,
		UpdatedAt:  now,
	}}}
	svc := NewJobService(reader, &stubIntake{})

	got, err := svc.List(context.Background(), "completed, FAILED")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(reader.statuses) != 2 || reader.statuses[0] != queue.StatusCompleted || reader.statuses[1] != queue.StatusFailed {
		t.Fatalf("unexpected status filter: %v", reader.statuses)
	}
	if len(got) != 1 || got[0].ID != "job-1" {
		t.Fatalf("unexpected jobs: %+v", got)
	}
	if got[0].Notes != "" || got[0].Transcript != "" {
		t.Fatal("list view must omit transcript and notes bodies")
	}
	if !got[0].HasNotes || !got[0].HasTranscript {
		t.Fatalf("expected artifact flags set: %+v", got[0])
	}
	if got[0].CreatedAt == "" || got[0].UpdatedAt == "" {
		t.Fatal("expected timestamps to be formatted")
	}

	if _, err := svc.List(context.Background(), "done"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestJobServiceDescribe(t *testing.T) {
	reader := &stubReader{jobs: []*queue.Job{{ID: "job-1", SourceRef: "https://v/1", Status: queue.StatusPending}}}
	svc := NewJobService(reader, &stubIntake{})

	job, err := svc.Describe(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if job.SourceRef != "https://v/1" {
		t.Fatalf("unexpected job: %+v", job)
	}

	_, err = svc.Describe(context.Background(), "nope")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("unexpected status code %d", HTTPStatus(err))
	}
	if _, err := svc.Describe(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank id, got %v", err)
	}
}

func TestJobServiceStatsIncludesEveryStatus(t *testing.T) {
	svc := NewJobService(&stubReader{stats: map[queue.Status]int{queue.StatusPending: 2}}, &stubIntake{})
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats["pending"] != 2 || len(stats) != len(queue.AllStatuses()) {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if _, ok := stats["failed"]; !ok {
		t.Fatal("expected zero entry for failed")
	}
}

func TestJobServiceMutationsDelegateToIntake(t *testing.T) {
	intake := &stubIntake{}
	svc := NewJobService(&stubReader{}, intake)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "https://v/1")
	if err != nil || submitted.JobID != "job-1" || submitted.TaskID != "task-1" || submitted.Status != "pending" {
		t.Fatalf("unexpected submit response %+v err=%v", submitted, err)
	}
	regen, err := svc.RegenerateAll(ctx)
	if err != nil || regen.Queued != 3 {
		t.Fatalf("unexpected regenerate-all response %+v err=%v", regen, err)
	}
	halted, err := svc.Halt(ctx, "job-2")
	if err != nil || !halted.Halted {
		t.Fatalf("unexpected halt response %+v err=%v", halted, err)
	}

	intake.err = services.Wrap(services.ErrValidation, "intake", "validate", "bad url", nil)
	if _, err := svc.Submit(ctx, "bad"); HTTPStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 mapping, got %d (%v)", HTTPStatus(err), err)
	}
}
