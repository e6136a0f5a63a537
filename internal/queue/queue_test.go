package queue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestQueue(t *testing.T, workers int) *Queue {
	t.Helper()
	q := New(workers, zerolog.New(io.Discard))
	t.Cleanup(q.Close)
	return q
}

func waitStatus(t *testing.T, q *Queue, id uuid.UUID, want Status) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := q.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if snap.Status == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := q.Get(id)
	t.Fatalf("job %s stuck in %s, want %s", id, snap.Status, want)
	return Snapshot{}
}

func mustSubmit(t *testing.T, q *Queue, p Payload) uuid.UUID {
	t.Helper()
	job, err := NewJob(p)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	id, err := q.Submit(job)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return id
}

func TestSubmitRejectsUnregisteredType(t *testing.T) {
	q := newTestQueue(t, 1)
	job, err := NewJob(BackupPayload{TargetDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := q.Submit(job); !errors.Is(err, ErrNoHandler) {
		t.Fatalf("Submit = %v, want ErrNoHandler", err)
	}
}

func TestHandlerReturningNilCompletesWithEmptyResult(t *testing.T) {
	q := newTestQueue(t, 1)
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		return nil, nil
	})
	id := mustSubmit(t, q, BackupPayload{TargetDir: t.TempDir()})
	snap := waitStatus(t, q, id, StatusCompleted)
	if snap.Result == nil || len(snap.Result) != 0 {
		t.Fatalf("Result = %v, want empty map", snap.Result)
	}
	if snap.Progress != 1 {
		t.Fatalf("Progress = %v, want 1", snap.Progress)
	}
}

func TestHandlerResultIsPreserved(t *testing.T) {
	q := newTestQueue(t, 1)
	q.RegisterHandler(TypeMetadataEnrich, func(ctx context.Context, job *Job) (Payload, error) {
		return nil, job.Complete(map[string]any{"matched": false})
	})
	id := mustSubmit(t, q, EnrichPayload{VideoID: uuid.New()})
	snap := waitStatus(t, q, id, StatusCompleted)
	if got, ok := snap.Result["matched"].(bool); !ok || got {
		t.Fatalf("Result = %v, want matched=false", snap.Result)
	}
}

func TestHandlerErrorMarksJobFailed(t *testing.T) {
	q := newTestQueue(t, 1)
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		return nil, errors.New("disk is on fire")
	})
	id := mustSubmit(t, q, BackupPayload{TargetDir: t.TempDir()})
	snap := waitStatus(t, q, id, StatusFailed)
	if snap.Error != "disk is on fire" {
		t.Fatalf("Error = %q", snap.Error)
	}
}

func TestHandlerPanicMarksJobFailed(t *testing.T) {
	q := newTestQueue(t, 1)
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		panic("nil map write")
	})
	id := mustSubmit(t, q, BackupPayload{TargetDir: t.TempDir()})
	snap := waitStatus(t, q, id, StatusFailed)
	if snap.Error == "" {
		t.Fatal("panic left no error message")
	}
}

func TestChainingSubmitsChildAfterParentCompleted(t *testing.T) {
	q := newTestQueue(t, 1)
	videoID := uuid.New()
	parentStatus := make(chan Status, 1)
	childID := make(chan uuid.UUID, 1)

	q.RegisterHandler(TypeImportOrganize, func(ctx context.Context, job *Job) (Payload, error) {
		return NFOPayload{VideoID: videoID}, nil
	})
	q.RegisterHandler(TypeImportNFO, func(ctx context.Context, job *Job) (Payload, error) {
		parent, err := q.Get(job.ParentID())
		if err != nil {
			return nil, err
		}
		parentStatus <- parent.Status
		childID <- job.ID()
		return nil, nil
	})

	parentID := mustSubmit(t, q, OrganizePayload{VideoID: videoID, TempPath: "/tmp/x.mp4"})
	waitStatus(t, q, parentID, StatusCompleted)

	select {
	case st := <-parentStatus:
		if st != StatusCompleted {
			t.Fatalf("parent status seen by child = %s, want completed", st)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("child handler never ran")
	}
	id := <-childID
	snap := waitStatus(t, q, id, StatusCompleted)
	if snap.ParentID == nil || *snap.ParentID != parentID {
		t.Fatalf("child ParentID = %v, want %s", snap.ParentID, parentID)
	}
}

func TestChainToUnregisteredTypeFailsCurrentStage(t *testing.T) {
	q := newTestQueue(t, 1)
	q.RegisterHandler(TypeImportOrganize, func(ctx context.Context, job *Job) (Payload, error) {
		return NFOPayload{VideoID: uuid.New()}, nil
	})
	id := mustSubmit(t, q, OrganizePayload{VideoID: uuid.New(), TempPath: "/tmp/x.mp4"})
	snap := waitStatus(t, q, id, StatusFailed)
	if snap.Error == "" {
		t.Fatal("rejected chain left no error")
	}
	if jobs := q.List(); len(jobs) != 1 {
		t.Fatalf("List() has %d jobs, want only the failed parent", len(jobs))
	}
}

func TestChainRejectionFailsStageDespiteStagedResult(t *testing.T) {
	q := newTestQueue(t, 1)
	q.RegisterHandler(TypeImportOrganize, func(ctx context.Context, job *Job) (Payload, error) {
		// The stage's own work succeeded; only the chained submission
		// will be rejected.
		if err := job.SetResult(map[string]any{"library_path": "/library/x.mp4"}); err != nil {
			return nil, err
		}
		return NFOPayload{VideoID: uuid.New()}, nil
	})
	id := mustSubmit(t, q, OrganizePayload{VideoID: uuid.New(), TempPath: "/tmp/x.mp4"})
	snap := waitStatus(t, q, id, StatusFailed)
	if snap.Error == "" {
		t.Fatal("rejected chain left no error")
	}
	if jobs := q.List(); len(jobs) != 1 {
		t.Fatalf("List() has %d jobs, want only the failed parent", len(jobs))
	}
}

func TestStagedResultCommittedOnCompletion(t *testing.T) {
	q := newTestQueue(t, 1)
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		return nil, job.SetResult(map[string]any{"archive_path": "/backups/a.zip"})
	})
	id := mustSubmit(t, q, BackupPayload{TargetDir: t.TempDir()})
	snap := waitStatus(t, q, id, StatusCompleted)
	if snap.Result["archive_path"] != "/backups/a.zip" {
		t.Fatalf("Result = %v, want staged archive path", snap.Result)
	}
}

func TestCancelPendingJobNeverDispatches(t *testing.T) {
	q := newTestQueue(t, 1)
	release := make(chan struct{})
	ran := make(chan uuid.UUID, 2)
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		ran <- job.ID()
		<-release
		return nil, nil
	})

	blocker := mustSubmit(t, q, BackupPayload{TargetDir: t.TempDir()})
	<-ran // the single worker is now occupied
	victim := mustSubmit(t, q, BackupPayload{TargetDir: t.TempDir()})
	if err := q.Cancel(victim); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	waitStatus(t, q, victim, StatusCancelled)
	close(release)
	waitStatus(t, q, blocker, StatusCompleted)

	select {
	case id := <-ran:
		t.Fatalf("cancelled pending job %s was dispatched", id)
	default:
	}
}

func TestCancelRunningJobIsHonoredCooperatively(t *testing.T) {
	q := newTestQueue(t, 1)
	started := make(chan struct{})
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		close(started)
		<-ctx.Done()
		if job.CancelRequested() {
			return nil, ctx.Err()
		}
		return nil, nil
	})
	id := mustSubmit(t, q, BackupPayload{TargetDir: t.TempDir()})
	<-started
	if err := q.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	snap := waitStatus(t, q, id, StatusCancelled)
	if snap.Error != "" {
		t.Fatalf("cancelled job carries error %q, cancellation is not a failure", snap.Error)
	}
}

func TestCancelledJobSubmitsNoFollowup(t *testing.T) {
	q := newTestQueue(t, 1)
	started := make(chan struct{})
	q.RegisterHandler(TypeImportDownload, func(ctx context.Context, job *Job) (Payload, error) {
		close(started)
		<-ctx.Done()
		return OrganizePayload{VideoID: uuid.New(), TempPath: "/tmp/x.mp4"}, nil
	})
	q.RegisterHandler(TypeImportOrganize, func(ctx context.Context, job *Job) (Payload, error) {
		t.Error("organize stage ran for a cancelled download")
		return nil, nil
	})
	id := mustSubmit(t, q, DownloadPayload{VideoID: uuid.New(), YoutubeID: "dQw4w9WgXcQ"})
	<-started
	if err := q.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	waitStatus(t, q, id, StatusCancelled)
	if jobs := q.List(); len(jobs) != 1 {
		t.Fatalf("List() has %d jobs, want only the cancelled parent", len(jobs))
	}
}

func TestRegisterHandlerReplaces(t *testing.T) {
	q := newTestQueue(t, 1)
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		return nil, errors.New("old handler")
	})
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		return nil, job.Complete(map[string]any{"handler": "new"})
	})
	id := mustSubmit(t, q, BackupPayload{TargetDir: t.TempDir()})
	snap := waitStatus(t, q, id, StatusCompleted)
	if snap.Result["handler"] != "new" {
		t.Fatalf("Result = %v, want new handler outcome", snap.Result)
	}
}

func TestSubmitAfterCloseRejected(t *testing.T) {
	q := New(1, zerolog.New(io.Discard))
	q.RegisterHandler(TypeBackup, func(ctx context.Context, job *Job) (Payload, error) {
		return nil, nil
	})
	q.Close()
	job, err := NewJob(BackupPayload{TargetDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := q.Submit(job); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Submit after Close = %v, want ErrQueueClosed", err)
	}
}

func TestGetUnknownJob(t *testing.T) {
	q := newTestQueue(t, 1)
	if _, err := q.Get(uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Get = %v, want ErrJobNotFound", err)
	}
}
