package analysis

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"interview-backend/internal/frames"
	"interview-backend/internal/insight"
	"interview-backend/internal/logger"
	"interview-backend/internal/media"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/transcript"
	"interview-backend/internal/vision"
)

type poseExtractor struct{}

func (poseExtractor) Detect(context.Context, []byte) (*vision.Snapshot, error) {
	return &vision.Snapshot{Pose: &vision.PoseLandmarks{
		LeftEar:       vision.Point{X: 0.45, Y: 0.30},
		RightEar:      vision.Point{X: 0.55, Y: 0.30},
		LeftShoulder:  vision.Point{X: 0.40, Y: 0.50},
		RightShoulder: vision.Point{X: 0.60, Y: 0.50},
		LeftHip:       vision.Point{X: 0.42, Y: 0.80},
		RightHip:      vision.Point{X: 0.58, Y: 0.80},
	}}, nil
}

type fakeRetriever struct {
	video      func(sessionID string) (media.FrameSource, error)
	transcript func(sessionID string) (string, float64, error)
}

func (f *fakeRetriever) Video(_ context.Context, sessionID string) (media.FrameSource, error) {
	return f.video(sessionID)
}

func (f *fakeRetriever) Transcript(_ context.Context, sessionID string) (string, float64, error) {
	return f.transcript(sessionID)
}

type fakeGenerator struct {
	ins *insight.Insight
	err error
}

func (f *fakeGenerator) Generate(context.Context, insight.Input) (*insight.Insight, error) {
	return f.ins, f.err
}

func testVideo(t *testing.T) media.FrameSource {
	t.Helper()
	frame := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0xFF, 0xD9}
	return media.NewMJPEGSource(bytes.Repeat(frame, 5), 5)
}

const testTranscript = "I prepared thoroughly for this interview. My previous team shipped several complex projects together. We focused on reliability and clear communication throughout delivery."

func newTestService(t *testing.T, retriever media.Retriever, gen insight.Generator) (*Service, *MemoryRepo) {
	t.Helper()
	tuning := config.DefaultTuning()
	log := logger.New()
	repo := NewMemoryRepo()
	fr := frames.NewService(poseExtractor{}, tuning, log)
	svc := NewService(repo, fr, retriever, transcript.NewAnalyzer(tuning.Transcript), gen, tuning, log)
	return svc, repo
}

func runJob(t *testing.T, svc *Service, repo *MemoryRepo, sessionID string) Job {
	t.Helper()
	job, created, err := repo.GetOrCreateForSession(context.Background(), pendingJob(sessionID))
	if err != nil || !created {
		t.Fatalf("seed job: created=%v err=%v", created, err)
	}
	svc.run(context.Background(), job)

	got, err := repo.GetBySession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	return got
}

func TestRunCompletesJob(t *testing.T) {
	retriever := &fakeRetriever{
		video:      func(string) (media.FrameSource, error) { return testVideo(t), nil },
		transcript: func(string) (string, float64, error) { return testTranscript, 12, nil },
	}
	gen := &fakeGenerator{ins: &insight.Insight{
		Summary:         "Composed and well prepared.",
		Strengths:       []string{"a", "b", "c"},
		Improvements:    []string{"d", "e", "f"},
		Recommendations: []string{"g", "h", "i", "j", "k"},
	}}
	svc, repo := newTestService(t, retriever, gen)

	job := runJob(t, svc, repo, "s1")
	if job.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed (error: %+v)", job.Status, job.Error)
	}
	if job.Progress != 100 {
		t.Errorf("Progress = %d, want 100", job.Progress)
	}
	res := job.Result
	if res == nil {
		t.Fatal("Result is nil")
	}
	if res.Transcript == nil || res.CommunicationScore == nil {
		t.Fatal("transcript section missing from full run")
	}
	if res.Insight == nil {
		t.Fatal("insight section missing from full run")
	}
	if len(res.MissingSections) != 0 {
		t.Errorf("MissingSections = %v, want none", res.MissingSections)
	}
	if res.Overall.Combined < 0 || res.Overall.Combined > 100 {
		t.Errorf("Combined = %v, want in [0,100]", res.Overall.Combined)
	}
	if res.Overall.Grade == "" {
		t.Error("Grade is empty")
	}
	if res.Aggregate.FrameCount != 5 {
		t.Errorf("FrameCount = %d, want 5", res.Aggregate.FrameCount)
	}
}

func TestRunDegradesWithoutTranscript(t *testing.T) {
	retriever := &fakeRetriever{
		video:      func(string) (media.FrameSource, error) { return testVideo(t), nil },
		transcript: func(string) (string, float64, error) { return "", 0, media.ErrNotFound },
	}
	svc, repo := newTestService(t, retriever, insight.Placeholder{})

	job := runJob(t, svc, repo, "s1")
	if job.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed (error: %+v)", job.Status, job.Error)
	}
	res := job.Result
	if res.Transcript != nil || res.CommunicationScore != nil {
		t.Error("transcript sections present, want degraded result")
	}
	wantMissing := map[string]bool{SectionTranscript: true, SectionCommunication: true, SectionInsight: true}
	if len(res.MissingSections) != len(wantMissing) {
		t.Fatalf("MissingSections = %v", res.MissingSections)
	}
	for _, s := range res.MissingSections {
		if !wantMissing[s] {
			t.Errorf("unexpected missing section %q", s)
		}
	}
	if math.Abs(res.Overall.Combined-res.CVScore) > 1e-9 {
		t.Errorf("Combined = %v, want CV-only score %v", res.Overall.Combined, res.CVScore)
	}
}

func TestRunFailsWhenVideoMissing(t *testing.T) {
	retriever := &fakeRetriever{
		video:      func(string) (media.FrameSource, error) { return nil, media.ErrNotFound },
		transcript: func(string) (string, float64, error) { return "", 0, media.ErrNotFound },
	}
	svc, repo := newTestService(t, retriever, insight.Placeholder{})

	job := runJob(t, svc, repo, "s1")
	if job.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", job.Status)
	}
	if job.Error == nil {
		t.Fatal("Error is nil")
	}
	if job.Error.Code != ErrorCodeMediaMissing {
		t.Errorf("Error.Code = %s, want MEDIA_MISSING", job.Error.Code)
	}
	if job.Error.Stage != StageRetrieveVideo {
		t.Errorf("Error.Stage = %s, want retrieve_video", job.Error.Stage)
	}
	if job.Result != nil {
		t.Error("failed job carries a result")
	}
}

func TestRunContinuesWhenInsightFails(t *testing.T) {
	retriever := &fakeRetriever{
		video:      func(string) (media.FrameSource, error) { return testVideo(t), nil },
		transcript: func(string) (string, float64, error) { return testTranscript, 12, nil },
	}
	svc, repo := newTestService(t, retriever, &fakeGenerator{err: errors.New("gateway down")})

	job := runJob(t, svc, repo, "s1")
	if job.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed (error: %+v)", job.Status, job.Error)
	}
	if job.Result.Insight != nil {
		t.Error("Insight present, want degraded")
	}
	if len(job.Result.MissingSections) != 1 || job.Result.MissingSections[0] != SectionInsight {
		t.Errorf("MissingSections = %v, want [insight]", job.Result.MissingSections)
	}
}

func TestStartReturnsExistingHandle(t *testing.T) {
	release := make(chan struct{})
	retriever := &fakeRetriever{
		video: func(string) (media.FrameSource, error) {
			<-release
			return nil, media.ErrNotFound
		},
		transcript: func(string) (string, float64, error) { return "", 0, media.ErrNotFound },
	}
	svc, _ := newTestService(t, retriever, insight.Placeholder{})
	defer close(release)

	first, created, err := svc.Start(context.Background(), "s1", "")
	if err != nil || !created {
		t.Fatalf("first Start: created=%v err=%v", created, err)
	}
	if first.Status != StatusPending || first.Progress != 0 {
		t.Errorf("first job = %+v, want pending at 0", first)
	}

	second, created, err := svc.Start(context.Background(), "s1", "")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if created {
		t.Error("second Start created a new job")
	}
	if second.ID != first.ID {
		t.Errorf("second job %s, want existing %s", second.ID, first.ID)
	}
}

func TestClearThenStartResetsProgress(t *testing.T) {
	retriever := &fakeRetriever{
		video:      func(string) (media.FrameSource, error) { return testVideo(t), nil },
		transcript: func(string) (string, float64, error) { return testTranscript, 12, nil },
	}
	svc, repo := newTestService(t, retriever, insight.Placeholder{})

	done := runJob(t, svc, repo, "s1")
	if done.Status != StatusCompleted || done.Progress != 100 {
		t.Fatalf("job = %+v, want completed at 100", done)
	}

	if err := svc.Clear(context.Background(), "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := repo.GetBySession(context.Background(), "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("job survived clear: %v", err)
	}

	fresh, created, err := svc.Start(context.Background(), "s1", "")
	if err != nil || !created {
		t.Fatalf("Start after clear: created=%v err=%v", created, err)
	}
	if fresh.ID == done.ID {
		t.Error("fresh job reused the cleared job id")
	}
	if fresh.Progress != 0 || fresh.Status != StatusPending {
		t.Errorf("fresh job = %+v, want pending at 0", fresh)
	}

	deadline := time.After(5 * time.Second)
	for {
		job, err := repo.GetBySession(context.Background(), "s1")
		if err == nil && !job.Active() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("restarted job never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSanitizeError(t *testing.T) {
	err := errors.New("line one\nline two\r\n  ")
	if got := sanitizeError(err); got != "line one line two" {
		t.Errorf("sanitizeError = %q", got)
	}
	if got := sanitizeError(nil); got != "" {
		t.Errorf("sanitizeError(nil) = %q", got)
	}
}
