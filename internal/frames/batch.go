package frames

import (
	"context"
	"errors"
	"io"
	"math"
	"runtime"
	"sync"

	"interview-backend/internal/media"
	"interview-backend/internal/session"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/vision"
)

// AnalyzeVideo runs the pipeline over a recorded video. Source frames are
// sampled down to roughly the tuned target rate, extraction fans out across
// CPUs, and the stateful detector and fusion passes then run in frame order
// so the results match a sequential run. Per-frame failures are skipped and
// never fail the batch.
func (s *Service) AnalyzeVideo(ctx context.Context, sessionID string, src media.FrameSource) (session.Aggregate, error) {
	step := samplingStep(src.FPS(), s.tuning.Batch.TargetFPS)
	analyzedFPS := src.FPS()
	if analyzedFPS <= 0 {
		analyzedFPS = s.tuning.Batch.TargetFPS
	}
	analyzedFPS /= float64(step)

	sampled, err := sampleFrames(src, step)
	if err != nil {
		return session.Aggregate{}, err
	}

	snaps := s.extractAll(ctx, sampled)
	if err := ctx.Err(); err != nil {
		return session.Aggregate{}, err
	}

	st := s.newState(sessionID)
	st.recorder = session.NewRecorder(sessionID, analyzedFPS, s.tuning.Scoring)

	skipped := 0
	for i, snap := range snaps {
		if snap.skip {
			skipped++
			continue
		}
		fm := st.analyze(snap.snap, s.tuning)
		if analyzedFPS > 0 {
			fm.ElapsedSeconds = float64(i) / analyzedFPS
		}
		if err := st.recorder.Append(fm); err != nil {
			return session.Aggregate{}, err
		}
		metrics.IncFrameProcessed()
	}
	if skipped > 0 {
		s.log.WithField("session_id", sessionID).
			WithField("skipped_frames", skipped).
			Warn("frames skipped during batch analysis")
	}

	return st.recorder.Aggregate(), nil
}

// samplingStep picks every Nth source frame so the analyzed rate lands near
// target. An unknown source rate analyzes every frame.
func samplingStep(sourceFPS, targetFPS float64) int {
	if sourceFPS <= 0 || targetFPS <= 0 || sourceFPS <= targetFPS {
		return 1
	}
	step := int(math.Round(sourceFPS / targetFPS))
	if step < 1 {
		return 1
	}
	return step
}

func sampleFrames(src media.FrameSource, step int) ([][]byte, error) {
	var sampled [][]byte
	for i := 0; ; i++ {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return sampled, nil
		}
		if err != nil {
			return nil, err
		}
		if i%step == 0 {
			sampled = append(sampled, frame)
		}
	}
}

type batchSnap struct {
	snap *vision.Snapshot
	skip bool
}

// extractAll runs landmark extraction for all sampled frames in parallel.
// Results come back indexed so the later stateful pass keeps frame order.
// Malformed frames and extractor faults are marked for skipping.
func (s *Service) extractAll(ctx context.Context, sampled [][]byte) []batchSnap {
	out := make([]batchSnap, len(sampled))

	workers := runtime.NumCPU()
	if workers > len(sampled) {
		workers = len(sampled)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = s.extractOne(ctx, sampled[i])
			}
		}()
	}

dispatch:
	for i := range sampled {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	return out
}

func (s *Service) extractOne(ctx context.Context, image []byte) batchSnap {
	if err := validateImage(image); err != nil {
		metrics.IncFrameRejected()
		return batchSnap{skip: true}
	}
	snap, err := s.detect(ctx, image)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("frame extraction failed")
		return batchSnap{skip: true}
	}
	return batchSnap{snap: snap}
}
