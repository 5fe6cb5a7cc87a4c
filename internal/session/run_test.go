package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// scriptedSource hands out a fixed sequence of frames, then blocks until the
// context is cancelled.
type scriptedSource struct {
	mu     sync.Mutex
	frames []*Frame
	closed bool
	err    error
}

func (s *scriptedSource) Next(ctx context.Context) (*Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	if len(s.frames) > 0 {
		frame := s.frames[0]
		s.frames = s.frames[1:]
		s.mu.Unlock()
		return frame, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptedSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// payloadDecoder decodes frames whose bytes are a code payload; empty frames
// decode to nothing.
type payloadDecoder struct{}

func (payloadDecoder) Decode(ctx context.Context, frame *Frame) (*attendance.Probe, error) {
	if len(frame.Data) == 0 {
		return nil, nil
	}
	return &attendance.Probe{Kind: attendance.ProbeCode, Payload: string(frame.Data)}, nil
}

func codeFrame(payload string) *Frame {
	return &Frame{Data: []byte(payload), CapturedAt: time.Now()}
}

func emptyFrame() *Frame {
	return &Frame{CapturedAt: time.Now()}
}

func TestRun_ResolvesDecodedFrame(t *testing.T) {
	sess, f := newTestSession(t, studentOptions(), nil, nil)

	src := &scriptedSource{frames: []*Frame{emptyFrame(), codeFrame("42"), emptyFrame()}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx, src, payloadDecoder{}) }()

	waitFor(t, func() bool { return f.eventCount() == 1 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	f.mu.Lock()
	ev := f.events[0]
	f.mu.Unlock()
	if ev.Type != EventAccepted {
		t.Errorf("expected accepted, got %s (%s)", ev.Type, ev.Reason)
	}
	if !src.isClosed() {
		t.Error("expected capture source to be closed on exit")
	}
}

func TestRun_CooldownSuppressesRepeatedFrames(t *testing.T) {
	// The same code stays in frame for several ticks; only one outcome may be
	// emitted before the cooldown elapses.
	sess, f := newTestSession(t, studentOptions(), nil, nil)

	src := &scriptedSource{frames: []*Frame{
		codeFrame("42"), codeFrame("42"), codeFrame("42"), codeFrame("42"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx, src, payloadDecoder{}) }()

	waitFor(t, func() bool { return f.eventCount() >= 1 })
	// Give the loop time to chew through the remaining frames.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if f.eventCount() != 1 {
		t.Errorf("expected exactly 1 event while cooling down, got %d", f.eventCount())
	}
	if f.ledger.Count() != 1 {
		t.Errorf("expected exactly 1 ledger record, got %d", f.ledger.Count())
	}
}

func TestRun_StopReleasesCamera(t *testing.T) {
	sess, _ := newTestSession(t, studentOptions(), nil, nil)
	src := &scriptedSource{}

	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background(), src, payloadDecoder{}) }()

	waitFor(t, func() bool { return sess.State() == StateScanning })
	sess.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after stop")
	}

	if !src.isClosed() {
		t.Error("expected capture source to be closed after stop")
	}
	if sess.State() != StateStopped {
		t.Errorf("expected stopped, got %s", sess.State())
	}
}

func TestRun_NilSourceIsCameraUnavailable(t *testing.T) {
	sess, _ := newTestSession(t, studentOptions(), nil, nil)

	err := sess.Run(context.Background(), nil, payloadDecoder{})
	if !errors.Is(err, attendance.ErrCameraUnavailable) {
		t.Errorf("expected ErrCameraUnavailable, got %v", err)
	}
	if sess.State() == StateScanning {
		t.Error("session must not reach scanning without a camera")
	}
}

func TestRun_SourceFailureIsFatal(t *testing.T) {
	sess, _ := newTestSession(t, studentOptions(), nil, nil)
	src := &scriptedSource{err: errors.New("device disconnected")}

	err := sess.Run(context.Background(), src, payloadDecoder{})
	if !errors.Is(err, attendance.ErrCameraUnavailable) {
		t.Errorf("expected camera loss to be fatal, got %v", err)
	}
	if !src.isClosed() {
		t.Error("expected source closed even on failure")
	}
}

// waitFor polls a condition with a deadline.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
