package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRedactsKeys(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.LockContended("tenant-42:jobs", 3, time.Second)

	out := buf.String()
	if strings.Contains(out, "tenant-42") {
		t.Fatalf("raw key leaked: %q", out)
	}
	if !strings.Contains(out, "rkv.lock_contended") || !strings.Contains(out, "attempts=3") {
		t.Fatalf("unexpected record %q", out)
	}

	buf.Reset()
	h = New(l, Options{Redact: strings.ToUpper})
	h.LockReleased("jobs", false)
	if !strings.Contains(buf.String(), "key=JOBS") || !strings.Contains(buf.String(), "lock_expired_before_release") {
		t.Fatalf("custom redactor not used: %q", buf.String())
	}
}

func TestSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{CommandFailedEvery: 5})
	for i := 0; i < 20; i++ {
		h.PipelineCommandFailed("INCRBY", errors.New("ERR not an integer"))
	}
	if n := strings.Count(buf.String(), "rkv.pipeline_command_failed"); n != 4 {
		t.Fatalf("logged %d of 20, want 4", n)
	}

	buf.Reset()
	for i := 0; i < 3; i++ {
		h.PipelineFlushFailed(2, errors.New("broken pipe"))
	}
	if n := strings.Count(buf.String(), "rkv.pipeline_flush_failed"); n != 3 {
		t.Fatalf("flush failures must not be sampled, logged %d", n)
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.PipelineFlushed(1, time.Millisecond)
	h.LockAcquired("k", 1, 0)
	h.LockReleased("k", true)
}
