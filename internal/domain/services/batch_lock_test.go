package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBatchLockSerializesScope(t *testing.T) {
	lock := NewBatchLock("attendance", nil, time.Minute)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "default")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lock.Acquire(ctx, "default"); !errors.Is(err, ErrBatchInProgress) {
		t.Fatalf("second acquire err = %v", err)
	}
	// 不同 scope 互不影响
	other, err := lock.Acquire(ctx, "branch-2")
	if err != nil {
		t.Fatalf("other scope: %v", err)
	}
	other()

	release()
	release()
	again, err := lock.Acquire(ctx, "default")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again()
}

func TestBatchLockKey(t *testing.T) {
	lock := NewBatchLock("overtime", nil, 0)
	if got := lock.Key("hq"); got != "overtime:lock:hq" {
		t.Errorf("key = %q", got)
	}
	if lock.TTL != 10*time.Minute {
		t.Errorf("default ttl = %v", lock.TTL)
	}
}

func TestResolveRange(t *testing.T) {
	now := at(tuesday, 15, 0)
	days := func(n int) *int { return &n }
	noEarliest := func() (*time.Time, error) { return nil, nil }

	from, to, err := resolveRange(GenerateRequest{Days: days(7)}, now, time.UTC, noEarliest)
	if err != nil || !from.Equal(tuesday.AddDate(0, 0, -6)) || !to.Equal(tuesday) {
		t.Errorf("days=7: %v ~ %v, %v", from, to, err)
	}
	from, to, _ = resolveRange(GenerateRequest{Days: days(0)}, now, time.UTC, noEarliest)
	if !from.Equal(tuesday) || !to.Equal(tuesday) {
		t.Errorf("days=0: %v ~ %v", from, to)
	}
	from, _, _ = resolveRange(GenerateRequest{Days: days(-1)}, now, time.UTC, noEarliest)
	if !from.Equal(tuesday.AddDate(0, 0, -30)) {
		t.Errorf("days=-1 without data: %v", from)
	}
	first := at(tuesday.AddDate(0, 0, -3), 8, 30)
	from, _, _ = resolveRange(GenerateRequest{Days: days(-1)}, now, time.UTC, func() (*time.Time, error) { return &first, nil })
	if !from.Equal(tuesday.AddDate(0, 0, -3)) {
		t.Errorf("days=-1: %v", from)
	}

	if _, _, err := resolveRange(GenerateRequest{From: tuesday, To: tuesday.AddDate(0, 0, -1)}, now, time.UTC, noEarliest); !errors.Is(err, ErrDateRangeInvalid) {
		t.Errorf("reversed range err = %v", err)
	}
	if _, _, err := resolveRange(GenerateRequest{From: tuesday}, now, time.UTC, noEarliest); !errors.Is(err, ErrDateRangeInvalid) {
		t.Errorf("open range err = %v", err)
	}
}
