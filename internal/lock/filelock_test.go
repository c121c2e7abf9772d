package lock

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireThenTryAcquireFromSecondHandleFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "working.lock")

	first := New(path)
	ok, err := first.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("expected first lock to acquire, got ok=%v err=%v", ok, err)
	}
	defer first.Release()

	second := New(path)
	ok, err = second.TryAcquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected second handle to fail to acquire an already-held lock")
	}
}

func TestReleaseAllowsReacquisition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "working.lock")

	first := New(path)
	if ok, err := first.TryAcquire(); err != nil || !ok {
		t.Fatalf("expected first acquire to succeed: ok=%v err=%v", ok, err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}

	second := New(path)
	ok, err := second.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("expected reacquire after release: ok=%v err=%v", ok, err)
	}
	defer second.Release()
}

func TestWithLockReleasesOnReturn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "working.lock")

	ran := false
	err := WithLock(context.Background(), path, TimeoutShort, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("expected fn to run")
	}

	again := New(path)
	ok, err := again.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("expected lock to be free after WithLock returns: ok=%v err=%v", ok, err)
	}
	_ = again.Release()
}

func TestAcquireOrFailReturnsLockTimeoutWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "working.lock")

	holder := New(path)
	if ok, err := holder.TryAcquire(); err != nil || !ok {
		t.Fatalf("expected holder to acquire: ok=%v err=%v", ok, err)
	}
	defer holder.Release()

	contender := New(path)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := contender.AcquireOrFail(ctx)
	if err == nil {
		t.Fatal("expected AcquireOrFail to fail while lock is held")
	}
}
