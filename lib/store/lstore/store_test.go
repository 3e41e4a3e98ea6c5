package lstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/xslock/lib/script"
	"github.com/ValentinKolb/xslock/lib/store"
	storetesting "github.com/ValentinKolb/xslock/lib/store/testing"
)

var epoch = time.Unix(1_700_000_000, 0)

func newTestStore() (*storeImpl, *storetesting.ManualClock) {
	clock := storetesting.NewManualClock(epoch)
	return NewLocalStore(WithClock(clock.Now)).(*storeImpl), clock
}

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "LocalStore", func(t *testing.T) storetesting.Harness {
		s, clock := newTestStore()
		return storetesting.Harness{Store: s, Advance: clock.Advance}
	})
}

func TestEvalSha_CachedAfterEval(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	sc := script.AcquireExclusiveSimple

	if _, err := s.Eval(ctx, sc.Source, []string{"k"}, "10"); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	result, err := s.EvalSha(ctx, sc.Hash, []string{"k"}, "10")
	if err != nil {
		t.Fatalf("Expected the script to be cached, got %v", err)
	}
	if result != script.ResultBusy {
		t.Errorf("Expected %d, got %d", script.ResultBusy, result)
	}
}

func TestEval_UnknownScript(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Eval(context.Background(), "return 1", []string{"k"})

	var storeErr *store.Error
	if !errors.As(err, &storeErr) || storeErr.Code != store.RetCUnsupportedOperation {
		t.Errorf("Expected an unsupported operation error, got %v", err)
	}
}

func TestRun_ArgumentChecks(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if _, err := s.Eval(ctx, script.AcquireExclusiveID.Source, []string{"k"}, "only-token"); err == nil {
		t.Errorf("Expected an error for a missing argument")
	}
	if _, err := s.Eval(ctx, script.AcquireExclusiveSimple.Source, []string{"a", "b"}, "10"); err == nil {
		t.Errorf("Expected an error for two keys")
	}
	if _, err := s.Eval(ctx, script.AcquireExclusiveSimple.Source, []string{"k"}, "ten"); err == nil {
		t.Errorf("Expected an error for a non integer expire")
	}

	// failed scripts leave no record behind
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Errorf("Expected no record after failed scripts")
	}
}

func TestRun_NonPositiveExpireDeletes(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	result, err := script.AcquireSharedSimple.Execute(ctx, s, "k", "0")
	if err != nil || result != script.ResultOK {
		t.Fatalf("Expected success, got %d, %v", result, err)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Errorf("Expected the key to be deleted by a zero TTL")
	}
}

func TestCollect(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := script.AcquireExclusiveSimple.Execute(ctx, s, key, "1"); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}
	clock.Advance(2 * time.Second)
	s.collect(clock.Now())

	if size := s.records.Size(); size != 0 {
		t.Errorf("Expected all expired records to be removed, %d left", size)
	}
}

func TestClosed(t *testing.T) {
	s, _ := newTestStore()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := script.AcquireExclusiveSimple.Execute(context.Background(), s, "k", "10")
	var storeErr *store.Error
	if !errors.As(err, &storeErr) || storeErr.Code != store.RetCConnection {
		t.Errorf("Expected a connection error on a closed store, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s, _ := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Time(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
