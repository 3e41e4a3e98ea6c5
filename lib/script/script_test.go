package script

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/xslock/lib/store"
)

// fakeStore records calls and answers EvalSha with a cache miss until Eval was called
type fakeStore struct {
	cached  map[string]bool
	calls   []string
	failSha error
}

func (f *fakeStore) EvalSha(_ context.Context, sha1 string, _ []string, _ ...string) (int64, error) {
	f.calls = append(f.calls, "evalsha")
	if f.failSha != nil {
		return 0, f.failSha
	}
	if !f.cached[sha1] {
		return 0, store.NewError(store.RetCNoScript, "NOSCRIPT")
	}
	return 7, nil
}

func (f *fakeStore) Eval(_ context.Context, source string, _ []string, _ ...string) (int64, error) {
	f.calls = append(f.calls, "eval")
	sum := sha1.Sum([]byte(source))
	f.cached[hex.EncodeToString(sum[:])] = true
	return 7, nil
}

func (f *fakeStore) Time(context.Context) (time.Time, error) { return time.Now(), nil }
func (f *fakeStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (f *fakeStore) Delete(context.Context, string) error { return nil }
func (f *fakeStore) Close() error { return nil }

func TestCatalog(t *testing.T) {
	if n := len(All()); n != 12 {
		t.Fatalf("Expected 12 scripts, got %d", n)
	}

	names := map[string]bool{}
	for _, s := range All() {
		if names[s.Name] {
			t.Errorf("Duplicate script name %s", s.Name)
		}
		names[s.Name] = true

		if len(s.Hash) != 40 {
			t.Errorf("Script %s has an invalid hash %q", s.Name, s.Hash)
		}
		if found, ok := Lookup(s.Hash); !ok || found != s {
			t.Errorf("Lookup(%s) did not return %s", s.Hash, s.Name)
		}
		if found, ok := LookupSource(s.Source); !ok || found != s {
			t.Errorf("LookupSource did not return %s", s.Name)
		}
		if !strings.Contains(s.Source, "KEYS[1]") {
			t.Errorf("Script %s does not use its key", s.Name)
		}
	}

	if _, ok := LookupSource("return 1"); ok {
		t.Errorf("Expected an unknown source not to be found")
	}
}

func TestExecute_FallsBackToEval(t *testing.T) {
	st := &fakeStore{cached: map[string]bool{}}
	ctx := context.Background()

	result, err := AcquireSharedID.Execute(ctx, st, "k", "s1", "10")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != 7 {
		t.Errorf("Expected result 7, got %d", result)
	}

	// second run hits the cache
	if _, err := AcquireSharedID.Execute(ctx, st, "k", "s2", "10"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := []string{"evalsha", "eval", "evalsha"}
	if strings.Join(st.calls, ",") != strings.Join(want, ",") {
		t.Errorf("Expected calls %v, got %v", want, st.calls)
	}
}

func TestExecute_OtherErrors(t *testing.T) {
	broken := store.NewError(store.RetCConnection, "connection refused")
	st := &fakeStore{cached: map[string]bool{}, failSha: broken}

	_, err := ReleaseExclusiveSafe.Execute(context.Background(), st, "k", "0", "x1")
	if !errors.Is(err, broken) {
		t.Errorf("Expected the store error, got %v", err)
	}
	if len(st.calls) != 1 {
		t.Errorf("Expected no fallback for a non cache miss error, got calls %v", st.calls)
	}
}
