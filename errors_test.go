package methodcache

import (
	"errors"
	"strings"
	"testing"
)

func TestDropErrorUnwrap(t *testing.T) {
	bump := errors.New("bump")
	del := errors.New("del")

	err := error(&DropError{Key: "k", BumpErr: bump, DelErr: del})
	if !errors.Is(err, bump) || !errors.Is(err, del) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	if !strings.Contains(err.Error(), "bump=bump; delete=del") {
		t.Fatalf("message = %q", err.Error())
	}

	err = &DropError{Key: "k", DelErr: del}
	if errors.Is(err, bump) || !errors.Is(err, del) {
		t.Fatalf("unexpected chain for %v", err)
	}
}

func TestCacheConfigErrorNamesDefault(t *testing.T) {
	err := &CacheConfigError{Cache: DefaultCache, Err: ErrDuplicateCache}
	if !strings.Contains(err.Error(), "default cache") {
		t.Fatalf("message = %q", err.Error())
	}
	if !errors.Is(err, ErrDuplicateCache) {
		t.Fatal("unwrap failed")
	}
}

func TestBadImplementationErrorIs(t *testing.T) {
	err := error(&BadImplementationError{Method: "m", Args: []any{struct{}{}}})
	if !errors.Is(err, ErrBadImplementation) {
		t.Fatal("errors.Is(ErrBadImplementation) = false")
	}
	if !strings.Contains(err.Error(), `"m"`) {
		t.Fatalf("message = %q", err.Error())
	}
}
