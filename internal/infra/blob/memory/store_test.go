package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"genecatalog/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver")
	}
	meta := map[string]string{"source": "ensembl"}
	info, err := s.Put(ctx, "genes.csv", strings.NewReader("a;b"), core.PutOptions{ContentType: "text/csv", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["source"] = "mutated"
	if info.Size != 3 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "genes.csv", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists, got %v", err)
	}
	head, err := s.Head(ctx, "genes.csv")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Metadata["source"] != "ensembl" {
		t.Fatalf("metadata aliased caller map: %+v", head.Metadata)
	}
	_, rc, err := s.Get(ctx, "genes.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "a;b" {
		t.Fatalf("body = %q", body)
	}
	if _, err := s.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
