package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestSQLiteCatalog_CommitLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	cat, err := NewSQLiteCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()
	ctx := context.Background()

	active, err := cat.ActiveGeneration(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Fatalf("expected no active generation, got %+v", active)
	}

	if err := cat.BeginBuild(ctx, "g1", "/idx/gen-g1"); err != nil {
		t.Fatal(err)
	}
	if err := cat.CommitBuild(ctx, "g1", 3); err != nil {
		t.Fatal(err)
	}
	active, err = cat.ActiveGeneration(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != "g1" || active.DocCount != 3 || active.Status != StatusCommitted {
		t.Fatalf("active = %+v", active)
	}
	if active.FinishedAt == nil {
		t.Error("FinishedAt should be set on commit")
	}

	if err := cat.BeginBuild(ctx, "g2", "/idx/gen-g2"); err != nil {
		t.Fatal(err)
	}
	if err := cat.CommitBuild(ctx, "g2", 5); err != nil {
		t.Fatal(err)
	}
	active, _ = cat.ActiveGeneration(ctx)
	if active.ID != "g2" {
		t.Errorf("active = %s, want g2", active.ID)
	}

	builds, err := cat.ListBuilds(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(builds) != 2 {
		t.Fatalf("expected 2 builds, got %d", len(builds))
	}
	committed := 0
	for _, b := range builds {
		if b.Status == StatusCommitted {
			committed++
		}
		if b.ID == "g1" && b.Status != StatusSuperseded {
			t.Errorf("g1 status = %s, want superseded", b.Status)
		}
	}
	if committed != 1 {
		t.Errorf("expected exactly one committed build, got %d", committed)
	}
}

func TestSQLiteCatalog_FailBuild(t *testing.T) {
	cat, err := NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()
	ctx := context.Background()

	_ = cat.BeginBuild(ctx, "ok", "/a")
	if err := cat.CommitBuild(ctx, "ok", 1); err != nil {
		t.Fatal(err)
	}
	_ = cat.BeginBuild(ctx, "bad", "/b")
	if err := cat.FailBuild(ctx, "bad", errors.New("boom")); err != nil {
		t.Fatal(err)
	}

	active, _ := cat.ActiveGeneration(ctx)
	if active == nil || active.ID != "ok" {
		t.Fatalf("failed build must not replace the active one, got %+v", active)
	}
	if err := cat.CommitBuild(ctx, "bad", 1); err == nil {
		t.Error("committing a failed build should error")
	}
	builds, _ := cat.ListBuilds(ctx, 0)
	for _, b := range builds {
		if b.ID == "bad" && (b.Status != StatusFailed || b.Error != "boom") {
			t.Errorf("bad build = %+v", b)
		}
	}
	if err := cat.FailBuild(ctx, "missing", nil); err == nil {
		t.Error("expected error for unknown build")
	}
}

func TestSQLiteCatalog_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()
	cat, err := NewSQLiteCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = cat.BeginBuild(ctx, "g1", "/idx/gen-g1")
	_ = cat.CommitBuild(ctx, "g1", 2)
	_ = cat.Close()

	cat, err = NewSQLiteCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()
	active, err := cat.ActiveGeneration(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.Path != "/idx/gen-g1" {
		t.Errorf("active after reopen = %+v", active)
	}
}
