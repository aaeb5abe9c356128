package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"debias/domain/core"
	"debias/domain/dataset"
	"debias/domain/table"
)

func newStore(t *testing.T) *LocalStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "uploads"), filepath.Join(dir, "corrected"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func sampleFrame() *table.Frame {
	return table.New(
		[]string{"gender", "income"},
		[][]string{{"male", "100"}, {"female", "200"}, {"male", "150"}},
	)
}

func TestSaveUploadProducesTwoVersions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	original, working, err := s.SaveUpload(ctx, "hiring.csv", sampleFrame())
	if err != nil {
		t.Fatal(err)
	}
	if original.Kind != dataset.KindOriginal || working.Kind != dataset.KindWorking {
		t.Errorf("kinds %s/%s, want original/working", original.Kind, working.Kind)
	}
	if working.Parent != original.Handle {
		t.Error("working copy must descend from the original")
	}
	if original.Rows != 3 || original.Columns != 2 {
		t.Errorf("shape %dx%d, want 3x2", original.Rows, original.Columns)
	}
	if filepath.Base(original.Path) == filepath.Base(working.Path) {
		t.Error("versions must live in distinct files")
	}
}

func TestLoadRoundtrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, working, err := s.SaveUpload(ctx, "hiring.csv", sampleFrame())
	if err != nil {
		t.Fatal(err)
	}

	fr, v, err := s.Load(ctx, string(working.Handle))
	if err != nil {
		t.Fatal(err)
	}
	if v.Handle != working.Handle {
		t.Error("load resolved the wrong version")
	}
	if fr.NumRows() != 3 {
		t.Errorf("loaded %d rows, want 3", fr.NumRows())
	}
	cell, ok := fr.Cell(1, "gender")
	if !ok || cell != "female" {
		t.Errorf("cell(1, gender) = %q, want female", cell)
	}
}

func TestResolveAcceptsPathAndBasename(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, working, err := s.SaveUpload(ctx, "hiring.csv", sampleFrame())
	if err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{
		string(working.Handle),
		working.Path,
		filepath.Base(working.Path),
	} {
		v, err := s.Resolve(ctx, ref)
		if err != nil {
			t.Errorf("Resolve(%q): %v", ref, err)
			continue
		}
		if v.Handle != working.Handle {
			t.Errorf("Resolve(%q) returned handle %s", ref, v.Handle)
		}
	}

	_, err = s.Resolve(ctx, "no-such-thing.csv")
	if !errors.Is(err, core.ErrHandleNotFound) {
		t.Errorf("unknown ref error %v, want handle not found", err)
	}
}

func TestVersionsAreImmutable(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, working, err := s.SaveUpload(ctx, "data.csv", sampleFrame())
	if err != nil {
		t.Fatal(err)
	}

	fr, _, err := s.Load(ctx, working.Path)
	if err != nil {
		t.Fatal(err)
	}
	fr.AppendRow([]string{"female", "999"})
	corrected, err := s.SaveVersion(ctx, fr, dataset.KindCorrected, working)
	if err != nil {
		t.Fatal(err)
	}

	// The parent file is untouched by the derived version.
	again, _, err := s.Load(ctx, working.Path)
	if err != nil {
		t.Fatal(err)
	}
	if again.NumRows() != 3 {
		t.Errorf("parent version grew to %d rows", again.NumRows())
	}
	if corrected.Rows != 4 {
		t.Errorf("corrected version has %d rows, want 4", corrected.Rows)
	}
	if corrected.Source != working.Source {
		t.Error("derived version should inherit the upload source name")
	}
}

func TestLineageWalksToOriginal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	original, working, err := s.SaveUpload(ctx, "data.csv", sampleFrame())
	if err != nil {
		t.Fatal(err)
	}
	fr, _, err := s.Load(ctx, working.Path)
	if err != nil {
		t.Fatal(err)
	}
	first, err := s.SaveVersion(ctx, fr, dataset.KindCorrected, working)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SaveVersion(ctx, fr, dataset.KindCorrected, first)
	if err != nil {
		t.Fatal(err)
	}

	chain, err := s.Lineage(ctx, string(second.Handle))
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 4 {
		t.Fatalf("lineage length %d, want 4", len(chain))
	}
	if chain[0].Handle != second.Handle || chain[3].Handle != original.Handle {
		t.Error("lineage should run corrected -> corrected -> working -> original")
	}
}

func TestHandleLockIsStable(t *testing.T) {
	s := newStore(t)
	h := core.HandleID(core.NewID())
	if s.HandleLock(h) != s.HandleLock(h) {
		t.Error("repeated lookups must return the same mutex")
	}
	if s.HandleLock(h) == s.HandleLock(core.HandleID(core.NewID())) {
		t.Error("different handles must not share a mutex")
	}
}
