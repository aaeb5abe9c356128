// Package store implements the local filesystem frame store. Every version
// is one immutable CSV file; the store maps handles and paths back to
// version metadata and tracks lineage from corrected files to their upload.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"debias/adapters/tabular"
	"debias/domain/core"
	"debias/domain/dataset"
	"debias/domain/table"
	"debias/ports"
)

// LocalStore keeps dataset versions under two directories: uploads (original
// and working copies) and corrected (correction job outputs).
type LocalStore struct {
	uploadDir    string
	correctedDir string
	reader       ports.TabularReader
	writer       ports.TabularWriter

	mu       sync.RWMutex
	byHandle map[core.HandleID]*dataset.Version
	byPath   map[string]*dataset.Version

	locksMu sync.Mutex
	locks   map[core.HandleID]*sync.Mutex
}

var _ ports.FrameStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at the given directories
func NewLocalStore(uploadDir, correctedDir string) (*LocalStore, error) {
	for _, dir := range []string{uploadDir, correctedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &LocalStore{
		uploadDir:    uploadDir,
		correctedDir: correctedDir,
		reader:       tabular.NewReader(),
		writer:       tabular.NewWriter(),
		byHandle:     make(map[core.HandleID]*dataset.Version),
		byPath:       make(map[string]*dataset.Version),
		locks:        make(map[core.HandleID]*sync.Mutex),
	}, nil
}

// SaveUpload stores an upload as an original and a working version. The
// original is never touched again; all later steps derive from the working
// copy.
func (s *LocalStore) SaveUpload(ctx context.Context, source string, fr *table.Frame) (*dataset.Version, *dataset.Version, error) {
	original, err := s.write(fr, dataset.KindOriginal, source, "")
	if err != nil {
		return nil, nil, err
	}
	working, err := s.write(fr, dataset.KindWorking, source, original.Handle)
	if err != nil {
		return nil, nil, err
	}
	return original, working, nil
}

// SaveVersion writes a derived version whose lineage points at parent
func (s *LocalStore) SaveVersion(ctx context.Context, fr *table.Frame, kind dataset.VersionKind, parent *dataset.Version) (*dataset.Version, error) {
	source := ""
	var parentHandle core.HandleID
	if parent != nil {
		source = parent.Source
		parentHandle = parent.Handle
	}
	return s.write(fr, kind, source, parentHandle)
}

func (s *LocalStore) write(fr *table.Frame, kind dataset.VersionKind, source string, parent core.HandleID) (*dataset.Version, error) {
	dir := s.uploadDir
	if kind == dataset.KindCorrected {
		dir = s.correctedDir
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "dataset"
	}
	name := fmt.Sprintf("%s_%s_%s.csv", kind, base, uuid.New().String()[:8])
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create version file: %w", err)
	}
	if err := s.writer.Write(f, fr); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write version file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close version file: %w", err)
	}

	rows, cols := fr.Shape()
	v := &dataset.Version{
		Handle:    core.HandleID(core.NewID()),
		Path:      path,
		Kind:      kind,
		Source:    source,
		Parent:    parent,
		Rows:      rows,
		Columns:   cols,
		CreatedAt: core.Now(),
	}

	s.mu.Lock()
	s.byHandle[v.Handle] = v
	s.byPath[path] = v
	s.mu.Unlock()

	return v, nil
}

// Resolve looks a reference up as a handle first, then as a stored path.
// Callers hold whichever form an earlier response gave them.
func (s *LocalStore) Resolve(ctx context.Context, ref string) (*dataset.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.byHandle[core.HandleID(ref)]; ok {
		return v, nil
	}
	if v, ok := s.byPath[ref]; ok {
		return v, nil
	}
	// Bare filenames are accepted for convenience; clients sometimes strip
	// the directory.
	for p, v := range s.byPath {
		if filepath.Base(p) == filepath.Base(ref) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("dataset %q: %w", ref, core.ErrHandleNotFound)
}

// Load resolves a reference and reads its frame from disk
func (s *LocalStore) Load(ctx context.Context, ref string) (*table.Frame, *dataset.Version, error) {
	v, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(v.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", v.Path, err)
	}
	defer f.Close()

	fr, err := s.reader.Read(f, v.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", v.Path, err)
	}
	return fr, v, nil
}

// HandleLock returns the mutex serializing corrections on one handle.
// Locks are created lazily and never discarded; handles are bounded by the
// number of versions in a workflow run.
func (s *LocalStore) HandleLock(h core.HandleID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if m, ok := s.locks[h]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.locks[h] = m
	return m
}

// Lineage walks parent links from a version back to its original upload.
func (s *LocalStore) Lineage(ctx context.Context, ref string) ([]*dataset.Version, error) {
	v, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	chain := []*dataset.Version{v}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for v.Parent != "" {
		p, ok := s.byHandle[v.Parent]
		if !ok {
			break
		}
		chain = append(chain, p)
		v = p
	}
	return chain, nil
}
