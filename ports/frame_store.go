package ports

import (
	"context"

	"debias/domain/dataset"
	"debias/domain/table"
)

// FrameStore manages immutable on-disk dataset versions. Saving always
// creates a new version with a fresh handle; existing versions are never
// rewritten.
type FrameStore interface {
	// SaveUpload stores an upload as two versions: the untouched original
	// and the working copy the workflow mutates from.
	SaveUpload(ctx context.Context, source string, fr *table.Frame) (original *dataset.Version, working *dataset.Version, err error)

	// SaveVersion writes a derived version (working or corrected) whose
	// lineage points at parent.
	SaveVersion(ctx context.Context, fr *table.Frame, kind dataset.VersionKind, parent *dataset.Version) (*dataset.Version, error)

	// Load resolves a reference (handle or stored path) and reads the frame.
	Load(ctx context.Context, ref string) (*table.Frame, *dataset.Version, error)

	// Resolve returns the version for a reference without reading the file.
	Resolve(ctx context.Context, ref string) (*dataset.Version, error)
}
