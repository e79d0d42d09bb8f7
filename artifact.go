package wasmdist

import "context"

// Artifact is the single mutable carrier flowing through the pipeline.
// Stages read and update it in order; there is no shared state besides it.
type Artifact struct {
	// BundlePath is the self-contained JS bundle, rewritten in place.
	BundlePath string
	// Text is the bundle's current in-memory content.
	Text string

	// DescriptorPath is the package descriptor file, or empty to skip the
	// descriptor stage.
	DescriptorPath string
	// Descriptor is the descriptor's current in-memory content.
	Descriptor []byte

	// PayloadName is the bundle-scoped binding that holds the base64-encoded
	// wasm binary.
	PayloadName string
	// EngineBytes is the decoded wasm binary, populated by the patch stage.
	EngineBytes []byte

	// Patched is set once the bridge call has been replaced in Text.
	Patched bool
	// AlreadyPatched is set when the input bundle carried a prior patch and
	// the patch stage was a recognized no-op.
	AlreadyPatched bool

	// Dirty tracks whether Text differs from the on-disk bundle.
	Dirty bool
	// DescriptorDirty tracks whether Descriptor differs from disk.
	DescriptorDirty bool
}

// Stage is one step of the release pipeline. Stages run strictly in
// sequence; the first error aborts the run.
type Stage interface {
	Name() string
	Run(ctx context.Context, art *Artifact) error
}
