// Package pipeline runs the packaging stages in their fixed order: load,
// patch, descriptor, compact, write, smoke. Every stage failure is fatal and
// aborts the run; in particular an unrecognized bridge call stops the
// pipeline before anything is written, so a failed run never leaves a
// half-processed artifact behind.
package pipeline

import (
	"context"
	"os"

	"go.uber.org/zap"

	wasmdist "github.com/kinetix3d/wasm-dist"
	"github.com/kinetix3d/wasm-dist/bridge"
	"github.com/kinetix3d/wasm-dist/bundle"
	"github.com/kinetix3d/wasm-dist/compact"
	"github.com/kinetix3d/wasm-dist/descriptor"
	"github.com/kinetix3d/wasm-dist/errors"
	"github.com/kinetix3d/wasm-dist/smoke"
)

// Options configures a pipeline run.
type Options struct {
	// BundlePath is the self-contained bundle to rewrite in place. Required.
	BundlePath string
	// DescriptorPath is the package descriptor to fix up. Empty skips the
	// descriptor stage.
	DescriptorPath string
	// ImportModule overrides the import module name the engine binary
	// declares its bridge imports under.
	ImportModule string
	// SmokeExport overrides the exported constructor called during
	// verification.
	SmokeExport string
	// SkipCompact leaves the bundle text unreduced.
	SkipCompact bool
	// RenameDepFrom and RenameDepTo move a descriptor dependency entry to a
	// new package name. Both empty skips the rename.
	RenameDepFrom string
	RenameDepTo   string
}

// Run executes all stages against the artifacts named in opts and returns
// the final artifact state for reporting.
func Run(ctx context.Context, opts Options) (*wasmdist.Artifact, error) {
	if opts.BundlePath == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "a bundle path is required")
	}

	art := &wasmdist.Artifact{
		BundlePath:     opts.BundlePath,
		DescriptorPath: opts.DescriptorPath,
	}

	for _, st := range stages(opts) {
		if err := ctx.Err(); err != nil {
			return art, err
		}
		if err := st.Run(ctx, art); err != nil {
			Logger().Error("stage failed", zap.String("stage", st.Name()), zap.Error(err))
			return art, err
		}
		Logger().Info("stage done", zap.String("stage", st.Name()))
	}
	return art, nil
}

func stages(opts Options) []wasmdist.Stage {
	return []wasmdist.Stage{
		loadStage{},
		patchStage{importModule: opts.ImportModule},
		descriptorStage{renameFrom: opts.RenameDepFrom, renameTo: opts.RenameDepTo},
		compactStage{skip: opts.SkipCompact},
		writeStage{},
		smokeStage{importModule: opts.ImportModule, export: opts.SmokeExport},
	}
}

// loadStage reads the bundle and descriptor and locates the embedded engine
// payload. Decoding up front means a corrupt payload fails the run before
// any rewriting starts.
type loadStage struct{}

func (loadStage) Name() string { return "load" }

func (loadStage) Run(_ context.Context, art *wasmdist.Artifact) error {
	text, err := bundle.Load(art.BundlePath)
	if err != nil {
		return err
	}
	art.Text = text

	payload, err := bundle.FindPayload(text)
	if err != nil {
		return err
	}
	art.PayloadName = payload.Name

	engine, err := bundle.DecodePayload(payload.Encoded)
	if err != nil {
		return err
	}
	art.EngineBytes = engine

	Logger().Info("bundle loaded",
		zap.String("path", art.BundlePath),
		zap.String("payload", art.PayloadName),
		zap.Int("engine_bytes", len(engine)))

	if art.DescriptorPath != "" {
		data, err := os.ReadFile(art.DescriptorPath)
		if err != nil {
			return errors.MissingFile(errors.PhaseLoad, art.DescriptorPath, err)
		}
		art.Descriptor = data
	}
	return nil
}

// patchStage swaps the generated bridge call for the explicit
// initialization block.
type patchStage struct {
	importModule string
}

func (patchStage) Name() string { return "patch" }

func (s patchStage) Run(_ context.Context, art *wasmdist.Artifact) error {
	p := &bridge.Patcher{
		ImportModule: s.importModule,
		PayloadName:  art.PayloadName,
	}
	out, res, err := p.Apply(art.Text)
	if err != nil {
		return err
	}
	if res.AlreadyPatched {
		art.AlreadyPatched = true
		Logger().Info("bundle already patched, leaving as is")
		return nil
	}
	art.Text = out
	art.Patched = true
	art.Dirty = true
	Logger().Info("bridge call replaced",
		zap.String("shape", res.Shape.String()),
		zap.String("fallback_symbol", res.Symbol))
	return nil
}

// descriptorStage ensures the descriptor declares the module type and
// applies the optional dependency rename.
type descriptorStage struct {
	renameFrom, renameTo string
}

func (descriptorStage) Name() string { return "descriptor" }

func (s descriptorStage) Run(_ context.Context, art *wasmdist.Artifact) error {
	if art.DescriptorPath == "" {
		return nil
	}

	out, changed, err := descriptor.EnsureModuleType(art.Descriptor)
	if err != nil {
		return err
	}
	if changed {
		art.Descriptor = out
		art.DescriptorDirty = true
		Logger().Info("module type added to descriptor")
	}

	if s.renameFrom != "" || s.renameTo != "" {
		out, changed, err = descriptor.RenameDependency(art.Descriptor, s.renameFrom, s.renameTo)
		if err != nil {
			return err
		}
		if changed {
			art.Descriptor = out
			art.DescriptorDirty = true
			Logger().Info("dependency renamed",
				zap.String("from", s.renameFrom),
				zap.String("to", s.renameTo))
		}
	}
	return nil
}

// compactStage reduces the bundle text, then proves the reduction kept the
// two things later stages depend on: the payload literal and the patch.
type compactStage struct {
	skip bool
}

func (compactStage) Name() string { return "compact" }

func (s compactStage) Run(_ context.Context, art *wasmdist.Artifact) error {
	if s.skip {
		return nil
	}

	out := compact.Compact(art.Text)
	if out == art.Text {
		return nil
	}

	payload, err := bundle.FindPayload(out)
	if err != nil || payload.Name != art.PayloadName {
		return errors.InvalidData(errors.PhaseCompact, "compaction lost the engine payload")
	}
	if !bridge.IsPatched(out) {
		return errors.InvalidData(errors.PhaseCompact, "compaction lost the instantiation patch")
	}

	Logger().Info("bundle compacted",
		zap.Int("before_bytes", len(art.Text)),
		zap.Int("after_bytes", len(out)))
	art.Text = out
	art.Dirty = true
	return nil
}

// writeStage persists whatever changed. Unchanged artifacts are left alone
// so re-runs do not touch mtimes.
type writeStage struct{}

func (writeStage) Name() string { return "write" }

func (writeStage) Run(_ context.Context, art *wasmdist.Artifact) error {
	if art.Dirty {
		if err := bundle.WriteAtomic(art.BundlePath, []byte(art.Text)); err != nil {
			return err
		}
		art.Dirty = false
		Logger().Info("bundle written", zap.String("path", art.BundlePath))
	} else {
		Logger().Info("bundle unchanged, skipping write")
	}

	if art.DescriptorDirty {
		if err := bundle.WriteAtomic(art.DescriptorPath, art.Descriptor); err != nil {
			return err
		}
		art.DescriptorDirty = false
		Logger().Info("descriptor written", zap.String("path", art.DescriptorPath))
	}
	return nil
}

// smokeStage re-reads the final artifact from disk and instantiates the
// engine it actually ships.
type smokeStage struct {
	importModule string
	export       string
}

func (smokeStage) Name() string { return "smoke" }

func (s smokeStage) Run(ctx context.Context, art *wasmdist.Artifact) error {
	err := smoke.Verify(ctx, smoke.Options{
		BundlePath:   art.BundlePath,
		ImportModule: s.importModule,
		Export:       s.export,
	})
	if err != nil {
		return err
	}
	Logger().Info("smoke verification passed", zap.String("path", art.BundlePath))
	return nil
}
