// Package wasmdist provides the release packaging pipeline for the kinetix3d
// physics engine's WebAssembly distribution.
//
// The engine itself is compiled externally (Rust + wasm-bindgen) and rolled
// up into a single self-contained JS bundle that carries the wasm binary as
// an inlined base64 string. This module takes that bundle and produces the
// publishable artifact:
//
//  1. patches the generated bridge so the wasm module is instantiated
//     explicitly with a manual import-function table instead of the fragile
//     auto-generated default path,
//  2. fixes the package descriptor's module-type field,
//  3. compacts the bundle text without changing behavior, and
//  4. smoke-tests the result by instantiating the embedded wasm binary and
//     constructing one known exported entity.
//
// # Architecture Overview
//
// The pipeline is strictly linear and single-pass, run once per release:
//
//	wasmdist/            Root package with the Artifact carrier and Stage interface
//	├── bridge/          Bridge patcher: call-shape matching and init block emission
//	├── bundle/          Bundle file I/O and embedded payload handling
//	├── compact/         Semantics-preserving textual compaction
//	├── descriptor/      Package descriptor (package.json) fixes
//	├── errors/          Structured error types for pipeline diagnostics
//	├── pipeline/        Stage orchestration and logging
//	├── smoke/           wazero-based post-patch verification
//	└── wasm/            WebAssembly binary decode/encode primitives
//
// # Quick Start
//
// Run the whole pipeline:
//
//	art, err := pipeline.Run(ctx, pipeline.Options{
//	    BundlePath:     "pkg/kinetix3d.js",
//	    DescriptorPath: "pkg/package.json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(art.BundlePath, "packaged")
//
// Every stage failure is fatal: an artifact is either fully valid or it is
// not published. There is no retry and no partial-success output state.
package wasmdist
