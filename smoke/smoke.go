// Package smoke verifies a packaged bundle end to end, the same way a
// consumer would hit it first: the embedded engine binary is extracted from
// the final artifact, instantiated against the manual import table, and the
// integration-parameters constructor is called once. Any failure here means
// the shipped package is broken even though every earlier step succeeded.
package smoke

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/kinetix3d/wasm-dist/bridge"
	"github.com/kinetix3d/wasm-dist/bundle"
	"github.com/kinetix3d/wasm-dist/errors"
	"github.com/kinetix3d/wasm-dist/wasm"
)

// DefaultExport is the constructor exercised by default. It allocates the
// engine's integration parameters, which touches linear memory and the
// import table without needing any prior setup.
const DefaultExport = "rawintegrationparameters_new"

// Options configures a verification run.
type Options struct {
	// BundlePath is the final packaged bundle on disk.
	BundlePath string
	// ImportModule is the import module name the engine binary is expected
	// to declare its bridge imports under. Defaults to
	// bridge.DefaultImportModule.
	ImportModule string
	// Export is the exported constructor to call. Defaults to DefaultExport.
	Export string
}

func (o *Options) applyDefaults() {
	if o.ImportModule == "" {
		o.ImportModule = bridge.DefaultImportModule
	}
	if o.Export == "" {
		o.Export = DefaultExport
	}
}

// Verify loads the bundle at opts.BundlePath, extracts and decodes the
// embedded engine binary and runs VerifyModule on it.
func Verify(ctx context.Context, opts Options) error {
	opts.applyDefaults()

	text, err := bundle.Load(opts.BundlePath)
	if err != nil {
		return err
	}
	payload, err := bundle.FindPayload(text)
	if err != nil {
		return err
	}
	engine, err := bundle.DecodePayload(payload.Encoded)
	if err != nil {
		return err
	}
	return VerifyModule(ctx, engine, opts)
}

// VerifyModule checks the engine binary against the manual import table and
// then instantiates it for real. The static check runs first so a shim gap
// is reported as the full set of missing names rather than whichever one the
// runtime trips over first.
func VerifyModule(ctx context.Context, engine []byte, opts Options) error {
	opts.applyDefaults()

	mod, err := wasm.ParseModule(engine)
	if err != nil {
		return errors.ParseFailed("engine binary", err)
	}

	if err := checkImports(mod, opts.ImportModule); err != nil {
		return err
	}

	exp, ok := mod.ExportedFunc(opts.Export)
	if !ok {
		return errors.MissingExport(opts.Export)
	}

	return instantiateAndCall(ctx, engine, mod, exp.Name)
}

// checkImports verifies that every function import the binary declares is
// satisfied by the manual import table. The patched bundle builds its import
// object with a single module key, so an import from any other module, or a
// bridge import with no shim, would fail at load time in the consumer and is
// a hard error here.
func checkImports(mod *wasm.Module, importModule string) error {
	index := bridge.ShimIndex()

	var missing []string
	for _, imp := range mod.Imports {
		if imp.Desc.Kind != wasm.KindFunc {
			return errors.Unsupported(errors.PhaseSmoke,
				fmt.Sprintf("non-function import %s#%s", imp.Module, imp.Name))
		}
		if imp.Module != importModule {
			missing = append(missing, imp.Module+"#"+imp.Name)
			continue
		}

		shim, ok := index[imp.Name]
		if !ok {
			missing = append(missing, imp.Module+"#"+imp.Name)
			continue
		}

		declared := mod.Type(imp.Desc.TypeIdx)
		if declared == nil {
			return errors.InvalidData(errors.PhaseSmoke,
				fmt.Sprintf("import %s references missing type %d", imp.Name, imp.Desc.TypeIdx))
		}
		expected := wasm.FuncType{Params: shim.Params, Results: shim.Results}
		if !declared.Equal(expected) {
			return errors.SignatureMismatch(imp.Module, imp.Name,
				declared.String(), expected.String())
		}
	}

	if len(missing) > 0 {
		return errors.NewMissingImportsError(missing)
	}
	return nil
}

// instantiateAndCall stands up a wazero runtime with zero-returning stubs
// for every declared import, instantiates the binary and calls the exported
// constructor with zero-valued arguments.
func instantiateAndCall(ctx context.Context, engine []byte, mod *wasm.Module, export string) error {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	// Group declared imports by module so each host module is built once.
	byModule := make(map[string][]wasm.Import)
	var order []string
	for _, imp := range mod.FuncImports() {
		if _, seen := byModule[imp.Module]; !seen {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp)
	}

	for _, name := range order {
		hostBuilder := rt.NewHostModuleBuilder(name)
		for _, imp := range byModule[name] {
			ft := mod.Type(imp.Desc.TypeIdx)
			if ft == nil {
				return errors.InvalidData(errors.PhaseSmoke,
					fmt.Sprintf("import %s references missing type %d", imp.Name, imp.Desc.TypeIdx))
			}
			hostBuilder.NewFunctionBuilder().
				WithGoModuleFunction(stubHandler(), valueTypes(ft.Params), valueTypes(ft.Results)).
				Export(imp.Name)
		}
		if _, err := hostBuilder.Instantiate(ctx); err != nil {
			return errors.Instantiation(err)
		}
	}

	compiled, err := rt.CompileModule(ctx, engine)
	if err != nil {
		return errors.Instantiation(err)
	}
	defer compiled.Close(ctx)

	inst, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("engine"))
	if err != nil {
		return errors.Instantiation(err)
	}
	defer inst.Close(ctx)

	fn := inst.ExportedFunction(export)
	if fn == nil {
		return errors.MissingExport(export)
	}

	args := make([]uint64, len(fn.Definition().ParamTypes()))
	if _, err := fn.Call(ctx, args...); err != nil {
		return errors.New(errors.PhaseSmoke, errors.KindInstantiation).
			Cause(err).
			Detail("constructor %s trapped", export).
			Build()
	}
	return nil
}

// stubHandler returns a host function that zero-fills its result slots. The
// verification only needs instantiation and one constructor call to succeed,
// not faithful bridge behavior.
func stubHandler() api.GoModuleFunction {
	return api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		for i := range stack {
			stack[i] = 0
		}
	})
}

func valueTypes(vts []wasm.ValType) []api.ValueType {
	out := make([]api.ValueType, len(vts))
	for i, vt := range vts {
		switch vt {
		case wasm.ValI32:
			out[i] = api.ValueTypeI32
		case wasm.ValI64:
			out[i] = api.ValueTypeI64
		case wasm.ValF32:
			out[i] = api.ValueTypeF32
		case wasm.ValF64:
			out[i] = api.ValueTypeF64
		}
	}
	return out
}
