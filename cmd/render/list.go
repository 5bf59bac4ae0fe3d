package main

import (
	"context"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/render-worker/guest"
)

// listExports prints how a module lines up with the graphics ABI without
// instantiating it.
func listExports(ctx context.Context, w io.Writer, wasmBytes []byte) error {
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("compile module: %w", err)
	}
	exports := compiled.ExportedFunctions()
	abi := guest.Graphics()

	fmt.Fprintf(w, "Graphics exports:\n")
	for _, name := range abi.Names() {
		mark := "missing"
		if _, ok := exports[name]; ok {
			mark = "ok"
		}
		fmt.Fprintf(w, "  %-8s %s\n", mark, abi[name])
	}

	imports := compiled.ImportedFunctions()
	if len(imports) > 0 {
		fmt.Fprintf(w, "\nImports:\n")
		for _, def := range imports {
			mod, name, _ := def.Import()
			fmt.Fprintf(w, "  %s.%s\n", mod, name)
		}
	}

	if err := abi.Check(exports, guest.FuncInitLibs); err != nil {
		fmt.Fprintf(w, "\n%v\n", err)
	}
	return nil
}
