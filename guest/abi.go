package guest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/render-worker/errors"
)

// GraphicsABI declares the entry points a graphics module exports.
// Export names are the snake_case form of the WIT names.
const GraphicsABI = `
interface graphics {
	init-libs: func(width: s32, height: s32);
	frame: func(dt: f32);
	start-rendering: func();
	stop-rendering: func();
	handle-resize: func(width: s32, height: s32);
	handle-mouse-move: func(x: f64, y: f64);
	handle-mouse-button: func(button: s32, action: s32);
	cleanup: func();
}
`

// Export names of the graphics ABI.
const (
	FuncInitLibs          = "init_libs"
	FuncFrame             = "frame"
	FuncStartRendering    = "start_rendering"
	FuncStopRendering     = "stop_rendering"
	FuncHandleResize      = "handle_resize"
	FuncHandleMouseMove   = "handle_mouse_move"
	FuncHandleMouseButton = "handle_mouse_button"
	FuncCleanup           = "cleanup"
)

// Host import the module calls to draw a frame.
const (
	HostModule      = "env"
	HostRenderFrame = "render_frame"
)

// Signature is one ABI entry point lowered to core value types.
type Signature struct {
	Name    string // export name, snake_case
	WITName string
	Params  []api.ValueType
	Results []api.ValueType
}

func (s Signature) String() string {
	return fmt.Sprintf("%s(%s) -> (%s)", s.Name, valueTypeList(s.Params), valueTypeList(s.Results))
}

// ABI maps export names to their expected signatures.
type ABI map[string]Signature

// Names returns the export names in sorted order.
func (a ABI) Names() []string {
	names := make([]string, 0, len(a))
	for n := range a {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check compares a module's exported functions against the ABI. Exports
// named in required must be present. Any present export whose signature
// disagrees is reported. Exports outside the ABI are ignored.
func (a ABI) Check(exports map[string]api.FunctionDefinition, required ...string) error {
	var problems []errors.ExportProblem

	for _, name := range required {
		if _, ok := exports[name]; !ok {
			problems = append(problems, errors.ExportProblem{Name: name, Reason: "missing"})
		}
	}

	for _, name := range a.Names() {
		def, ok := exports[name]
		if !ok {
			continue
		}
		want := a[name]
		if !sameValueTypes(def.ParamTypes(), want.Params) {
			problems = append(problems, errors.ExportProblem{
				Name:   name,
				Reason: fmt.Sprintf("params (%s) want (%s)", valueTypeList(def.ParamTypes()), valueTypeList(want.Params)),
			})
		}
		if !sameValueTypes(def.ResultTypes(), want.Results) {
			problems = append(problems, errors.ExportProblem{
				Name:   name,
				Reason: fmt.Sprintf("results (%s) want (%s)", valueTypeList(def.ResultTypes()), valueTypeList(want.Results)),
			})
		}
	}

	if len(problems) > 0 {
		return &errors.ABIMismatchError{Problems: problems}
	}
	return nil
}

var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// ParseABI extracts function signatures from WIT text.
// Pattern: [export] name: func(params) -> result;
// Only flat primitive types are accepted since they map one to one onto
// core value types.
func ParseABI(witText string) (ABI, error) {
	abi := make(ABI)

	matches := funcPattern.FindAllStringSubmatch(witText, -1)
	for _, match := range matches {
		witName := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := ""
		if len(match) > 3 {
			resultStr = strings.TrimSpace(match[3])
		}

		sig := Signature{
			Name:    ExportName(witName),
			WITName: witName,
		}

		for _, p := range splitParams(paramsStr) {
			typStr := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typStr = strings.TrimSpace(p[idx+1:])
			}
			vt, err := coreType(typStr)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, witName+": param "+typStr)
			}
			sig.Params = append(sig.Params, vt)
		}

		if resultStr != "" && resultStr != "()" {
			inner := resultStr
			if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
				inner = strings.TrimPrefix(strings.TrimSuffix(resultStr, ")"), "(")
			}
			for _, part := range splitParams(inner) {
				vt, err := coreType(part)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, witName+": result "+part)
				}
				sig.Results = append(sig.Results, vt)
			}
		}

		if _, dup := abi[sig.Name]; dup {
			return nil, errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("duplicate function %q", witName))
		}
		abi[sig.Name] = sig
	}

	if len(abi) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}

	return abi, nil
}

// MustParseABI is ParseABI for constant WIT text.
func MustParseABI(witText string) ABI {
	abi, err := ParseABI(witText)
	if err != nil {
		panic(err)
	}
	return abi
}

// ExportName converts a WIT kebab-case name to the snake_case export name.
func ExportName(witName string) string {
	return strings.ReplaceAll(witName, "-", "_")
}

// splitParams splits parameter list, handling nested parens.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}

// coreType lowers a WIT primitive to its core value type.
func coreType(s string) (api.ValueType, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	switch t.(type) {
	case wit.Bool, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.S64, wit.U64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	}
	return 0, fmt.Errorf("type %q has no flat core representation", s)
}

func sameValueTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func valueTypeList(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ", ")
}

var graphicsABI = MustParseABI(GraphicsABI)

// Graphics returns the parsed graphics ABI.
func Graphics() ABI {
	return graphicsABI
}
