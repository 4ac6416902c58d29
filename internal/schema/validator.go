package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schemas.cue
var schemaSource string

// Validator parses raw JSON bytes into a typed record of one kind.
// Parse must be pure: no I/O, no retained state.
type Validator[T any] interface {
	Parse(raw []byte) (T, error)
}

// Func adapts a plain function to the Validator interface.
type Func[T any] func(raw []byte) (T, error)

// Parse calls f(raw).
func (f Func[T]) Parse(raw []byte) (T, error) {
	return f(raw)
}

// Check is an extra rule run on a decoded record after CUE validation,
// for constraints CUE cannot express well (e.g. uniqueness across a list).
type Check[T any] func(T) []ValidationError

// cueRuntime holds the compiled schema. CUE values are not safe for
// concurrent use, so every evaluation takes mu.
type cueRuntime struct {
	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
}

var loadRuntime = sync.OnceValues(func() (*cueRuntime, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(schemaSource, cue.Filename("schemas.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schemas.cue: %w", err)
	}
	return &cueRuntime{ctx: ctx, root: root}, nil
})

// CUEValidator validates records against a definition in schemas.cue.
type CUEValidator[T any] struct {
	kind      string
	rt        *cueRuntime
	def       cue.Value
	checks    []Check[T]
	normalize func(*T)
}

// NewCUE returns a validator for the named definition (e.g. "#Config").
// kind is used in error messages.
func NewCUE[T any](kind, definition string, checks ...Check[T]) (*CUEValidator[T], error) {
	rt, err := loadRuntime()
	if err != nil {
		return nil, newErrors(kind, ValidationError{Message: err.Error(), Code: ErrSchemaLoad})
	}

	rt.mu.Lock()
	def := rt.root.LookupPath(cue.ParsePath(definition))
	exists := def.Exists()
	rt.mu.Unlock()
	if !exists {
		return nil, newErrors(kind, ValidationError{
			Field:   definition,
			Message: "definition not found in schemas.cue",
			Code:    ErrSchemaLoad,
		})
	}

	return &CUEValidator[T]{kind: kind, rt: rt, def: def, checks: checks}, nil
}

// WithNormalize registers fn to run on every successfully decoded record,
// before checks. It returns v for chaining.
func (v *CUEValidator[T]) WithNormalize(fn func(*T)) *CUEValidator[T] {
	v.normalize = fn
	return v
}

// Parse validates raw against the definition and decodes it into T.
func (v *CUEValidator[T]) Parse(raw []byte) (T, error) {
	var zero T

	expr, err := cuejson.Extract(v.kind, raw)
	if err != nil {
		return zero, newErrors(v.kind, ValidationError{
			Message: fmt.Sprintf("malformed JSON: %v", err),
			Code:    ErrMalformedJSON,
		})
	}

	data, errs := v.evaluate(expr)
	if errs != nil {
		return zero, errs
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, newErrors(v.kind, ValidationError{
			Message: err.Error(),
			Code:    ErrTypeMismatch,
		})
	}

	if v.normalize != nil {
		v.normalize(&out)
	}

	var problems []ValidationError
	for _, check := range v.checks {
		problems = append(problems, check(out)...)
	}
	if len(problems) > 0 {
		return zero, newErrors(v.kind, problems...)
	}

	return out, nil
}

// evaluate unifies expr with the definition and returns the concrete value
// re-encoded as JSON.
func (v *CUEValidator[T]) evaluate(expr ast.Expr) ([]byte, *Errors) {
	v.rt.mu.Lock()
	defer v.rt.mu.Unlock()

	val := v.rt.ctx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return nil, newErrors(v.kind, ValidationError{
			Message: fmt.Sprintf("malformed JSON: %v", err),
			Code:    ErrMalformedJSON,
		})
	}

	unified := v.def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(v.kind, err)
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, fromCUE(v.kind, err)
	}
	return data, nil
}

// fromCUE flattens a CUE error list into ValidationErrors.
func fromCUE(kind string, err error) *Errors {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return newErrors(kind, ValidationError{Message: err.Error(), Code: ErrSchemaViolation})
	}

	items := make([]ValidationError, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		items = append(items, ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchemaViolation,
		})
	}
	return newErrors(kind, items...)
}
