// Package catalog loads metric definitions from CUE into a registry.
//
// The standard catalog is embedded. Additional metrics can be layered from
// a directory of .cue files; their formulas may reference standard metrics.
// Every file is unified with the #Metric schema before compilation.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/metricalg/internal/compiler"
	"github.com/roach88/metricalg/internal/registry"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed standard.cue
var standardSource []byte

// Error codes for catalog loading (E0xx); metric validation uses the
// compiler's E2xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeDefine      = "E008" // Registry rejected a compiled metric
)

// LoadError represents an error that occurred while loading a catalog.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult describes a successful load.
type LoadResult struct {
	Metrics   []string // names defined, in registration order
	FileCount int
}

// Standard builds a registry holding the embedded standard metrics.
func Standard() (*registry.Registry, error) {
	reg := registry.New()
	ctx := cuecontext.New()
	v := ctx.CompileBytes(standardSource, cue.Filename("standard.cue"))
	if _, errs := loadValue(ctx, reg, v); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

// MustStandard is Standard that panics on error.
func MustStandard() *registry.Registry {
	reg, err := Standard()
	if err != nil {
		panic(fmt.Sprintf("standard catalog: %v", err))
	}
	return reg
}

// StandardSource returns the embedded standard catalog as CUE text.
func StandardSource() []byte {
	return append([]byte(nil), standardSource...)
}

// LoadSource compiles one CUE document and defines its metrics in reg.
func LoadSource(reg *registry.Registry, filename string, src []byte) ([]string, []error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return loadValue(ctx, reg, v)
}

// LoadDir loads every .cue file under dir as one CUE package and defines
// its metrics in reg. Files must share a package clause.
//
// All errors are collected. Metrics are defined only after the whole
// directory compiles and orders cleanly.
func LoadDir(reg *registry.Registry, dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("metrics directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing metrics directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	names, errs := loadValue(ctx, reg, value)
	if len(errs) > 0 {
		return nil, errs
	}
	return &LoadResult{Metrics: names, FileCount: len(files)}, nil
}

// loadValue unifies v with the schema, compiles, orders and registers.
func loadValue(ctx *cue.Context, reg *registry.Registry, v cue.Value) ([]string, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err), Pos: firstPos(err)}}
	}

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("schema: %v", err)}}
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, []error{&LoadError{Code: compiler.ErrSchemaViolation, Message: cueerrors.Details(err, nil), Pos: firstPos(err)}}
	}

	specs, compileErrs := compiler.CompileCatalog(unified)
	var errs []error
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err))
	}
	if len(errs) > 0 {
		return nil, errs
	}

	ordered, verrs := compiler.Order(specs, reg.Has)
	for _, ve := range verrs {
		errs = append(errs, &LoadError{Code: ve.Code, Message: fmt.Sprintf("%s: %s", ve.Field, ve.Message)})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	names := make([]string, 0, len(ordered))
	for _, spec := range ordered {
		var opts []registry.DefineOption
		if spec.Description != "" {
			opts = append(opts, registry.WithDescription(spec.Description))
		}
		if err := reg.Define(spec.Name, spec.Formula, opts...); err != nil {
			return names, []error{&LoadError{Code: ErrCodeDefine, Message: err.Error(), Pos: spec.Pos}}
		}
		names = append(names, spec.Name)
	}
	return names, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    compiler.CodeFor(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return &LoadError{Code: ve.Code, Message: fmt.Sprintf("%s: %s", ve.Field, ve.Message)}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

func firstPos(err error) token.Pos {
	for _, e := range cueerrors.Errors(err) {
		if ps := cueerrors.Positions(e); len(ps) > 0 {
			return ps[0]
		}
	}
	return token.NoPos
}
