package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/odatacriteria/internal/compile"
	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/schema"
)

// LoadResult is a loaded, validated and built mapping schema.
type LoadResult struct {
	Schema    *schema.Schema
	Store     *mapping.Store
	FileCount int
}

// LoadError represents an error that occurred while loading a schema or
// query file.
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

// LoadSchema loads the CUE mapping schema in dir and builds its store.
// Structural problems stop loading with a single *LoadError; cross
// reference problems are all collected as schema.ValidationErrors, in
// which case the result carries the schema but no store.
func LoadSchema(dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := schema.FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	s, err := schema.Load(dir)
	if err != nil {
		return nil, []error{convertCompileError(err)}
	}

	result := &LoadResult{Schema: s, FileCount: s.FileCount}
	if verrs := schema.Validate(s); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return result, errs
	}

	st, err := s.Build()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}}
	}
	result.Store = st
	return result, nil
}

// LoadQuery reads and decodes a YAML query document. It returns the
// source text alongside the query so it can be recorded.
func LoadQuery(path string) (*expr.Query, string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, "", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
	}
	if err != nil {
		return nil, "", &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading query file: %v", err)}
	}
	q, err := expr.DecodeQuery(data)
	if err != nil {
		return nil, "", &LoadError{Code: ErrCodeInvalidQuery, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return q, string(data), nil
}

// convertCompileError converts a schema compile error to a LoadError with
// position info.
func convertCompileError(err error) *LoadError {
	var compileErr *schema.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// firstLoadError reports the code and message of the first error in errs.
func firstLoadError(errs []error) (string, string) {
	var loadErr *LoadError
	if errors.As(errs[0], &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var vErr schema.ValidationError
	if errors.As(errs[0], &vErr) {
		return vErr.Code, vErr.Field + ": " + vErr.Message
	}
	return ErrCodeGeneric, errs[0].Error()
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No CUE files found
	ErrCodeLoadFailed     = "E004" // CUE load failed
	ErrCodeNotFound       = "E005" // Path not found
	ErrCodeBuildFailed    = "E006" // Mapping store build failed
	ErrCodeDatabase       = "E008" // Compile log error
	ErrCodeScenarioFailed = "E009" // One or more scenarios failed
	ErrCodeDrift          = "E010" // Replay found drift

	// Schema compile errors
	ErrCodeNoTypes       = "E101" // No types declared
	ErrCodeInvalidKind   = "E102" // Kind is not entity or component
	ErrCodeInvalidMember = "E103" // Malformed member
	ErrCodeMissingTable  = "E104" // Mapped class without table
	ErrCodeInvalidDyn    = "E105" // Malformed dynamic member

	// Query errors, one per compile error code
	ErrCodeInvalidQuery      = "E300" // Query document could not be decoded
	ErrCodeUsage             = "E301"
	ErrCodeUnresolvableName  = "E302"
	ErrCodeUnresolvableDyn   = "E303"
	ErrCodeInvalidConfig     = "E304"
	ErrCodeInvalidExpression = "E305"
	ErrCodeCriteria          = "E306" // Criteria could not be rendered
)

// MapFieldToErrorCode maps a schema compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeLoadFailed
	case field == "types":
		return ErrCodeNoTypes
	case field == "kind":
		return ErrCodeInvalidKind
	case strings.HasPrefix(field, "members."):
		return ErrCodeInvalidMember
	case field == "table":
		return ErrCodeMissingTable
	case strings.HasPrefix(field, "dynamic"):
		return ErrCodeInvalidDyn
	default:
		return ErrCodeGeneric
	}
}

// MapCompileErrorCode maps a compiler error code to a CLI error code.
func MapCompileErrorCode(code compile.ErrorCode) string {
	switch code {
	case compile.ErrCodeUsage:
		return ErrCodeUsage
	case compile.ErrCodeUnresolvableName:
		return ErrCodeUnresolvableName
	case compile.ErrCodeUnresolvableDynamicMember:
		return ErrCodeUnresolvableDyn
	case compile.ErrCodeInvalidConfiguration:
		return ErrCodeInvalidConfig
	case compile.ErrCodeInvalidExpression:
		return ErrCodeInvalidExpression
	default:
		return ErrCodeGeneric
	}
}
