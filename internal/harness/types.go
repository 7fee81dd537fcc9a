package harness

import "github.com/roach88/odatacriteria/internal/alias"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// CompilationID is the id the compilation was recorded under.
	CompilationID string `json:"compilation_id"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Aliases  []alias.Alias `json:"aliases"`
	SQL      string        `json:"sql,omitempty"`
	Params   []any         `json:"params,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Portable bool          `json:"portable"`

	// Rows holds the first column of every fixture row, when the
	// scenario has a fixture.
	Rows []string `json:"rows,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Errors:  []string{},
		Aliases: []alias.Alias{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
