package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Errors []schema.ValidationError `json:"errors,omitempty"`
	Report *SchemaReport            `json:"report,omitempty"`
}

// SchemaReport summarizes a valid schema.
type SchemaReport struct {
	SchemaHash string        `json:"schema_hash"`
	FileCount  int           `json:"file_count"`
	Types      int           `json:"types"`
	Mapped     []MappedEntry `json:"mapped"`

	// Shortcuts maps each unmapped base to its only mapped subtype.
	Shortcuts map[mapping.TypeID]mapping.TypeID `json:"shortcuts"`

	// Ambiguous lists unmapped bases shared by several mapped subtypes.
	// Paths through them cannot be resolved.
	Ambiguous map[mapping.TypeID][]mapping.TypeID `json:"ambiguous"`
}

// MappedEntry is one mapped class in a report.
type MappedEntry struct {
	Type       mapping.TypeID `json:"type"`
	Table      string         `json:"table"`
	Key        string         `json:"key"`
	Properties int            `json:"properties"`
	Dynamic    int            `json:"dynamic"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate a mapping schema",
		Long: `Validate a CUE mapping schema and report its mapped classes.

Checks type and member references, base chains, tables and dynamic
members, collecting every error. A valid schema is summarized with its
mapped classes, the base shortcut table and the bases that are shared
by more than one mapped subtype.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, loadErrors := LoadSchema(schemaDir)
	if loaded == nil {
		code, message := firstLoadError(loadErrors)
		return outputCommandError(formatter, code, message)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, schemaDir)

	if len(loadErrors) > 0 {
		return outputValidationErrors(formatter, toValidationErrors(loadErrors))
	}

	return outputValidateSuccess(formatter, buildReport(loaded))
}

func toValidationErrors(errs []error) []schema.ValidationError {
	out := make([]schema.ValidationError, 0, len(errs))
	for _, err := range errs {
		var vErr schema.ValidationError
		if errors.As(err, &vErr) {
			out = append(out, vErr)
			continue
		}
		code, message := firstLoadError([]error{err})
		out = append(out, schema.ValidationError{Field: "schema", Message: message, Code: code})
	}
	return out
}

func buildReport(loaded *LoadResult) *SchemaReport {
	st := loaded.Store
	report := &SchemaReport{
		SchemaHash: st.Hash(),
		FileCount:  loaded.FileCount,
		Types:      len(loaded.Schema.Types),
		Mapped:     []MappedEntry{},
		Shortcuts:  st.Shortcuts(),
		Ambiguous:  st.AmbiguousBases(),
	}
	for _, mc := range st.MappedClasses() {
		report.Mapped = append(report.Mapped, MappedEntry{
			Type:       mc.Type,
			Table:      mc.Table,
			Key:        mc.Key,
			Properties: len(mc.Properties()),
			Dynamic:    len(mc.Dynamic),
		})
	}
	return report
}

// outputValidateSuccess outputs the report of a valid schema.
func outputValidateSuccess(formatter *OutputFormatter, report *SchemaReport) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Report: report})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Schema valid: %d type(s), %d mapped\n", report.Types, len(report.Mapped))
	fmt.Fprintf(w, "  hash %s\n", report.SchemaHash)

	fmt.Fprintln(w, "\nMapped classes:")
	for _, m := range report.Mapped {
		fmt.Fprintf(w, "  %s -> %s (key %s, %d properties", m.Type, m.Table, m.Key, m.Properties)
		if m.Dynamic > 0 {
			fmt.Fprintf(w, ", %d dynamic", m.Dynamic)
		}
		fmt.Fprintln(w, ")")
	}

	if len(report.Shortcuts) > 0 {
		fmt.Fprintln(w, "\nBase shortcuts:")
		for _, base := range sortedKeys(report.Shortcuts) {
			fmt.Fprintf(w, "  %s -> %s\n", base, report.Shortcuts[base])
		}
	}

	if len(report.Ambiguous) > 0 {
		fmt.Fprintln(w, "\nAmbiguous bases:")
		for _, base := range sortedKeys(report.Ambiguous) {
			subs := make([]string, len(report.Ambiguous[base]))
			for i, s := range report.Ambiguous[base] {
				subs[i] = string(s)
			}
			fmt.Fprintf(w, "  %s: %s\n", base, strings.Join(subs, ", "))
		}
	}
	return nil
}

func sortedKeys[V any](m map[mapping.TypeID]V) []mapping.TypeID {
	keys := make([]mapping.TypeID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, errs []schema.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, ValidationResult{Valid: false, Errors: errs}); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
