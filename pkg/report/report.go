// Package report collects graded findings from validation and mapping.
// Findings never abort the operation that produced them; callers decide
// whether a Result with errors counts as a failure.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/fhir"
)

// Severity of a finding, aligned with FHIR IssueSeverity
type Severity string

const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
)

// Rule codes
const (
	CodeStructure   = "structure"
	CodeRequired    = "required"
	CodeValue       = "value"
	CodeDuplicate   = "duplicate"
	CodeNotFound    = "not-found"
	CodeCardinality = "cardinality"
	CodeModifier    = "title-modifier"
	CodeSelfRef     = "self-reference"
	CodeOrphan      = "orphan"
	CodeUnused      = "unreferenced"
	CodeRetrieval   = "retrieval"
	CodeDefaulted   = "defaulted"
	CodeNumbering   = "numbering"
	CodeSummary     = "informational"
)

// Finding is one graded observation with a path into the document
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Path     string   `json:"path,omitempty"`
}

func (f Finding) String() string {
	if f.Path == "" {
		return fmt.Sprintf("%-11s %s: %s", f.Severity, f.Code, f.Message)
	}
	return fmt.Sprintf("%-11s %s: %s (%s)", f.Severity, f.Code, f.Message, f.Path)
}

// Result accumulates findings. It is not safe for concurrent use.
type Result struct {
	Findings []Finding `json:"findings"`
}

// New returns an empty result
func New() *Result {
	return &Result{Findings: make([]Finding, 0, 16)}
}

// Add appends a finding
func (r *Result) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Merge appends every finding of other
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Findings = append(r.Findings, other.Findings...)
}

// Errorf adds an error-level finding
func (r *Result) Errorf(code, path, format string, args ...any) {
	r.Add(Finding{Severity: SeverityError, Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Warnf adds a warning-level finding
func (r *Result) Warnf(code, path, format string, args ...any) {
	r.Add(Finding{Severity: SeverityWarning, Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Infof adds an information-level finding
func (r *Result) Infof(code, path, format string, args ...any) {
	r.Add(Finding{Severity: SeverityInformation, Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Count returns the number of findings with severity s
func (r *Result) Count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

func (r *Result) ErrorCount() int   { return r.Count(SeverityError) }
func (r *Result) WarningCount() int { return r.Count(SeverityWarning) }
func (r *Result) InfoCount() int    { return r.Count(SeverityInformation) }

// HasErrors reports any error-level finding
func (r *Result) HasErrors() bool {
	return r.ErrorCount() > 0
}

// Valid is true when there are no errors; warnings are allowed
func (r *Result) Valid() bool {
	return !r.HasErrors()
}

// Filter returns the findings matching severity s
func (r *Result) Filter(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// ByCode returns the findings with the given rule code
func (r *Result) ByCode(code string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

// Errors returns the error-level findings
func (r *Result) Errors() []Finding { return r.Filter(SeverityError) }

// Warnings returns the warning-level findings
func (r *Result) Warnings() []Finding { return r.Filter(SeverityWarning) }

// Summary returns a one line count by severity
func (r *Result) Summary() string {
	return fmt.Sprintf("%d error(s), %d warning(s), %d info", r.ErrorCount(), r.WarningCount(), r.InfoCount())
}

func (r *Result) String() string {
	var sb strings.Builder
	for _, f := range r.Findings {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	sb.WriteString(r.Summary())
	return sb.String()
}

// WriteText writes one line per finding followed by the summary
func (r *Result) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, r.String())
	return err
}

// WriteJSON writes the findings with their counts
func (r *Result) WriteJSON(w io.Writer) error {
	out := struct {
		Valid    bool      `json:"valid"`
		Errors   int       `json:"errors"`
		Warnings int       `json:"warnings"`
		Info     int       `json:"information"`
		Findings []Finding `json:"findings"`
	}{r.Valid(), r.ErrorCount(), r.WarningCount(), r.InfoCount(), r.Findings}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// OperationOutcome renders the findings as a FHIR OperationOutcome
func (r *Result) OperationOutcome() *r4.OperationOutcome {
	oo := &r4.OperationOutcome{Issue: make([]r4.OperationOutcomeIssue, 0, len(r.Findings))}
	for _, f := range r.Findings {
		issue := r4.OperationOutcomeIssue{
			Severity:    fhir.Ptr(r4.IssueSeverity(f.Severity)),
			Code:        fhir.Ptr(issueType(f.Code)),
			Details:     &r4.CodeableConcept{Text: fhir.Str(f.Code)},
			Diagnostics: fhir.Str(f.Message),
		}
		if f.Path != "" {
			issue.Expression = []string{f.Path}
		}
		oo.Issue = append(oo.Issue, issue)
	}
	if len(oo.Issue) == 0 {
		oo.Issue = append(oo.Issue, r4.OperationOutcomeIssue{
			Severity:    fhir.Ptr(r4.IssueSeverityInformation),
			Code:        fhir.Ptr(r4.IssueTypeInformational),
			Diagnostics: fhir.Ptr("no findings"),
		})
	}
	return oo
}

// issueType maps a rule code onto the FHIR IssueType value set
func issueType(code string) r4.IssueType {
	switch code {
	case CodeStructure, CodeCardinality, CodeModifier:
		return r4.IssueTypeStructure
	case CodeRequired:
		return r4.IssueTypeRequired
	case CodeValue, CodeRetrieval:
		return r4.IssueTypeValue
	case CodeDuplicate:
		return r4.IssueTypeDuplicate
	case CodeNotFound, CodeOrphan:
		return r4.IssueTypeNotFound
	case CodeSelfRef:
		return r4.IssueTypeInvariant
	case CodeSummary, CodeUnused, CodeDefaulted, CodeNumbering:
		return r4.IssueTypeInformational
	default:
		return r4.IssueTypeProcessing
	}
}
