package errors

// Error code constants organized by stage
// R100-R199: Pattern compilation
// R200-R299: Rule self-test
// R300-R399: File I/O (recoverable)
// R400-R499: Rule definition

const (
	// Pattern compilation (R100-R199)
	ErrPatternSyntax       = "R101"
	ErrUnbalancedGroup     = "R102"
	ErrInvalidPartName     = "R103"
	ErrDuplicateGroupName  = "R104"
	ErrUndefinedBackref    = "R105"
	ErrForwardBackref      = "R106"
	ErrTemplateReference   = "R107"
	ErrAmbiguousGroups     = "R108"
	ErrInvalidRegexOptions = "R109"

	// Self-test (R200-R299)
	ErrMatchingExample    = "R201"
	ErrNonMatchingExample = "R202"
	ErrCorrectionExample  = "R203"
	ErrNotIdempotent      = "R204"
	ErrResidualMatch      = "R205"
	ErrMissingTemplate    = "R206"

	// File I/O (R300-R399)
	ErrFileRead     = "R301"
	ErrFileWrite    = "R302"
	ErrMatchTimeout = "R303"

	// Rule definition (R400-R499)
	ErrDuplicateRule    = "R401"
	ErrInvalidSeverity  = "R402"
	ErrPatternForm      = "R403"
	ErrPathRuleTemplate = "R404"
	ErrMissingID        = "R405"
	ErrInvalidKind      = "R406"
)

// codeTitles maps codes to the short titles used in terminal output
var codeTitles = map[string]string{
	ErrPatternSyntax:       "pattern syntax error",
	ErrUnbalancedGroup:     "unbalanced group",
	ErrInvalidPartName:     "invalid part name",
	ErrDuplicateGroupName:  "duplicate group name",
	ErrUndefinedBackref:    "undefined backreference",
	ErrForwardBackref:      "forward backreference",
	ErrTemplateReference:   "unknown template reference",
	ErrAmbiguousGroups:     "ambiguous group composition",
	ErrInvalidRegexOptions: "invalid regex options",
	ErrMatchingExample:     "matching example did not match",
	ErrNonMatchingExample:  "non-matching example matched",
	ErrCorrectionExample:   "autocorrect example mismatch",
	ErrNotIdempotent:       "correction is not idempotent",
	ErrResidualMatch:       "corrected text still violates",
	ErrMissingTemplate:     "autocorrect examples without template",
	ErrFileRead:            "file read failed",
	ErrFileWrite:           "file write failed",
	ErrMatchTimeout:        "match timed out",
	ErrDuplicateRule:       "duplicate rule identifier",
	ErrInvalidSeverity:     "invalid severity",
	ErrPatternForm:         "invalid pattern specification",
	ErrPathRuleTemplate:    "path rules cannot autocorrect",
	ErrMissingID:           "missing rule identifier",
	ErrInvalidKind:         "invalid rule kind",
}

// Title returns the short human-readable title for a code
func Title(code string) string {
	if title, ok := codeTitles[code]; ok {
		return title
	}
	return "unknown error"
}
