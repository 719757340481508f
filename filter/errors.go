package filter

import (
	"errors"
	"fmt"
)

// GrammarErrorCode categorizes parse failures.
type GrammarErrorCode string

const (
	// ErrCodeEmptyQuery indicates an empty or blank query string.
	ErrCodeEmptyQuery GrammarErrorCode = "EMPTY_QUERY"

	// ErrCodeUnbalancedParens indicates parentheses that never close or
	// close too often.
	ErrCodeUnbalancedParens GrammarErrorCode = "UNBALANCED_PARENS"

	// ErrCodeMissingSeparator indicates a leaf without the column:value
	// separator.
	ErrCodeMissingSeparator GrammarErrorCode = "MISSING_SEPARATOR"

	// ErrCodeUnknownComposite indicates a composite keyword that is not
	// and, or, any or all.
	ErrCodeUnknownComposite GrammarErrorCode = "UNKNOWN_COMPOSITE"

	// ErrCodeEmptyColumn indicates a column path with a blank segment.
	ErrCodeEmptyColumn GrammarErrorCode = "EMPTY_COLUMN"

	// ErrCodeBadSortDirection indicates a sort item with a direction other
	// than asc or desc.
	ErrCodeBadSortDirection GrammarErrorCode = "BAD_SORT_DIRECTION"
)

// GrammarError is a structured parse failure. Parsing fails fast: no partial
// tree accompanies a GrammarError.
type GrammarError struct {
	Code  GrammarErrorCode
	Input string // the fragment that failed to parse
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("%s: cannot parse %q", e.Code, e.Input)
}

// IsGrammarError reports whether err is (or wraps) a GrammarError.
func IsGrammarError(err error) bool {
	var ge *GrammarError
	return errors.As(err, &ge)
}

func grammarErr(code GrammarErrorCode, input string) error {
	return &GrammarError{Code: code, Input: input}
}
