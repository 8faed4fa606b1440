package parse

import (
	"fmt"

	"github.com/coregx/coregex"
)

// InvalidRegexError reports that a regex pattern failed to compile.
// Pattern is the source text; the wrapped error is coregex's own message.
type InvalidRegexError struct {
	Pattern string
	Err     error
}

func (e *InvalidRegexError) Error() string {
	return fmt.Sprintf("invalid regex %q: %v", e.Pattern, e.Err)
}

func (e *InvalidRegexError) Unwrap() error {
	return e.Err
}

// CompileRegex compiles a byte-oriented regular expression. Compilation
// failures are reported as *InvalidRegexError, wrapping coregex's error.
func CompileRegex(pattern string) (*coregex.Regex, error) {
	re, err := coregex.Compile(pattern)
	if err != nil {
		return nil, &InvalidRegexError{Pattern: pattern, Err: err}
	}
	return re, nil
}
