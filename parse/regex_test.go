package parse

import (
	"errors"
	"testing"
)

func TestCompileRegex(t *testing.T) {
	re, err := CompileRegex(`3[0-9]{3}`)
	if err != nil {
		t.Fatalf("CompileRegex returned error: %v", err)
	}
	if !re.Match([]byte("port 3100")) {
		t.Errorf("expected pattern to match")
	}
}

func TestCompileRegexInvalid(t *testing.T) {
	_, err := CompileRegex(`[`)
	if err == nil {
		t.Fatalf("expected an error for an unterminated character class")
	}
	var invalid *InvalidRegexError
	if !errors.As(err, &invalid) {
		t.Errorf("expected *InvalidRegexError, got %T", err)
	}
}
