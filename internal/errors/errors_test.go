package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserErrorKinds(t *testing.T) {
	unsupported := NewUnsupportedLanguage("brainfuck")
	assert.True(t, IsUnsupportedLanguage(unsupported))
	assert.False(t, IsParserUnavailable(unsupported))
	assert.False(t, unsupported.IsRecoverable())
	assert.Contains(t, unsupported.Error(), "brainfuck")

	unavailable := NewParserUnavailable("go", fmt.Errorf("grammar load failed"))
	assert.True(t, IsParserUnavailable(unavailable))
	assert.True(t, unavailable.IsRecoverable())
}

func TestParserErrorUnwrap(t *testing.T) {
	base := fmt.Errorf("out of memory")
	err := NewParserUnavailable("python", base)
	require.ErrorIs(t, err, base)

	var pe *ParserError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", err), &pe))
	assert.Equal(t, "python", pe.LanguageID)
}

func TestPatternErrorStages(t *testing.T) {
	compile := NewPatternCompileError("function_def", "python", fmt.Errorf("bad query"))
	assert.Equal(t, ErrorTypePatternCompile, compile.Type)
	assert.Contains(t, compile.Error(), "compile")

	exec := NewPatternExecError("function_def", "python", fmt.Errorf("cursor died"))
	assert.Equal(t, ErrorTypePatternExec, exec.Type)
	assert.Contains(t, exec.Error(), "execute")
}

func TestFileTooLarge(t *testing.T) {
	err := NewFileTooLarge("/tmp/big.py", 600_000, 512_000)
	assert.Equal(t, ErrorTypeFileTooLarge, err.Type)
	assert.Contains(t, err.Error(), "600000")
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("learner.sample_size", "-5", fmt.Errorf("must be positive"))
	assert.Contains(t, err.Error(), "learner.sample_size")
	assert.ErrorContains(t, err, "must be positive")
}
