package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrSecurity   = errors.New("security violation")
	ErrExecution  = errors.New("execution failed")
	ErrInput      = errors.New("invalid input")
	ErrData       = errors.New("data error")
	ErrGeneration = errors.New("generation failed")
)

// Code is a machine-readable error code. Codes are grouped by pipeline stage:
// 1xx generation, 2xx validation, 3xx execution, 4xx security, 5xx data.
type Code int

const (
	CodeNone Code = 0

	// Generation (1xx)
	CodeGeneratorUnavailable Code = 101
	CodeGenerationTimeout    Code = 102
	CodeInvalidGeneration    Code = 103
	CodeExtractionFailed     Code = 104

	// Validation (2xx)
	CodeValidationFailed Code = 201
	CodeBlockedOperation Code = 202
	CodeBlockedModule    Code = 203
	CodeSyntaxError      Code = 204
	CodeUnknownOperation Code = 205

	// Execution (3xx)
	CodeExecutionFailed  Code = 301
	CodeExecutionTimeout Code = 302
	CodeMemoryLimit      Code = 303

	// Security (4xx)
	CodeSecurityViolation Code = 401
	CodeInputTooLong      Code = 402
	CodeInjectionAttempt  Code = 403
	CodeEmptyInput        Code = 404

	// Data (5xx)
	CodeDataLoad      Code = 501
	CodeInvalidColumn Code = 502

	CodeUnexpected Code = 900
)

var codeNames = map[Code]string{
	CodeNone:                 "NONE",
	CodeGeneratorUnavailable: "GENERATOR_UNAVAILABLE",
	CodeGenerationTimeout:    "GENERATION_TIMEOUT",
	CodeInvalidGeneration:    "INVALID_GENERATION",
	CodeExtractionFailed:     "CODE_EXTRACTION_FAILED",
	CodeValidationFailed:     "VALIDATION_FAILED",
	CodeBlockedOperation:     "BLOCKED_OPERATION",
	CodeBlockedModule:        "BLOCKED_MODULE",
	CodeSyntaxError:          "SYNTAX_ERROR",
	CodeUnknownOperation:     "UNKNOWN_OPERATION",
	CodeExecutionFailed:      "EXECUTION_FAILED",
	CodeExecutionTimeout:     "EXECUTION_TIMEOUT",
	CodeMemoryLimit:          "MEMORY_LIMIT",
	CodeSecurityViolation:    "SECURITY_VIOLATION",
	CodeInputTooLong:         "INPUT_TOO_LONG",
	CodeInjectionAttempt:     "INJECTION_ATTEMPT",
	CodeEmptyInput:           "EMPTY_INPUT",
	CodeDataLoad:             "DATA_LOAD_ERROR",
	CodeInvalidColumn:        "INVALID_COLUMN",
	CodeUnexpected:           "UNEXPECTED_ERROR",
}

// Name returns the symbolic name of the code, e.g. "EXECUTION_TIMEOUT".
func (c Code) Name() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// AppError carries an internal diagnostic message (logged only), a taxonomy
// code, and a user-safe message that never contains paths, stack frames or
// host internals.
type AppError struct {
	Err         error    // wrapped sentinel
	Code        Code     // taxonomy code
	Message     string   // internal diagnostic message
	UserMessage string   // safe to display
	Violations  []string // populated for security violations
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code.Name(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// User returns the display-safe message, falling back to a generic one.
func (e *AppError) User() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return "Something went wrong processing your question. Please try again."
}

// As extracts an *AppError from an error chain, or wraps an unknown error
// as an unexpected one.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Unexpected(err)
}

// Syntax reports that generated code did not parse. The parser message is
// about the generated code, not the host, so it may be shown.
func Syntax(parserMsg string) *AppError {
	return &AppError{
		Err:         ErrValidation,
		Code:        CodeSyntaxError,
		Message:     fmt.Sprintf("generated code did not parse: %s", parserMsg),
		UserMessage: fmt.Sprintf("The generated code had a syntax error (%s). Please try rephrasing your question.", parserMsg),
	}
}

// SecurityViolation reports a denylist match. violationType is one of
// "import", "operation" or "lambda"; items lists every blocked identifier.
func SecurityViolation(violationType string, items ...string) *AppError {
	var user string
	switch violationType {
	case "import":
		user = fmt.Sprintf(
			"Import statements are not allowed (attempted: %s). The dataset and chart helpers are already available. Please rephrase your question.",
			strings.Join(items, ", "))
	case "lambda":
		user = "Function definitions are not supported in analysis code. Please try a different question."
	default:
		user = fmt.Sprintf("Security block: %s. Please try rephrasing your question.", strings.Join(items, ", "))
	}
	return &AppError{
		Err:         ErrSecurity,
		Code:        CodeSecurityViolation,
		Message:     fmt.Sprintf("security violation (%s): %s", violationType, strings.Join(items, ", ")),
		UserMessage: user,
		Violations:  items,
	}
}

// ExecutionFailed reports a runtime error inside the sandbox. msg must
// already be stripped of stack frames and host paths.
func ExecutionFailed(msg string) *AppError {
	return &AppError{
		Err:         ErrExecution,
		Code:        CodeExecutionFailed,
		Message:     fmt.Sprintf("code execution failed: %s", msg),
		UserMessage: "There was an error running the analysis. Please try a different question.",
	}
}

// Timeout reports that execution exceeded the wall-clock deadline.
func Timeout(seconds int) *AppError {
	return &AppError{
		Err:         ErrExecution,
		Code:        CodeExecutionTimeout,
		Message:     fmt.Sprintf("code execution timed out after %d seconds", seconds),
		UserMessage: "The query took too long. Please try a simpler question.",
	}
}

// MemoryLimit reports that execution exceeded the memory ceiling.
func MemoryLimit(limitMB int) *AppError {
	return &AppError{
		Err:         ErrExecution,
		Code:        CodeMemoryLimit,
		Message:     fmt.Sprintf("code execution exceeded the %d MB memory limit", limitMB),
		UserMessage: "The query needed too much memory. Please try a simpler question.",
	}
}

// InputTooLong reports user input exceeding the configured maximum.
func InputTooLong(length, maxLength int) *AppError {
	msg := fmt.Sprintf("Input too long (%d characters). Maximum %d characters allowed.", length, maxLength)
	return &AppError{
		Err:         ErrInput,
		Code:        CodeInputTooLong,
		Message:     msg,
		UserMessage: msg, // length checks are safe to show
	}
}

// EmptyInput reports a blank question.
func EmptyInput() *AppError {
	msg := "Please ask a question about the data."
	return &AppError{
		Err:         ErrInput,
		Code:        CodeEmptyInput,
		Message:     "empty question",
		UserMessage: msg,
	}
}

// InjectionAttempt reports user input matching a code-injection pattern.
func InjectionAttempt(pattern string) *AppError {
	return &AppError{
		Err:         ErrInput,
		Code:        CodeInjectionAttempt,
		Message:     fmt.Sprintf("input matched injection pattern %q", pattern),
		UserMessage: "Your question contains patterns that are not allowed. Please rephrase it.",
	}
}

// DataLoad reports a dataset loading failure.
func DataLoad(err error) *AppError {
	return &AppError{
		Err:         ErrData,
		Code:        CodeDataLoad,
		Message:     fmt.Sprintf("could not load dataset: %v", err),
		UserMessage: "Could not load the data file. Please check that it exists.",
	}
}

// Generation reports a code-generation failure.
func Generation(code Code, err error) *AppError {
	return &AppError{
		Err:         ErrGeneration,
		Code:        code,
		Message:     fmt.Sprintf("code generation failed: %v", err),
		UserMessage: "I couldn't generate the analysis for your question. Please try rephrasing.",
	}
}

// Unexpected wraps an unclassified error. The internal detail is preserved
// for logs; the user sees a generic message.
func Unexpected(err error) *AppError {
	return &AppError{
		Err:         err,
		Code:        CodeUnexpected,
		Message:     fmt.Sprintf("unexpected error: %v", err),
		UserMessage: "An unexpected error occurred. Please try again.",
	}
}
