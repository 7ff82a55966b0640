// Package validator statically checks generated analysis code before it is
// allowed anywhere near the sandbox.
//
// Validation parses the code with the goja parser and performs a typed walk
// over the syntax tree. Module imports, denylisted operations and function
// literals reject the script with a security violation; unknown variable
// names and calls outside the advisory allowlist only produce warnings.
// Accepted code is returned in sanitized form with display-only artifacts
// (markdown fences, long trailing comments) stripped. A successful Result
// is the executor's proof that no denylist match occurred.
package validator
