package validator

import (
	"regexp"
	"strings"

	"github.com/dop251/goja/parser"
	"go.uber.org/zap"

	"github.com/isdmx/querybox/apperror"
	"github.com/isdmx/querybox/policy"
)

// Result is the proof that a script passed validation: sanitized code text
// free of denylist tokens, plus advisory warnings in discovery order.
type Result struct {
	SanitizedCode string
	Warnings      []string
}

// Validator statically checks generated analysis code against a policy.
// It is a pure function of code and policy: identical inputs always yield
// identical verdicts.
type Validator struct {
	policy *policy.Policy
	logger *zap.Logger
}

// New creates a validator bound to an immutable policy.
func New(pol *policy.Policy, logger *zap.Logger) *Validator {
	return &Validator{policy: pol, logger: logger}
}

var importLine = regexp.MustCompile(`^\s*import\b(.*)$`)

// Validate checks code and returns the sanitized text plus warnings, or an
// *apperror.AppError with kind SyntaxError or SecurityViolation.
func (v *Validator) Validate(code string) (*Result, error) {
	normalized := normalizeArtifacts(code)

	// Import statements are handled before parsing so that a module import
	// is reported as a security violation naming the module, not as a
	// parser complaint about an artifact of the generation format.
	if modules := scanImportStatements(normalized); len(modules) > 0 {
		v.logger.Warn("blocked import in generated code", zap.Strings("modules", modules))
		return nil, apperror.SecurityViolation("import", modules...)
	}

	program, err := parser.ParseFile(nil, "analysis.js", normalized, 0)
	if err != nil {
		msg := firstLine(err.Error())
		v.logger.Debug("generated code failed to parse", zap.String("error", msg))
		return nil, apperror.Syntax(msg)
	}

	w := newWalker(v.policy)
	w.walkProgram(program)

	if len(w.importViolations) > 0 {
		v.logger.Warn("blocked module reference", zap.Strings("modules", w.importViolations))
		return nil, apperror.SecurityViolation("import", w.importViolations...)
	}
	if len(w.operationViolations) > 0 {
		v.logger.Warn("blocked operation in generated code", zap.Strings("operations", w.operationViolations))
		return nil, apperror.SecurityViolation("operation", w.operationViolations...)
	}
	if len(w.lambdaViolations) > 0 {
		v.logger.Warn("function literal in generated code", zap.Strings("kinds", w.lambdaViolations))
		return nil, apperror.SecurityViolation("lambda", w.lambdaViolations...)
	}

	warnings := w.warnings()
	for _, warning := range warnings {
		v.logger.Info("validation warning", zap.String("warning", warning))
	}

	return &Result{
		SanitizedCode: stripTrailingArtifacts(normalized),
		Warnings:      warnings,
	}, nil
}

// scanImportStatements finds import statements and returns the distinct
// module roots they attempt to load, in source order.
func scanImportStatements(code string) []string {
	var modules []string
	seen := make(map[string]struct{})
	add := func(name string) {
		root := moduleRoot(name)
		if root == "" {
			root = "unknown"
		}
		if _, ok := seen[root]; !ok {
			seen[root] = struct{}{}
			modules = append(modules, root)
		}
	}

	for _, line := range strings.Split(code, "\n") {
		m := importLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		add(importTarget(m[1]))
	}
	return modules
}

var (
	quotedModule = regexp.MustCompile(`["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`)
	bareModule   = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$.]*`)
)

// importTarget extracts the module name from the remainder of an import
// statement: the quoted specifier when present, otherwise the first bare
// identifier (covers "import os" style sources).
func importTarget(rest string) string {
	if m := quotedModule.FindStringSubmatch(rest); m != nil {
		return m[1]
	}
	if m := bareModule.FindString(rest); m != "" && m != "from" {
		return m
	}
	return ""
}

// moduleRoot reduces a module specifier to its root: "node:fs" -> "fs",
// "os.path" -> "os", "fs/promises" -> "fs".
func moduleRoot(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "node:")
	name = strings.TrimPrefix(name, "./")
	if i := strings.IndexAny(name, "./"); i > 0 {
		name = name[:i]
	}
	return name
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
