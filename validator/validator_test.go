package validator

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/querybox/apperror"
	"github.com/isdmx/querybox/policy"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return New(policy.Default(), zaptest.NewLogger(t))
}

func TestValidateAcceptsAllowlistedCode(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name string
		code string
	}{
		{"ColumnMean", `data['score'].mean()`},
		{"GroupByMean", `data.groupby('course_name')['score'].mean()`},
		{"SortAndHead", `data.sort_values('score', false).head(5)`},
		{"Filter", `data.filter('level', '==', 'beginner')`},
		{"ValueCounts", `data['gender'].value_counts()`},
		{"Correlation", `data.corr('score', 'completion_rate')`},
		{"ChartFromGroup", `fig = chart.bar(data.groupby('course_name')['score'].mean(), 'Average score')`},
		{"AssignThenUse", "grouped = data.groupby('level')\ngrouped['score'].median()"},
		{"Conditional", `data.shape[0] > 10 ? data.head(10) : data`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := v.Validate(tc.code)
			require.NoError(t, err)
			assert.NotEmpty(t, res.SanitizedCode)
		})
	}
}

// Whatever sanitization does to accepted code, no denylisted operation or
// module token may survive into the code handed to the executor.
func TestSanitizedCodeFreeOfDenylistTokens(t *testing.T) {
	v := newTestValidator(t)
	pol := policy.Default()

	var tokens []*regexp.Regexp
	for _, name := range append(pol.BlockedOperations(), pol.BlockedModules()...) {
		tokens = append(tokens, regexp.MustCompile(`\b`+regexp.QuoteMeta(name)+`\b`))
	}
	require.NotEmpty(t, tokens)

	inputs := []struct {
		name string
		code string
	}{
		{"ColumnMean", `data['score'].mean()`},
		{"GroupByMean", `data.groupby('course_name')['score'].mean()`},
		{"SortAndHead", `data.sort_values('score', false).head(5)`},
		{"Filter", `data.filter('level', '==', 'beginner')`},
		{"ChartFromGroup", `fig = chart.bar(data.groupby('course_name')['score'].mean(), 'Average score')`},
		{"AssignThenUse", "grouped = data.groupby('level')\ngrouped['score'].median()"},
		{"Conditional", `data.shape[0] > 10 ? data.head(10) : data`},
		{"FencedBlock", "```javascript\ndata.head(5)\n```"},
		{"CodeLabel", "CODE: data.head(5)"},
		{"TrailingProse", "data.head(5)\n// here is a very long explanatory comment about the analysis"},
	}
	for _, tc := range inputs {
		t.Run(tc.name, func(t *testing.T) {
			res, err := v.Validate(tc.code)
			require.NoError(t, err)
			for _, re := range tokens {
				assert.False(t, re.MatchString(res.SanitizedCode),
					"denylist token %s survived in %q", re, res.SanitizedCode)
			}
		})
	}
}

func TestValidateBlocksOperations(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name    string
		code    string
		blocked string
	}{
		{"Eval", `eval("1+1")`, "eval"},
		{"FunctionConstructor", `new Function("return 1")`, "Function"},
		{"ConstructorAccess", `data.constructor`, "constructor"},
		{"ProtoAccess", `data.__proto__`, "__proto__"},
		{"BracketConstructor", `data['constructor']`, "constructor"},
		{"Fetch", `fetch("http://example.com")`, "fetch"},
		{"SetTimeout", `setTimeout(0)`, "setTimeout"},
		{"BareVariableReference", `eval`, "eval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.code)
			require.Error(t, err)
			appErr := apperror.As(err)
			assert.Equal(t, apperror.CodeSecurityViolation, appErr.Code)
			assert.Contains(t, appErr.Violations, tc.blocked)
			assert.True(t, errors.Is(err, apperror.ErrSecurity))
		})
	}
}

func TestValidateBlocksImports(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name   string
		code   string
		module string
	}{
		{"BareImport", "import os\ndata.head(5)", "os"},
		{"QuotedImport", `import fs from 'fs'`, "fs"},
		{"NodePrefix", `import x from "node:child_process"`, "child_process"},
		{"Require", `const cp = require('child_process')`, "child_process"},
		{"RequireSubpath", `require('fs/promises')`, "fs"},
		{"DottedModuleAccess", `os.path.join('a', 'b')`, "os"},
		{"ImportFrom", "import subprocess\nsubprocess", "subprocess"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.code)
			require.Error(t, err)
			appErr := apperror.As(err)
			assert.Equal(t, apperror.CodeSecurityViolation, appErr.Code)
			assert.Contains(t, appErr.Violations, tc.module)
			assert.Contains(t, appErr.Message, "import")
		})
	}
}

func TestValidateBlocksFunctionDefinitions(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name string
		code string
	}{
		{"FunctionDeclaration", `function f() { return 1 }`},
		{"FunctionExpression", `x = function() { return 1 }`},
		{"ArrowFunction", `x = (a) => a + 1`},
		{"ArrowInArgument", `data.filter('score', '>', (x) => x)`},
		{"Class", `class Foo {}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.code)
			require.Error(t, err)
			appErr := apperror.As(err)
			assert.Equal(t, apperror.CodeSecurityViolation, appErr.Code)
			assert.Contains(t, appErr.Message, "lambda")
		})
	}
}

func TestValidateSyntaxErrors(t *testing.T) {
	v := newTestValidator(t)

	for name, code := range map[string]string{
		"UnclosedParen":    `data.head(5`,
		"DanglingOperator": `data['score'].mean() +`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(code)
			require.Error(t, err)
			appErr := apperror.As(err)
			assert.Equal(t, apperror.CodeSyntaxError, appErr.Code)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
		})
	}
}

func TestValidateViolationPriority(t *testing.T) {
	v := newTestValidator(t)

	// import outranks operation outranks lambda when several are present
	_, err := v.Validate("require('fs')\neval('1')\nx = () => 1")
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Contains(t, appErr.Message, "import")
	assert.Contains(t, appErr.Violations, "fs")
}

func TestValidateWarnings(t *testing.T) {
	v := newTestValidator(t)

	t.Run("UnknownVariable", func(t *testing.T) {
		res, err := v.Validate(`wibble = data['score'].mean()`)
		require.NoError(t, err)
		assert.Contains(t, res.Warnings, "unknown variable 'wibble'")
	})

	t.Run("UnknownOperation", func(t *testing.T) {
		res, err := v.Validate(`data.resample('score')`)
		require.NoError(t, err)
		assert.Contains(t, res.Warnings, "unknown operation 'resample'")
	})

	t.Run("LoopVariablesExempt", func(t *testing.T) {
		res, err := v.Validate("for (let qq = 0; qq < 3; qq = qq + 1) { data.head(qq) }")
		require.NoError(t, err)
		for _, w := range res.Warnings {
			assert.NotContains(t, w, "qq")
		}
	})

	t.Run("AllowedNamesProduceNoWarnings", func(t *testing.T) {
		res, err := v.Validate(`result = data.groupby('course_name')['score'].mean()`)
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
	})
}

func TestValidateDeterministic(t *testing.T) {
	v := newTestValidator(t)
	code := "grouped = data.groupby('level')\nresult = grouped['score'].mean()"

	first, err := v.Validate(code)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		res, err := v.Validate(code)
		require.NoError(t, err)
		assert.Equal(t, first.SanitizedCode, res.SanitizedCode)
		assert.Equal(t, first.Warnings, res.Warnings)
	}
}

func TestNormalizeArtifacts(t *testing.T) {
	t.Run("CodeFences", func(t *testing.T) {
		v := newTestValidator(t)
		res, err := v.Validate("```javascript\ndata.head(5)\n```")
		require.NoError(t, err)
		assert.Equal(t, "data.head(5)", res.SanitizedCode)
	})

	t.Run("CodeLabel", func(t *testing.T) {
		v := newTestValidator(t)
		res, err := v.Validate("CODE: data.head(5)")
		require.NoError(t, err)
		assert.Equal(t, "data.head(5)", res.SanitizedCode)
	})
}

func TestStripTrailingArtifacts(t *testing.T) {
	t.Run("LongCommentLineDropped", func(t *testing.T) {
		out := stripTrailingArtifacts("data.head(5)\n// this is a very long explanatory comment about the analysis")
		assert.Equal(t, "data.head(5)", out)
	})

	t.Run("ShortCommentKept", func(t *testing.T) {
		out := stripTrailingArtifacts("data.head(5) // top rows")
		assert.Equal(t, "data.head(5) // top rows", out)
	})

	t.Run("SlashesInsideStringsSurvive", func(t *testing.T) {
		code := `data.filter('url', '==', 'http://example.com/a/b')`
		assert.Equal(t, code, stripTrailingArtifacts(code))
	})

	t.Run("LongTrailingCommentCut", func(t *testing.T) {
		out := stripTrailingArtifacts("x = 1 // here is an extremely long trailing explanation of the line")
		assert.Equal(t, "x = 1", out)
	})
}

func TestModuleRoot(t *testing.T) {
	cases := map[string]string{
		"os":           "os",
		"node:fs":      "fs",
		"os.path":      "os",
		"fs/promises":  "fs",
		"./local":      "local",
		" subprocess ": "subprocess",
	}
	for in, want := range cases {
		assert.Equal(t, want, moduleRoot(in), "moduleRoot(%q)", in)
	}
}
