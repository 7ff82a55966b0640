package policy

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	t.Run("Limits", func(t *testing.T) {
		assert.Equal(t, DefaultMaxInputLength, p.MaxInputLength())
		assert.Equal(t, DefaultTimeoutSec, p.TimeoutSec())
		assert.Equal(t, DefaultMaxMemoryMB, p.MaxMemoryMB())
		assert.Equal(t, time.Duration(DefaultTimeoutSec)*time.Second, p.Timeout())
	})

	t.Run("BlockedOperations", func(t *testing.T) {
		for _, name := range []string{"eval", "Function", "require", "fetch", "setTimeout", "exec", "constructor", "__proto__"} {
			assert.True(t, p.IsBlockedOperation(name), "expected %s to be blocked", name)
		}
	})

	t.Run("AllowedOperations", func(t *testing.T) {
		for _, name := range []string{"groupby", "mean", "value_counts", "nlargest", "bar", "head"} {
			assert.True(t, p.IsAllowedOperation(name), "expected %s to be allowed", name)
			assert.False(t, p.IsBlockedOperation(name), "%s must not also be blocked", name)
		}
	})

	t.Run("BlockedModules", func(t *testing.T) {
		for _, name := range []string{"os", "fs", "child_process", "subprocess", "net", "http"} {
			assert.True(t, p.IsBlockedModule(name), "expected module %s to be blocked", name)
		}
		assert.False(t, p.IsBlockedModule("data"))
	})

	t.Run("AllowedVariables", func(t *testing.T) {
		assert.True(t, p.IsAllowedVariable("df"))
		assert.True(t, p.IsAllowedVariable("result"))
		assert.False(t, p.IsAllowedVariable("shenanigans"))
	})

	t.Run("NoOverlapBetweenAllowAndDeny", func(t *testing.T) {
		require.NoError(t, p.validate())
	})

	t.Run("DenylistEnumeration", func(t *testing.T) {
		ops := p.BlockedOperations()
		assert.True(t, sort.StringsAreSorted(ops))
		assert.Contains(t, ops, "eval")
		for _, name := range ops {
			assert.True(t, p.IsBlockedOperation(name))
		}

		mods := p.BlockedModules()
		assert.True(t, sort.StringsAreSorted(mods))
		assert.Contains(t, mods, "os")
		for _, name := range mods {
			assert.True(t, p.IsBlockedModule(name))
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("EmptyPathReturnsDefaults", func(t *testing.T) {
		p, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultTimeoutSec, p.TimeoutSec())
	})

	t.Run("RuleFileExtendsLists", func(t *testing.T) {
		path := writeRules(t, `
blocked_operations:
  - forbidden_thing
allowed_variables:
  - extra_var
execution_timeout_sec: 3
`)
		p, err := Load(path)
		require.NoError(t, err)
		assert.True(t, p.IsBlockedOperation("forbidden_thing"))
		assert.True(t, p.IsBlockedOperation("eval"), "defaults must survive the overlay")
		assert.True(t, p.IsAllowedVariable("extra_var"))
		assert.Equal(t, 3, p.TimeoutSec())
		assert.Equal(t, DefaultMaxMemoryMB, p.MaxMemoryMB(), "unset scalars keep defaults")
	})

	t.Run("ConflictingRulesRejected", func(t *testing.T) {
		path := writeRules(t, `
blocked_operations:
  - mean
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "both allowed and blocked")
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		path := writeRules(t, "blocked_operations: [unclosed")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestWithLimits(t *testing.T) {
	base := Default()

	t.Run("PositiveValuesReplace", func(t *testing.T) {
		p := base.WithLimits(200, 5, 128)
		assert.Equal(t, 200, p.MaxInputLength())
		assert.Equal(t, 5, p.TimeoutSec())
		assert.Equal(t, 128, p.MaxMemoryMB())
	})

	t.Run("ZeroValuesKeepExisting", func(t *testing.T) {
		p := base.WithLimits(0, 0, 0)
		assert.Equal(t, base.MaxInputLength(), p.MaxInputLength())
		assert.Equal(t, base.TimeoutSec(), p.TimeoutSec())
	})

	t.Run("BaseIsUntouched", func(t *testing.T) {
		base.WithLimits(1, 1, 1)
		assert.Equal(t, DefaultTimeoutSec, base.TimeoutSec())
	})
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
