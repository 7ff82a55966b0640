package policy

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy is the immutable set of allow/deny rules and resource limits that
// govern validation and execution. It is constructed once at startup and
// shared read-only by every query; none of its methods mutate state.
type Policy struct {
	allowedOperations map[string]struct{}
	blockedOperations map[string]struct{}
	blockedModules    map[string]struct{}
	allowedVariables  map[string]struct{}

	maxInputLength int
	timeoutSec     int
	maxMemoryMB    int
}

// RuleFile is the on-disk overlay format. List entries extend the compiled-in
// defaults; positive scalars replace them.
type RuleFile struct {
	AllowedOperations []string `yaml:"allowed_operations"`
	BlockedOperations []string `yaml:"blocked_operations"`
	BlockedModules    []string `yaml:"blocked_modules"`
	AllowedVariables  []string `yaml:"allowed_variables"`

	MaxInputLength      int `yaml:"max_input_length"`
	ExecutionTimeoutSec int `yaml:"execution_timeout_sec"`
	MaxMemoryMB         int `yaml:"max_memory_mb"`
}

// Default returns the built-in policy.
func Default() *Policy {
	return &Policy{
		allowedOperations: toSet(defaultAllowedOperations),
		blockedOperations: toSet(defaultBlockedOperations),
		blockedModules:    toSet(defaultBlockedModules),
		allowedVariables:  toSet(defaultAllowedVariables),
		maxInputLength:    DefaultMaxInputLength,
		timeoutSec:        DefaultTimeoutSec,
		maxMemoryMB:       DefaultMaxMemoryMB,
	}
}

// Load returns the default policy extended by the YAML rule file at path.
// An empty path returns the defaults unchanged.
func Load(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var rules RuleFile
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}

	p.apply(&rules)
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// WithLimits returns a copy of p with the given limits. Zero values keep the
// existing limit. The rule sets are shared; they are never mutated.
func (p *Policy) WithLimits(maxInputLength, timeoutSec, maxMemoryMB int) *Policy {
	out := *p
	if maxInputLength > 0 {
		out.maxInputLength = maxInputLength
	}
	if timeoutSec > 0 {
		out.timeoutSec = timeoutSec
	}
	if maxMemoryMB > 0 {
		out.maxMemoryMB = maxMemoryMB
	}
	return &out
}

func (p *Policy) apply(rules *RuleFile) {
	p.allowedOperations = extend(p.allowedOperations, rules.AllowedOperations)
	p.blockedOperations = extend(p.blockedOperations, rules.BlockedOperations)
	p.blockedModules = extend(p.blockedModules, rules.BlockedModules)
	p.allowedVariables = extend(p.allowedVariables, rules.AllowedVariables)

	if rules.MaxInputLength > 0 {
		p.maxInputLength = rules.MaxInputLength
	}
	if rules.ExecutionTimeoutSec > 0 {
		p.timeoutSec = rules.ExecutionTimeoutSec
	}
	if rules.MaxMemoryMB > 0 {
		p.maxMemoryMB = rules.MaxMemoryMB
	}
}

func (p *Policy) validate() error {
	if p.timeoutSec <= 0 {
		return fmt.Errorf("execution_timeout_sec must be positive, got: %d", p.timeoutSec)
	}
	if p.maxMemoryMB <= 0 {
		return fmt.Errorf("max_memory_mb must be positive, got: %d", p.maxMemoryMB)
	}
	if p.maxInputLength <= 0 {
		return fmt.Errorf("max_input_length must be positive, got: %d", p.maxInputLength)
	}
	for name := range p.blockedOperations {
		if _, ok := p.allowedOperations[name]; ok {
			return fmt.Errorf("operation %q is both allowed and blocked", name)
		}
	}
	return nil
}

// IsAllowedOperation reports whether name is on the advisory allowlist.
func (p *Policy) IsAllowedOperation(name string) bool {
	_, ok := p.allowedOperations[name]
	return ok
}

// IsBlockedOperation reports whether name is on the hard denylist.
func (p *Policy) IsBlockedOperation(name string) bool {
	_, ok := p.blockedOperations[name]
	return ok
}

// BlockedOperations returns the hard operation denylist, sorted.
func (p *Policy) BlockedOperations() []string { return sortedNames(p.blockedOperations) }

// BlockedModules returns the module denylist, sorted.
func (p *Policy) BlockedModules() []string { return sortedNames(p.blockedModules) }

// IsBlockedModule reports whether the module name is denied.
func (p *Policy) IsBlockedModule(name string) bool {
	_, ok := p.blockedModules[name]
	return ok
}

// IsAllowedVariable reports whether name is an expected variable name.
func (p *Policy) IsAllowedVariable(name string) bool {
	_, ok := p.allowedVariables[name]
	return ok
}

// MaxInputLength is the maximum accepted question length in characters.
func (p *Policy) MaxInputLength() int { return p.maxInputLength }

// TimeoutSec is the execution wall-clock deadline in seconds.
func (p *Policy) TimeoutSec() int { return p.timeoutSec }

// Timeout is TimeoutSec as a duration.
func (p *Policy) Timeout() time.Duration { return time.Duration(p.timeoutSec) * time.Second }

// MaxMemoryMB is the execution memory ceiling in megabytes.
func (p *Policy) MaxMemoryMB() int { return p.maxMemoryMB }

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func extend(base map[string]struct{}, names []string) map[string]struct{} {
	if len(names) == 0 {
		return base
	}
	out := make(map[string]struct{}, len(base)+len(names))
	for n := range base {
		out[n] = struct{}{}
	}
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}
