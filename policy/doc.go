// Package policy holds the immutable allow/deny rules and resource limits
// for generated analysis code.
//
// The denylist (blocked operations and blocked modules) is a hard gate: any
// match rejects the script. The allowlist and the allowed-variable list are
// advisory; misses produce warnings for operator review. Limits cover input
// length, execution wall-clock timeout and the execution memory ceiling.
// A YAML rule file can extend the compiled-in defaults.
package policy
