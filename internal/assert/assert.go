// Package assert holds the precondition-checking helpers shared by every
// engine in this module. Preconditions (§7 PreconditionViolated) are
// asserted, never returned as errors: a caller that trips one has already
// misused the engine.
package assert

import (
	"fmt"
	"os"
)

// debug gates the checks made through Invariant; the precondition checks
// made through Precondition always run.
var debug = os.Getenv("ADDRSPACE_DEBUG") == "1"

// Debug reports whether expensive invariant checking is enabled.
func Debug() bool { return debug }

// First returns the first non-nil error, or nil if all are nil.
func First(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// FatalIf panics if err is non-nil. Used for invariant violations that
// indicate a bug in this module rather than caller misuse.
func FatalIf(err error) {
	if err == nil {
		return
	}
	panic(fmt.Sprintf("addrspace: internal invariant violated: %v", err))
}

// Precondition panics with format if cond is false. Every PreconditionViolated
// case in §7 (non-owned dealloc, reserve after first alloc, zero-size where
// disallowed, ...) routes through here.
func Precondition(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("addrspace: precondition violated: "+format, args...))
	}
}

// Invariant panics with format if cond is false and debug checking is on.
// Use for checks expensive enough that they shouldn't run in production
// builds (e.g. walking an entire tree to confirm a cache invariant).
func Invariant(cond bool, format string, args ...any) {
	if debug && !cond {
		panic(fmt.Sprintf("addrspace: invariant violated: "+format, args...))
	}
}
