package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the error kinds the engine distinguishes. Fatal kinds
// abort the invocation; per-file kinds are accumulated into a Summary and the
// pass continues.
var (
	// ErrPath marks an unusable scan root or subfolder. Fatal for a scan.
	ErrPath = errors.New("path error")
	// ErrFingerprint marks a single unreadable file during hashing. Per-file.
	ErrFingerprint = errors.New("fingerprint error")
	// ErrPreflight marks a failed pre-mutation consolidation check. Fatal,
	// raised before any filesystem change.
	ErrPreflight = errors.New("preflight error")
	// ErrConsolidationStep marks a single file's failed move or link. Per-file,
	// the record stays retryable.
	ErrConsolidationStep = errors.New("consolidation step error")
	// ErrCatalog marks a catalog read/write failure. Always fatal.
	ErrCatalog = errors.New("catalog error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrCatalog
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error's kind aborts the whole invocation.
func Fatal(err error) bool {
	return errors.Is(err, ErrPath) || errors.Is(err, ErrPreflight) || errors.Is(err, ErrCatalog)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}

// Summary accumulates the per-file errors of a pass so they can be surfaced
// together at the end of the run.
type Summary struct {
	errs []error
}

// Add records a non-fatal error. Nil errors are ignored.
func (s *Summary) Add(err error) {
	if err == nil {
		return
	}
	s.errs = append(s.errs, err)
}

// Len returns the number of accumulated errors.
func (s *Summary) Len() int {
	if s == nil {
		return 0
	}
	return len(s.errs)
}

// Errors returns a copy of the accumulated errors in arrival order.
func (s *Summary) Errors() []error {
	if s == nil || len(s.errs) == 0 {
		return nil
	}
	cp := make([]error, len(s.errs))
	copy(cp, s.errs)
	return cp
}

// Messages renders the accumulated errors, capped at limit entries (0 = all).
func (s *Summary) Messages(limit int) []string {
	errs := s.Errors()
	if limit > 0 && len(errs) > limit {
		errs = errs[:limit]
	}
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
