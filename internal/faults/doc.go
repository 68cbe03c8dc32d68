// Package faults defines the sentinel error kinds shared across scan and
// consolidation passes and a Summary accumulator for the per-file kinds.
//
// Callers classify with errors.Is against the exported sentinels; Fatal
// reports whether a kind aborts the invocation outright.
package faults
