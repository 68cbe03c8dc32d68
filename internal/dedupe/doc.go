// Package dedupe clusters cataloged files into duplicate groups by
// fingerprint equality, elects a stable master per group, and maintains the
// size-only candidate groups produced by hash-skipping scans.
package dedupe
