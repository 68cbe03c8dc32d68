package fingerprint

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"dgcat/internal/catalog"
	"dgcat/internal/config"
	"dgcat/internal/faults"
)

// Result carries a computed fingerprint hash and how it was derived.
type Result struct {
	Hash string
	Kind catalog.HashKind
}

// Calculator derives partial-content fingerprints. Files below the whole-file
// threshold are hashed in full; larger files are identified by the first,
// middle, and last windows only, so multi-gigabyte media never needs a full
// read.
type Calculator struct {
	windowBytes  int64
	wholeFileMax int64
}

// New builds a Calculator from configuration.
func New(cfg *config.Config) *Calculator {
	return &Calculator{
		windowBytes:  cfg.Scan.HashWindowBytes,
		wholeFileMax: cfg.Scan.WholeFileHashMaxBytes,
	}
}

// Fingerprint computes the identity hash for a file of known size. The size
// must match the on-disk size used to pick the sampling strategy; callers pass
// the size the walker observed.
func (c *Calculator) Fingerprint(ctx context.Context, path string, sizeBytes int64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, faults.Wrap(faults.ErrFingerprint, "fingerprint", "open", path, err)
	}
	defer f.Close()

	if sizeBytes < c.wholeFileMax {
		hash, err := hashAll(f)
		if err != nil {
			return Result{}, faults.Wrap(faults.ErrFingerprint, "fingerprint", "read", path, err)
		}
		return Result{Hash: hash, Kind: catalog.HashFull}, nil
	}

	hash, err := c.hashSampled(f, sizeBytes)
	if err != nil {
		return Result{}, faults.Wrap(faults.ErrFingerprint, "fingerprint", "sample", path, err)
	}
	return Result{Hash: hash, Kind: catalog.HashSampled}, nil
}

func hashAll(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashSampled reads three windows and combines their hex digests into one
// hash. Window order is first, middle, last; the middle window is centered on
// the byte at size/2.
func (c *Calculator) hashSampled(f *os.File, sizeBytes int64) (string, error) {
	first, err := c.hashWindowAt(f, 0)
	if err != nil {
		return "", fmt.Errorf("first window: %w", err)
	}
	middle, err := c.hashWindowAt(f, sizeBytes/2-c.windowBytes/2)
	if err != nil {
		return "", fmt.Errorf("middle window: %w", err)
	}
	last, err := c.hashWindowAt(f, sizeBytes-c.windowBytes)
	if err != nil {
		return "", fmt.Errorf("last window: %w", err)
	}

	combined := md5.Sum([]byte(first + middle + last))
	return hex.EncodeToString(combined[:]), nil
}

func (c *Calculator) hashWindowAt(f *os.File, offset int64) (string, error) {
	if offset < 0 {
		offset = 0
	}
	window := make([]byte, c.windowBytes)
	n, err := f.ReadAt(window, offset)
	if err != nil && err != io.EOF {
		return "", err
	}
	sum := md5.Sum(window[:n])
	return hex.EncodeToString(sum[:]), nil
}
