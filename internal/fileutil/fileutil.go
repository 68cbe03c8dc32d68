package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
)

// CopyFileVerified copies src to dst and verifies the result by re-reading
// dst and comparing size and SHA256 against the source stream. A failed
// verification removes dst so a torn copy never survives.
func CopyFileVerified(src, dst string) error {
	wantSum, wantSize, err := copyHashing(src, dst)
	if err != nil {
		return err
	}

	gotSum, gotSize, err := hashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("verify copy: %w", err)
	}
	if gotSize != wantSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", wantSize, gotSize)
	}
	if !bytes.Equal(gotSum, wantSum) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// MoveFile relocates src to dst. Rename is used when the destination sits on
// the same volume; across volumes the file is copied with verification and
// the source removed only after the copy checks out.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	if copyErr := CopyFileVerified(src, dst); copyErr != nil {
		return fmt.Errorf("cross-volume move: %w", copyErr)
	}
	if rmErr := os.Remove(src); rmErr != nil {
		return fmt.Errorf("remove source after move: %w", rmErr)
	}
	return nil
}

// copyHashing streams src into dst, returning the SHA256 and byte count of
// the source data as it was read.
func copyHashing(src, dst string) ([]byte, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, 0, err
	}

	hasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, hasher))
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return nil, 0, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return nil, 0, err
	}
	return hasher.Sum(nil), written, nil
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return nil, 0, err
	}
	return hasher.Sum(nil), size, nil
}
