package fingerprint_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"path/filepath"
	"testing"

	"dgcat/internal/catalog"
	"dgcat/internal/faults"
	"dgcat/internal/fingerprint"
	"dgcat/internal/testsupport"
)

func TestSmallFileHashesWholeContent(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	calc := fingerprint.New(cfg)

	content := []byte("tiny clip payload")
	path := filepath.Join(root, "tiny.mp4")
	testsupport.WriteFileContent(t, path, content)

	got, err := calc.Fingerprint(context.Background(), path, int64(len(content)))
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if got.Kind != catalog.HashFull {
		t.Fatalf("expected whole-file hash, got %s", got.Kind)
	}

	sum := md5.Sum(content)
	if want := hex.EncodeToString(sum[:]); got.Hash != want {
		t.Fatalf("expected %s, got %s", want, got.Hash)
	}
}

func TestLargeFileHashesSampledWindows(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	calc := fingerprint.New(cfg)

	size := cfg.Scan.WholeFileHashMaxBytes + 3000
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(root, "big.mp4")
	testsupport.WriteFileContent(t, path, content)

	got, err := calc.Fingerprint(context.Background(), path, size)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if got.Kind != catalog.HashSampled {
		t.Fatalf("expected sampled hash, got %s", got.Kind)
	}

	window := cfg.Scan.HashWindowBytes
	firstSum := md5.Sum(content[:window])
	middleStart := size/2 - window/2
	middleSum := md5.Sum(content[middleStart : middleStart+window])
	lastSum := md5.Sum(content[size-window:])
	combined := md5.Sum([]byte(
		hex.EncodeToString(firstSum[:]) + hex.EncodeToString(middleSum[:]) + hex.EncodeToString(lastSum[:]),
	))
	if want := hex.EncodeToString(combined[:]); got.Hash != want {
		t.Fatalf("expected %s, got %s", want, got.Hash)
	}
}

func TestSampledHashIgnoresUnreadBytes(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	calc := fingerprint.New(cfg)

	// Two files identical in their three windows but different in between
	// fingerprint identically. Bounded false-duplicate risk accepted for
	// skipping full reads.
	size := cfg.Scan.WholeFileHashMaxBytes * 4
	window := cfg.Scan.HashWindowBytes
	a := bytes.Repeat([]byte{0xAA}, int(size))
	b := bytes.Repeat([]byte{0xAA}, int(size))
	b[window+10] = 0xBB

	pathA := filepath.Join(root, "a.mp4")
	pathB := filepath.Join(root, "b.mp4")
	testsupport.WriteFileContent(t, pathA, a)
	testsupport.WriteFileContent(t, pathB, b)

	gotA, err := calc.Fingerprint(context.Background(), pathA, size)
	if err != nil {
		t.Fatalf("Fingerprint A failed: %v", err)
	}
	gotB, err := calc.Fingerprint(context.Background(), pathB, size)
	if err != nil {
		t.Fatalf("Fingerprint B failed: %v", err)
	}
	if gotA.Hash != gotB.Hash {
		t.Fatalf("expected identical sampled hashes, got %s vs %s", gotA.Hash, gotB.Hash)
	}
}

func TestWindowDifferenceChangesHash(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	calc := fingerprint.New(cfg)

	size := cfg.Scan.WholeFileHashMaxBytes * 4
	a := bytes.Repeat([]byte{0xAA}, int(size))
	b := bytes.Repeat([]byte{0xAA}, int(size))
	b[len(b)-1] = 0xBB

	pathA := filepath.Join(root, "a.mp4")
	pathB := filepath.Join(root, "b.mp4")
	testsupport.WriteFileContent(t, pathA, a)
	testsupport.WriteFileContent(t, pathB, b)

	gotA, err := calc.Fingerprint(context.Background(), pathA, size)
	if err != nil {
		t.Fatalf("Fingerprint A failed: %v", err)
	}
	gotB, err := calc.Fingerprint(context.Background(), pathB, size)
	if err != nil {
		t.Fatalf("Fingerprint B failed: %v", err)
	}
	if gotA.Hash == gotB.Hash {
		t.Fatal("expected last-window change to alter the hash")
	}
}

func TestUnreadableFileIsFingerprintError(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	calc := fingerprint.New(cfg)

	_, err := calc.Fingerprint(context.Background(), filepath.Join(root, "missing.mp4"), 100)
	if !errors.Is(err, faults.ErrFingerprint) {
		t.Fatalf("expected fingerprint error, got %v", err)
	}
	if faults.Fatal(err) {
		t.Fatal("fingerprint errors must not be fatal")
	}
}
