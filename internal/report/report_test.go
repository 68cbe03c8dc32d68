package report_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"dgcat/internal/report"
	"dgcat/internal/scanner"
	"dgcat/internal/testsupport"
)

func TestMarkdownReport(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)
	ctx := context.Background()

	pair := bytes.Repeat([]byte{3}, 1024)
	testsupport.WriteFileContent(t, filepath.Join(root, "2024", "06", "15", "wedding", "a.mp4"), pair)
	testsupport.WriteFileContent(t, filepath.Join(root, "2024", "06", "15", "wedding", "b.mp4"), pair)
	testsupport.WriteFileContent(t, filepath.Join(root, "2025", "01", "02", "promo", "c.mp4"), bytes.Repeat([]byte{4}, 2048))

	s := scanner.New(cfg, store, nil)
	if _, err := s.Scan(ctx, scanner.Options{Root: root}); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	md, err := report.New(store).Markdown(ctx)
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}

	for _, want := range []string{
		"# Video Catalog Report",
		"**Total Videos Cataloged**: 3",
		"**Duplicate Videos**: 1",
		"**Duplicate Groups**: 1",
		"## Breakdown by Month",
		"| 2024 | 06 |",
		"| 2025 | 01 |",
		"## Top Projects by Total Size",
		"| wedding |",
		"## Files by Consolidation Status",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownReportEmptyCatalog(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	md, err := report.New(store).Markdown(context.Background())
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}
	if !strings.Contains(md, "# Video Catalog Report") {
		t.Fatalf("unexpected report:\n%s", md)
	}
	if strings.Contains(md, "## Breakdown by Month") {
		t.Fatal("empty catalog must omit breakdown sections")
	}
}
