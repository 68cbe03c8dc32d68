package catalog_test

import (
	"context"
	"fmt"
	"testing"

	"dgcat/internal/catalog"
	"dgcat/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	id, err := store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: "/library/2024/06/15/wedding/ceremony.mp4",
		FileName:     "ceremony.mp4",
		SizeBytes:    1024,
		Year:         "2024",
		Month:        "06",
		MonthDay:     "15",
		ProjectName:  "wedding",
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected file id to be assigned")
	}

	fetched, err := store.FileByID(ctx, id)
	if err != nil {
		t.Fatalf("FileByID failed: %v", err)
	}
	if fetched == nil || fetched.FileName != "ceremony.mp4" {
		t.Fatalf("unexpected fetched record: %#v", fetched)
	}
	if fetched.Status != catalog.StatusUnscanned {
		t.Fatalf("expected new record unscanned, got %s", fetched.Status)
	}
	if fetched.HashKind != catalog.HashNone {
		t.Fatalf("expected new record unhashed, got %s", fetched.HashKind)
	}
}

func TestRecordFileIsIdempotentPerPath(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	rec := catalog.NewFileRecord{
		OriginalPath: "/library/2024/06/15/wedding/ceremony.mp4",
		FileName:     "ceremony.mp4",
		SizeBytes:    1024,
	}
	first, err := store.RecordFile(ctx, rec)
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}

	rec.SizeBytes = 2048
	second, err := store.RecordFile(ctx, rec)
	if err != nil {
		t.Fatalf("RecordFile (repeat) failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected same id for same path, got %d then %d", first, second)
	}

	fetched, err := store.FileByPath(ctx, rec.OriginalPath)
	if err != nil {
		t.Fatalf("FileByPath failed: %v", err)
	}
	if fetched.SizeBytes != 2048 {
		t.Fatalf("expected size refreshed to 2048, got %d", fetched.SizeBytes)
	}
	if !fetched.LastSeen.After(fetched.FirstSeen) && !fetched.LastSeen.Equal(fetched.FirstSeen) {
		t.Fatalf("expected last_seen >= first_seen, got %v < %v", fetched.LastSeen, fetched.FirstSeen)
	}
}

func TestUpdateFileHashRejectsEmpty(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	id, err := store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: "/library/a.mp4",
		FileName:     "a.mp4",
		SizeBytes:    10,
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}
	if err := store.UpdateFileHash(ctx, id, "", catalog.HashSampled); err == nil {
		t.Fatal("expected error for empty hash")
	}
}

func TestEnsureHashGroupIsUniquePerFingerprint(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	master, err := store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: "/library/a.mp4",
		FileName:     "a.mp4",
		SizeBytes:    100,
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}

	first, err := store.EnsureHashGroup(ctx, 100, "abc123", master)
	if err != nil {
		t.Fatalf("EnsureHashGroup failed: %v", err)
	}
	second, err := store.EnsureHashGroup(ctx, 100, "abc123", master)
	if err != nil {
		t.Fatalf("EnsureHashGroup (repeat) failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected one group per fingerprint, got %d then %d", first, second)
	}

	other, err := store.EnsureHashGroup(ctx, 100, "def456", master)
	if err != nil {
		t.Fatalf("EnsureHashGroup (other hash) failed: %v", err)
	}
	if other == first {
		t.Fatal("expected distinct group for distinct hash")
	}

	group, err := store.GroupByFingerprint(ctx, 100, "abc123")
	if err != nil {
		t.Fatalf("GroupByFingerprint failed: %v", err)
	}
	if group == nil || !group.Confirmed {
		t.Fatalf("expected confirmed group, got %#v", group)
	}
}

func TestEnsureCandidateGroupIsUniquePerSize(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	first, err := store.EnsureCandidateGroup(ctx, 500)
	if err != nil {
		t.Fatalf("EnsureCandidateGroup failed: %v", err)
	}
	second, err := store.EnsureCandidateGroup(ctx, 500)
	if err != nil {
		t.Fatalf("EnsureCandidateGroup (repeat) failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected one candidate group per size, got %d then %d", first, second)
	}

	group, err := store.CandidateGroupBySize(ctx, 500)
	if err != nil {
		t.Fatalf("CandidateGroupBySize failed: %v", err)
	}
	if group == nil || group.Confirmed {
		t.Fatalf("expected unconfirmed candidate group, got %#v", group)
	}
	if group.Hash != "" {
		t.Fatalf("expected candidate group without hash, got %q", group.Hash)
	}
}

func TestGroupMembershipAndMembersOrdering(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	var ids []int64
	for _, path := range []string{"/library/b.mp4", "/library/a.mp4", "/library/c.mp4"} {
		id, err := store.RecordFile(ctx, catalog.NewFileRecord{
			OriginalPath: path,
			FileName:     path[len("/library/"):],
			SizeBytes:    300,
		})
		if err != nil {
			t.Fatalf("RecordFile failed: %v", err)
		}
		ids = append(ids, id)
	}

	groupID, err := store.EnsureHashGroup(ctx, 300, "samehash", ids[1])
	if err != nil {
		t.Fatalf("EnsureHashGroup failed: %v", err)
	}
	for i, id := range ids {
		isDuplicate := id != ids[1]
		gid := groupID
		if err := store.AssignFileGroup(ctx, id, &gid, isDuplicate); err != nil {
			t.Fatalf("AssignFileGroup %d failed: %v", i, err)
		}
	}

	members, err := store.GroupMembers(ctx, groupID)
	if err != nil {
		t.Fatalf("GroupMembers failed: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	if members[0].OriginalPath != "/library/b.mp4" {
		t.Fatalf("expected earliest-seen member first, got %s", members[0].OriginalPath)
	}

	if err := store.DeleteGroup(ctx, groupID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	orphan, err := store.FileByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("FileByID failed: %v", err)
	}
	if orphan.GroupID != nil {
		t.Fatalf("expected group_id cleared after group delete, got %v", *orphan.GroupID)
	}
}

func TestUnconsolidatedUniquesExcludesConfirmedMembers(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	unique, err := store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: "/library/unique.mp4",
		FileName:     "unique.mp4",
		SizeBytes:    10,
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}

	master, err := store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: "/library/master.mp4",
		FileName:     "master.mp4",
		SizeBytes:    20,
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}
	groupID, err := store.EnsureHashGroup(ctx, 20, "hash", master)
	if err != nil {
		t.Fatalf("EnsureHashGroup failed: %v", err)
	}
	if err := store.AssignFileGroup(ctx, master, &groupID, false); err != nil {
		t.Fatalf("AssignFileGroup failed: %v", err)
	}

	candA, err := store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: "/library/cand_a.mp4",
		FileName:     "cand_a.mp4",
		SizeBytes:    30,
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}
	candGroup, err := store.EnsureCandidateGroup(ctx, 30)
	if err != nil {
		t.Fatalf("EnsureCandidateGroup failed: %v", err)
	}
	if err := store.AssignFileGroup(ctx, candA, &candGroup, false); err != nil {
		t.Fatalf("AssignFileGroup failed: %v", err)
	}

	uniques, err := store.UnconsolidatedUniques(ctx)
	if err != nil {
		t.Fatalf("UnconsolidatedUniques failed: %v", err)
	}
	got := make(map[int64]bool, len(uniques))
	for _, rec := range uniques {
		got[rec.ID] = true
	}
	if !got[unique] {
		t.Fatal("expected ungrouped file among uniques")
	}
	if !got[candA] {
		t.Fatal("expected candidate-group member among uniques")
	}
	if got[master] {
		t.Fatal("did not expect confirmed-group master among uniques")
	}
}

func TestPathsRoundTrip(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	id, err := store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: "/library/a.mp4",
		FileName:     "a.mp4",
		SizeBytes:    10,
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}

	if err := store.RecordPath(ctx, id, "/library/a.mp4", catalog.PathOriginal); err != nil {
		t.Fatalf("RecordPath failed: %v", err)
	}
	dest := "/library/.dg_consolidation/files/ab/cd/abcd_a.mp4"
	if err := store.RecordPath(ctx, id, dest, catalog.PathConsolidated); err != nil {
		t.Fatalf("RecordPath (consolidated) failed: %v", err)
	}
	// Re-recording the same pair only refreshes last_seen.
	if err := store.RecordPath(ctx, id, dest, catalog.PathConsolidated); err != nil {
		t.Fatalf("RecordPath (repeat) failed: %v", err)
	}

	paths, err := store.PathsForFile(ctx, id)
	if err != nil {
		t.Fatalf("PathsForFile failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 path records, got %d", len(paths))
	}

	resolved, err := store.ConsolidatedPathForFile(ctx, id)
	if err != nil {
		t.Fatalf("ConsolidatedPathForFile failed: %v", err)
	}
	if resolved != dest {
		t.Fatalf("expected %s, got %s", dest, resolved)
	}

	exists, err := store.ConsolidatedPathExists(ctx, dest)
	if err != nil {
		t.Fatalf("ConsolidatedPathExists failed: %v", err)
	}
	if !exists {
		t.Fatal("expected consolidated path to be claimed")
	}
}

func TestConsolidationStatusLifecycle(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	id, err := store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: "/library/a.mp4",
		FileName:     "a.mp4",
		SizeBytes:    10,
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}

	if err := store.SetConsolidationStatus(ctx, id, catalog.StatusScanned); err != nil {
		t.Fatalf("SetConsolidationStatus failed: %v", err)
	}
	if err := store.SetConsolidationStatus(ctx, id, "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if err := store.SetConsolidationStatus(ctx, id, catalog.StatusConsolidated); err != nil {
		t.Fatalf("SetConsolidationStatus failed: %v", err)
	}

	rec, err := store.FileByID(ctx, id)
	if err != nil {
		t.Fatalf("FileByID failed: %v", err)
	}
	if rec.Status != catalog.StatusConsolidated {
		t.Fatalf("expected consolidated, got %s", rec.Status)
	}
	if !rec.Status.Terminal() {
		t.Fatal("expected consolidated to be terminal")
	}
}

func TestStatisticsRecompute(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ctx := context.Background()
	var master int64
	for i := 0; i < 3; i++ {
		id, err := store.RecordFile(ctx, catalog.NewFileRecord{
			OriginalPath: fmt.Sprintf("/library/copy_%d.mp4", i),
			FileName:     fmt.Sprintf("copy_%d.mp4", i),
			SizeBytes:    1000,
			Year:         "2024",
			Month:        "06",
		})
		if err != nil {
			t.Fatalf("RecordFile failed: %v", err)
		}
		if i == 0 {
			master = id
		}
	}

	groupID, err := store.EnsureHashGroup(ctx, 1000, "hash", master)
	if err != nil {
		t.Fatalf("EnsureHashGroup failed: %v", err)
	}
	files, err := store.FilesBySize(ctx, 1000)
	if err != nil {
		t.Fatalf("FilesBySize failed: %v", err)
	}
	for _, rec := range files {
		gid := groupID
		if err := store.AssignFileGroup(ctx, rec.ID, &gid, rec.ID != master); err != nil {
			t.Fatalf("AssignFileGroup failed: %v", err)
		}
	}
	if err := store.UpdateGroupTotals(ctx, groupID, 3, 2000); err != nil {
		t.Fatalf("UpdateGroupTotals failed: %v", err)
	}

	if err := store.RecomputeStatistics(ctx); err != nil {
		t.Fatalf("RecomputeStatistics failed: %v", err)
	}
	if err := store.MarkScanCompleted(ctx); err != nil {
		t.Fatalf("MarkScanCompleted failed: %v", err)
	}

	snap, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if snap.TotalFiles != 3 {
		t.Fatalf("expected 3 files, got %d", snap.TotalFiles)
	}
	if snap.TotalBytes != 3000 {
		t.Fatalf("expected 3000 bytes, got %d", snap.TotalBytes)
	}
	if snap.DuplicateFiles != 2 {
		t.Fatalf("expected 2 duplicates, got %d", snap.DuplicateFiles)
	}
	if snap.DuplicateGroups != 1 {
		t.Fatalf("expected 1 group, got %d", snap.DuplicateGroups)
	}
	if snap.SpaceSavedBytes != 2000 {
		t.Fatalf("expected 2000 redundant bytes, got %d", snap.SpaceSavedBytes)
	}
	if snap.LastScan == "" {
		t.Fatal("expected last scan timestamp")
	}

	byMonth, err := store.BreakdownByYearMonth(ctx)
	if err != nil {
		t.Fatalf("BreakdownByYearMonth failed: %v", err)
	}
	if len(byMonth) != 1 || byMonth[0].Year != "2024" || byMonth[0].Files != 3 {
		t.Fatalf("unexpected year/month breakdown: %#v", byMonth)
	}
}

func TestIntegrityCheck(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)

	ok, err := store.IntegrityCheck()
	if err != nil {
		t.Fatalf("IntegrityCheck failed: %v", err)
	}
	if !ok {
		t.Fatal("expected integrity check to pass")
	}
}
