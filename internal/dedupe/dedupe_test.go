package dedupe_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dgcat/internal/catalog"
	"dgcat/internal/dedupe"
	"dgcat/internal/testsupport"
)

func recordFile(t *testing.T, store *catalog.Store, path string, size int64) int64 {
	t.Helper()
	id, err := store.RecordFile(context.Background(), catalog.NewFileRecord{
		OriginalPath: path,
		FileName:     filepath.Base(path),
		SizeBytes:    size,
	})
	if err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}
	return id
}

func setHash(t *testing.T, store *catalog.Store, id int64, hash string) {
	t.Helper()
	if err := store.UpdateFileHash(context.Background(), id, hash, catalog.HashSampled); err != nil {
		t.Fatalf("UpdateFileHash failed: %v", err)
	}
}

func TestRegroupFormsOneGroupPerFingerprint(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)
	engine := dedupe.New(store, nil)
	ctx := context.Background()

	a := recordFile(t, store, "/library/a.mp4", 100)
	b := recordFile(t, store, "/library/b.mp4", 100)
	c := recordFile(t, store, "/library/c.mp4", 100)
	setHash(t, store, a, "hashX")
	setHash(t, store, b, "hashX")
	setHash(t, store, c, "hashY")

	if err := engine.Regroup(ctx, 100, "hashX"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}
	if err := engine.Regroup(ctx, 100, "hashY"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}

	group, err := store.GroupByFingerprint(ctx, 100, "hashX")
	if err != nil {
		t.Fatalf("GroupByFingerprint failed: %v", err)
	}
	if group == nil {
		t.Fatal("expected group for shared fingerprint")
	}
	if group.MemberCount != 2 {
		t.Fatalf("expected 2 members, got %d", group.MemberCount)
	}
	if group.MasterFileID != a {
		t.Fatalf("expected earliest file as master, got %d", group.MasterFileID)
	}
	if group.RedundantBytes != 100 {
		t.Fatalf("expected 100 redundant bytes, got %d", group.RedundantBytes)
	}

	// A lone fingerprint never gets a group.
	lone, err := store.GroupByFingerprint(ctx, 100, "hashY")
	if err != nil {
		t.Fatalf("GroupByFingerprint failed: %v", err)
	}
	if lone != nil {
		t.Fatalf("expected no group for singleton, got %#v", lone)
	}

	recA, err := store.FileByID(ctx, a)
	if err != nil {
		t.Fatalf("FileByID failed: %v", err)
	}
	if recA.IsDuplicate {
		t.Fatal("master must not be flagged duplicate")
	}
	recB, err := store.FileByID(ctx, b)
	if err != nil {
		t.Fatalf("FileByID failed: %v", err)
	}
	if !recB.IsDuplicate {
		t.Fatal("non-master member must be flagged duplicate")
	}
}

func TestRegroupIsIdempotentAndMasterStable(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)
	engine := dedupe.New(store, nil)
	ctx := context.Background()

	a := recordFile(t, store, "/library/z_first_seen.mp4", 100)
	b := recordFile(t, store, "/library/a_later.mp4", 100)
	setHash(t, store, a, "hash")
	setHash(t, store, b, "hash")

	if err := engine.Regroup(ctx, 100, "hash"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}
	first, err := store.GroupByFingerprint(ctx, 100, "hash")
	if err != nil {
		t.Fatalf("GroupByFingerprint failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := engine.Regroup(ctx, 100, "hash"); err != nil {
			t.Fatalf("Regroup (repeat %d) failed: %v", i, err)
		}
	}
	after, err := store.GroupByFingerprint(ctx, 100, "hash")
	if err != nil {
		t.Fatalf("GroupByFingerprint failed: %v", err)
	}
	if after.ID != first.ID {
		t.Fatalf("expected one stable group, got %d then %d", first.ID, after.ID)
	}
	if after.MasterFileID != first.MasterFileID {
		t.Fatalf("master changed across re-runs: %d then %d", first.MasterFileID, after.MasterFileID)
	}
	if after.MasterFileID != a {
		t.Fatalf("expected earliest-seen master %d, got %d", a, after.MasterFileID)
	}
}

func TestRegroupDissolvesGroupWhenMembersDiverge(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)
	engine := dedupe.New(store, nil)
	ctx := context.Background()

	a := recordFile(t, store, "/library/a.mp4", 100)
	b := recordFile(t, store, "/library/b.mp4", 100)
	setHash(t, store, a, "hash")
	setHash(t, store, b, "hash")
	if err := engine.Regroup(ctx, 100, "hash"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}

	// A corrected hash pulls b out of the group; the singleton dissolves.
	setHash(t, store, b, "otherhash")
	if err := engine.Regroup(ctx, 100, "hash"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}
	if err := engine.Regroup(ctx, 100, "otherhash"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}

	group, err := store.GroupByFingerprint(ctx, 100, "hash")
	if err != nil {
		t.Fatalf("GroupByFingerprint failed: %v", err)
	}
	if group != nil {
		t.Fatalf("expected dissolved group, got %#v", group)
	}
	recA, err := store.FileByID(ctx, a)
	if err != nil {
		t.Fatalf("FileByID failed: %v", err)
	}
	if recA.IsDuplicate || recA.GroupID != nil {
		t.Fatalf("expected cleared membership, got %#v", recA)
	}
}

func TestSizeBucketsNeverMix(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)
	engine := dedupe.New(store, nil)
	ctx := context.Background()

	a := recordFile(t, store, "/library/a.mp4", 100)
	b := recordFile(t, store, "/library/b.mp4", 200)
	setHash(t, store, a, "hash")
	setHash(t, store, b, "hash")

	if err := engine.Regroup(ctx, 100, "hash"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}
	if err := engine.Regroup(ctx, 200, "hash"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}

	for _, size := range []int64{100, 200} {
		group, err := store.GroupByFingerprint(ctx, size, "hash")
		if err != nil {
			t.Fatalf("GroupByFingerprint failed: %v", err)
		}
		if group != nil {
			t.Fatalf("files of different sizes must never group, got %#v", group)
		}
	}
}

func TestCandidateGroupLifecycle(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)
	engine := dedupe.New(store, nil)
	ctx := context.Background()

	a := recordFile(t, store, "/library/a.mp4", 100)
	b := recordFile(t, store, "/library/b.mp4", 100)

	if err := engine.RecordCandidates(ctx, 100); err != nil {
		t.Fatalf("RecordCandidates failed: %v", err)
	}
	candidate, err := store.CandidateGroupBySize(ctx, 100)
	if err != nil {
		t.Fatalf("CandidateGroupBySize failed: %v", err)
	}
	if candidate == nil || candidate.Confirmed {
		t.Fatalf("expected unconfirmed candidate group, got %#v", candidate)
	}

	recA, err := store.FileByID(ctx, a)
	if err != nil {
		t.Fatalf("FileByID failed: %v", err)
	}
	if recA.IsDuplicate {
		t.Fatal("candidate members must never be flagged duplicate")
	}

	// A later hashing scan upgrades the candidates into a confirmed group
	// and prunes the size-only group.
	setHash(t, store, a, "hash")
	setHash(t, store, b, "hash")
	if err := engine.Regroup(ctx, 100, "hash"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}

	candidate, err = store.CandidateGroupBySize(ctx, 100)
	if err != nil {
		t.Fatalf("CandidateGroupBySize failed: %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected candidate group pruned after hashing, got %#v", candidate)
	}
	confirmed, err := store.GroupByFingerprint(ctx, 100, "hash")
	if err != nil {
		t.Fatalf("GroupByFingerprint failed: %v", err)
	}
	if confirmed == nil || !confirmed.Confirmed {
		t.Fatalf("expected confirmed group after hashing, got %#v", confirmed)
	}
}

func TestReelectMastersWhenMasterVanishes(t *testing.T) {
	cfg, root := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, root)
	engine := dedupe.New(store, nil)
	ctx := context.Background()

	masterPath := filepath.Join(root, "2024", "06", "15", "wedding", "master.mp4")
	dupPath := filepath.Join(root, "2024", "06", "15", "wedding", "copy.mp4")
	testsupport.WriteFile(t, masterPath, 100)
	testsupport.WriteFile(t, dupPath, 100)

	a := recordFile(t, store, masterPath, 100)
	b := recordFile(t, store, dupPath, 100)
	setHash(t, store, a, "hash")
	setHash(t, store, b, "hash")
	if err := engine.Regroup(ctx, 100, "hash"); err != nil {
		t.Fatalf("Regroup failed: %v", err)
	}

	// Nothing to do while the master is present.
	n, err := engine.ReelectMasters(ctx)
	if err != nil {
		t.Fatalf("ReelectMasters failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no re-elections, got %d", n)
	}

	if err := os.Remove(masterPath); err != nil {
		t.Fatalf("remove master: %v", err)
	}
	n, err = engine.ReelectMasters(ctx)
	if err != nil {
		t.Fatalf("ReelectMasters failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 re-election, got %d", n)
	}

	group, err := store.GroupByFingerprint(ctx, 100, "hash")
	if err != nil {
		t.Fatalf("GroupByFingerprint failed: %v", err)
	}
	if group.MasterFileID != b {
		t.Fatalf("expected surviving copy elected master, got %d", group.MasterFileID)
	}
	recB, err := store.FileByID(ctx, b)
	if err != nil {
		t.Fatalf("FileByID failed: %v", err)
	}
	if recB.IsDuplicate {
		t.Fatal("new master must not stay flagged duplicate")
	}
}
