package consolidate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dgcat/internal/catalog"
)

// hashlessPrefix shards files whose fingerprint could not be computed into a
// fixed bucket so consolidation still works for them.
const (
	hashlessShard = "00"
	hashlessName  = "no_hash"
)

// destinationResolver computes collision-free consolidated paths under
// <catalog dir>/files/<hash[0:2]>/<hash[2:4]>/. Collision checks consult the
// disk, the catalog's claimed paths, and destinations already handed out for
// the plan being built; resolution itself never writes.
type destinationResolver struct {
	filesDir   string
	maxNameLen int
	store      *catalog.Store
	claimed    map[string]struct{}
}

func newDestinationResolver(filesDir string, maxNameLen int, store *catalog.Store) *destinationResolver {
	return &destinationResolver{
		filesDir:   filesDir,
		maxNameLen: maxNameLen,
		store:      store,
		claimed:    make(map[string]struct{}),
	}
}

// resolve returns the destination for a file identified by hash, appending an
// incrementing counter until the path is unclaimed.
func (r *destinationResolver) resolve(ctx context.Context, hash, fileName string) (string, error) {
	shard1, shard2, hashPart := shardFor(hash)
	base := hashPart + "_" + sanitizeFilename(fileName, r.maxNameLen)
	dir := filepath.Join(r.filesDir, shard1, shard2)

	candidate := filepath.Join(dir, base)
	for counter := 1; ; counter++ {
		taken, err := r.taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			r.claimed[candidate] = struct{}{}
			return candidate, nil
		}
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}
}

func (r *destinationResolver) taken(ctx context.Context, path string) (bool, error) {
	if _, ok := r.claimed[path]; ok {
		return true, nil
	}
	if _, err := os.Lstat(path); err == nil {
		return true, nil
	}
	exists, err := r.store.ConsolidatedPathExists(ctx, path)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func shardFor(hash string) (string, string, string) {
	if len(hash) < 4 {
		return hashlessShard, hashlessShard, hashlessName
	}
	return hash[0:2], hash[2:4], hash
}

// sanitizeFilename strips path separators and characters that break
// cross-platform filesystems, then caps the length keeping the extension.
func sanitizeFilename(name string, maxLen int) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_",
		"<", "_", ">", "_", ":", "_",
		"\"", "_", "|", "_", "?", "_", "*", "_",
	)
	sanitized := replacer.Replace(name)

	if maxLen > 0 && len(sanitized) > maxLen {
		ext := filepath.Ext(sanitized)
		if len(ext) >= maxLen {
			ext = ""
		}
		sanitized = sanitized[:maxLen-len(ext)] + ext
	}
	return sanitized
}
