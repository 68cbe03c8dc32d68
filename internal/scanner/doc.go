// Package scanner runs the catalog ingest pass: it walks the tree, records
// files and paths, fingerprints size-colliding files lazily, and hands
// fingerprints to the grouping engine. Files with a unique size are never
// hashed.
package scanner
