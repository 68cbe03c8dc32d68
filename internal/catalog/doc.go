// Package catalog persists the file inventory, duplicate groups, path
// history, and aggregate statistics in SQLite.
//
// The Store manages the database connection, schema migrations, file and
// group upserts, and the consolidation status lifecycle. Every mutating
// operation commits immediately so an interrupted pass can resume from the
// last durable row.
//
// Duplicate identity lives at the group level: confirmed groups are unique
// per (file_size_bytes, group_hash) fingerprint, candidate groups unique per
// size with a NULL hash. File rows are physical instances keyed by their
// original absolute path.
package catalog
