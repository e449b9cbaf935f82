// Package simpleassets provides an asset import pipeline with content-addressed
// change detection.
//
// A Database is bound to one root on a virtual file system (local disk,
// memory, zip archive, S3). Callers register typed importers with AddImporter
// and load assets with Load; the database hashes the raw bytes, serves cached
// values whose hash is unchanged and otherwise dispatches to the first
// matching importer through a type-erased Registry. Every successful import is
// recorded in a Manifest which FlushChanges persists as one whole document,
// so later runs can tell which sources changed.
//
// File system backends live under vfs/, manifest codecs under codec/, a
// Postgres manifest store under manifeststore/postgres and sample importers
// under importers/.
//
// # Change Detection
//
// Content hashes are keyed BLAKE3 digests over the raw source bytes. A cached
// value is only returned when both the cache entry and the manifest record
// carry the hash of the bytes just read, so a value whose source changed on
// disk is never served.
package simpleassets
