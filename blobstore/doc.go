// Package blobstore abstracts the blob endpoints chunks and hierarchy
// state are persisted to. An Endpoint is an opaque I/O target: the
// output store holding the finished index, and a temporary store used
// for staging writes.
//
// Implementations cover the local file system (mmap-backed reads),
// memory (tests), and S3-compatible object stores (see the minio and
// s3 subpackages). Wrappers add block-level read caching and byte-rate
// throttling without the callers knowing.
package blobstore
