// Package pointgo builds point-cloud octree indexes. Points descend an
// octree one depth at a time and land in the first chunk with a free
// cell; chunks persist to blob endpoints (local disk, MinIO, S3)
// through a concurrent, reference-counted, write-behind cache.
//
// The Builder is the high-level entry point: it fans ingestion workers
// out over point sources, gives each worker batch a private pruner for
// lock-free access to hot chunks, evicts cold chunks deepest-first
// under a capacity bound, and persists hierarchy and manifest state so
// builds can resume.
//
//	out := blobstore.NewLocalStore("/data/index")
//	tmp := blobstore.NewLocalStore("/tmp/staging")
//
//	b, err := pointgo.NewBuilder(ctx, out, tmp, bounds,
//		pointgo.WithWorkers(8),
//		pointgo.WithCacheSize(64),
//	)
//	if err != nil { ... }
//
//	if err := b.Run(ctx, sources); err != nil { ... }
//	if err := b.Close(ctx); err != nil { ... }
//
// The cache package is usable on its own for drivers with their own
// ingestion loop; see its documentation for the locking protocol.
package pointgo
