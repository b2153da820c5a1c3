// Package domain defines the core business entities for Docsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Plan: A configured source database to ingest
//   - PlanView: A canonical view to locate and scan within a plan
//   - Document: An ingested record identified by its source UNID
//   - Item / Value: The normalised field catalogue and typed values
//   - Attachment: A binary payload reference deduplicated by content
//   - ScanState: The per-view incremental watermark
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
