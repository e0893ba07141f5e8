// Package domain defines the core business entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - FileRecord: local metadata for one attachment, staged then promoted
//   - ChatSession / WorkspaceChatSession: append-only transcripts plus summaries
//   - UploadBatch: the Staged -> Submitted -> Promoted|RolledBack state machine
//   - SummaryNotification: the asynchronous "summary ready" event
//   - RetentionPolicy: time-boxed retention for chat messages
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
package domain
