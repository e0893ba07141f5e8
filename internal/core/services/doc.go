// Package services implements the driving port interfaces.
// Services contain the core business logic (staging, promotion, transcripts,
// retention) and orchestrate calls to driven ports (adapters).
//
// Each ledger is an explicit value built over an injected RecordStore; there
// is no package-level state.
package services
