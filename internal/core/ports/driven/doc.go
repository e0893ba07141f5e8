// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RecordStore: durable key/JSON map (SQLite, Redis or memory)
//   - IndexingService: the remote batch upload, delete and query endpoints
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ContentInspector: without it device files are staged with a name
//     derived from the path and no MIME type or size.
//   - NotificationSource: without it summaries only arrive through
//     explicit calls.
//   - SchedulerStore: without it background sweeps do not run.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
