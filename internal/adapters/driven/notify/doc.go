// Package notify groups the driven.NotificationSource implementations that
// deliver "summary ready" events:
//
//   - memory: an in-process bus, used by tests and embedders
//   - kafka: a consumer-group reader on a Kafka topic
//   - webhook: an HTTP endpoint the indexing service posts to
//
// Every source decodes the same JSON body {fileId, summary, timestamp}.
package notify
