// Package main hosts the document pusher service entrypoint.
//
// Architecture overview:
//   - Message intake: internal/queue provides the source abstraction. The Pub/Sub consumer pulls
//     content-publication events with bounded concurrency (queue.provider=pubsub); the in-memory consumer backs
//     local development and tests. Each message is handled to completion before its slot frees up.
//   - Pipeline: internal/pipeline.Coordinator owns per-message control flow. Events are parsed, gated on the
//     publish markers (ISSUCCESS/OPERTYPE), built into archive records, delivered, and only then acknowledged.
//     Modeled permanent failures are written to the dead-letter sink before the source ack; unexpected failures
//     are nacked so the queue redelivers.
//   - Record building: internal/transform resolves the flat archival fields, maps channel ids onto the static
//     classification table (unknown channels degrade to the configured default), and normalizes every attachment
//     reference (HTML scan, JSON fields, legacy appendix) into absolute URLs with the synthesized body entry last.
//   - Delivery: internal/delivery wraps the archive HTTP API with bounded exponential-backoff retries and a
//     process-wide circuit breaker shared by all workers. 4xx responses and application-level rejections
//     (nonzero STATUS) are permanent and bypass both retry and breaker accounting.
//   - Configuration & plumbing: Viper populates config from env/files (HYDOC_* prefix); zap provides structured
//     logging; Prometheus counters and the breaker-state gauge are exported on /metrics alongside /healthz and
//     /readyz on the chi server.
//
// Operational notes:
//   - Concurrency model: a fixed worker count bounds in-flight messages at the consumer. The breaker is the only
//     state shared between workers; everything else is per-message.
//   - Shutdown: SIGTERM stops intake immediately; in-flight deliveries get the configured grace window before
//     their context is canceled and the messages return to the queue unacknowledged.
//   - Delivery guarantee: at-least-once into either the archive system or the dead-letter topic. The source
//     message is never acknowledged before one of the two has confirmed receipt, so duplicates are possible but
//     loss is not.
//
// Quick checklist:
//   - Configure env vars: HYDOC_QUEUE_PROVIDER, HYDOC_QUEUE_PROJECT_ID, HYDOC_QUEUE_SUBSCRIPTION_ID,
//     HYDOC_QUEUE_DEAD_LETTER_TOPIC, HYDOC_ARCHIVE_ENDPOINT, HYDOC_ARCHIVE_APP_TOKEN, HYDOC_ARCHIVE_DOMAIN,
//     and HYDOC_PIPELINE_WORKERS, or supply everything via -config config.yaml.
//   - Run locally: go run ./cmd/hydocpusher -config config.yaml with queue.provider=memory to exercise the
//     pipeline without GCP credentials.
package main
