// Package export publishes the results of a crawl run to external sinks.
//
// Two exporters are provided:
//   - S3Exporter writes one JSON object per stored page, keyed by the SHA-256
//     of its URL, plus a run summary object.
//   - KafkaExporter produces one message per stored page, keyed by URL so
//     that all versions of a page land on the same partition.
//
// Both encode with json-iterator and never mutate the report they are given.
package export
