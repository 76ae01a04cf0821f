// Package pipeline runs the post-crawl steps of a routecrawl run.
//
// Once the engine has finished (or was interrupted), the run report is
// handed to a Pipeline whose steps write the report in the requested
// formats and publish the stored results to external sinks such as S3
// or Kafka. Each step implements Step and receives the same report.
//
// Steps run in the order they were added. By default the pipeline stops
// at the first failing step; WithContinueOnError makes it run every step
// and return the joined failures instead.
package pipeline
