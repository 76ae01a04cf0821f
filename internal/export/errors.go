package export

import "errors"

var (
	// ErrMissingBucket is returned when an S3 exporter has no bucket.
	ErrMissingBucket = errors.New("s3 exporter requires a bucket")

	// ErrMissingBrokers is returned when a Kafka exporter has no brokers.
	ErrMissingBrokers = errors.New("kafka exporter requires at least one broker")

	// ErrMissingTopic is returned when a Kafka exporter has no topic.
	ErrMissingTopic = errors.New("kafka exporter requires a topic")
)
