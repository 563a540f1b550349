package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	// DefaultResultsDBTimeout bounds a single request to the results
	// store. Retries are handled above this timeout.
	DefaultResultsDBTimeout = 15 * time.Second

	UserAgent = "resultsink"
)

// Retry budget for results store submissions. The backoff sequence
// min(0.3 * 2^(n-1), 120) summed over 24 attempts waits roughly half an
// hour before giving up.
const (
	SubmitMaxAttempts     = 24
	SubmitInitialInterval = 300 * time.Millisecond
	SubmitMaxInterval     = 120 * time.Second
	SubmitMultiplier      = 2.0
)

const (
	// MaxResultDataSize is the longest value accepted for a single result
	// data field. ResultsDB stores data in an indexed Postgres column and
	// values larger than 1/3 of a buffer page cannot be indexed.
	MaxResultDataSize = 8192

	// MaxErrorReasonSize caps the error_reason field for ERROR outcomes.
	MaxErrorReasonSize = 256
)

const (
	// TopicCIMetrics is the legacy CI metrics results topic.
	TopicCIMetrics = "/topic/VirtualTopic.eng.platformci.tier1.result"

	// TopicJenkinsQE carries mostly irrelevant traffic; unhandled
	// messages on it are dropped without a warning.
	TopicJenkinsQE = "/topic/VirtualTopic.qe.ci.jenkins"

	// TopicCIPrefix is the new-scheme topic prefix carrying a namespace
	// component.
	TopicCIPrefix = "/topic/VirtualTopic.eng.ci."
)

const (
	ShutdownTimeout = 5 * time.Second
)
