package updater

import (
	"strings"

	"resultsink/internal/umb"
)

// Canonical outcomes derived from the topic state suffix. Outcomes for
// complete messages come from the producer and pass through the mapping
// below instead.
const (
	OutcomeError   = "ERROR"
	OutcomeQueued  = "QUEUED"
	OutcomeRunning = "RUNNING"
	OutcomePassed  = "PASSED"
	OutcomeFailed  = "FAILED"
)

// ResolveOutcome maps a topic and a raw producer outcome to the
// canonical outcome token. Some systems generate outcomes that don't
// match spec; unrecognized strings are upper-cased and passed through so
// store vocabularies like NEEDS_INSPECTION keep working.
func ResolveOutcome(topic string, rawOutcome interface{}) (string, error) {
	switch {
	case strings.HasSuffix(topic, ".error"):
		return OutcomeError, nil
	case strings.HasSuffix(topic, ".queued"):
		return OutcomeQueued, nil
	case strings.HasSuffix(topic, ".running"):
		return OutcomeRunning, nil
	}

	outcome, ok := rawOutcome.(string)
	if !ok {
		return "", umb.Invalidf(
			"Unexpected result status/outcome, expected a string, got: %v", rawOutcome)
	}

	switch strings.ToLower(outcome) {
	case "pass":
		return OutcomePassed, nil
	case "fail", "failure":
		return OutcomeFailed, nil
	}

	return strings.ToUpper(outcome), nil
}
