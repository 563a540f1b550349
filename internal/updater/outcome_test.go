package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutcome(t *testing.T) {
	tests := []struct {
		name       string
		topic      string
		rawOutcome interface{}
		want       string
	}{
		{
			name:  "error topic",
			topic: "/topic/VirtualTopic.eng.ci.osci.brew-build.test.error",
			want:  OutcomeError,
		},
		{
			name:  "queued topic",
			topic: "/topic/VirtualTopic.eng.ci.osci.brew-build.test.queued",
			want:  OutcomeQueued,
		},
		{
			name:  "running topic",
			topic: "/topic/VirtualTopic.eng.ci.osci.brew-build.test.running",
			want:  OutcomeRunning,
		},
		{
			name:       "pass maps to PASSED",
			topic:      "/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
			rawOutcome: "pass",
			want:       OutcomePassed,
		},
		{
			name:       "mixed case pass",
			topic:      "/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
			rawOutcome: "PaSs",
			want:       OutcomePassed,
		},
		{
			name:       "fail maps to FAILED",
			topic:      "/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
			rawOutcome: "fail",
			want:       OutcomeFailed,
		},
		{
			name:       "failure maps to FAILED",
			topic:      "/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
			rawOutcome: "failure",
			want:       OutcomeFailed,
		},
		{
			name:       "unrecognized outcome is upper-cased",
			topic:      "/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
			rawOutcome: "needs_inspection",
			want:       "NEEDS_INSPECTION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := ResolveOutcome(tt.topic, tt.rawOutcome)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

func TestResolveOutcomeNonString(t *testing.T) {
	_, err := ResolveOutcome("/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete", nil)
	assert.Error(t, err)

	_, err = ResolveOutcome("/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete", 42)
	assert.Error(t, err)
}
