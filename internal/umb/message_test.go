package umb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultsink/internal/logger"
)

func newTestMessage(topic string, body map[string]interface{}) *Message {
	raw := RawMessage{
		Topic: topic,
		Body:  map[string]interface{}{"msg": body},
	}
	return Parse(raw, logger.NopLogger())
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		version interface{}
		want    Version
	}{
		{
			name:    "no version defaults to V1",
			version: nil,
			want:    V1,
		},
		{
			name:    "0.1.x is V1",
			version: "0.1.1",
			want:    V1,
		},
		{
			name:    "0.2.0 is V2",
			version: "0.2.0",
			want:    V2,
		},
		{
			name:    "0.2.1 is V2.1",
			version: "0.2.1",
			want:    V2_1,
		},
		{
			name:    "1.2.0 is V2.1",
			version: "1.2.0",
			want:    V2_1,
		},
		{
			name:    "unparseable version falls back to V1",
			version: "not-semver",
			want:    V1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]interface{}{}
			if tt.version != nil {
				body["version"] = tt.version
			}
			msg := newTestMessage("/topic/VirtualTopic.eng.ci.test", body)
			assert.Equal(t, tt.want, msg.Version())
		})
	}
}

func TestGet(t *testing.T) {
	msg := newTestMessage("/topic/t", map[string]interface{}{
		"artifact": map[string]interface{}{
			"type": "brew-build",
			"id":   nil,
		},
	})

	value, err := msg.Get("artifact", "type")
	require.NoError(t, err)
	assert.Equal(t, "brew-build", value)

	// A key present with a null value is not missing.
	value, err = msg.Get("artifact", "id")
	require.NoError(t, err)
	assert.Nil(t, value)

	_, err = msg.Get("artifact", "nvr")
	require.Error(t, err)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"artifact", "nvr"}, missing.Path)
	assert.True(t, IsInvalidMessage(err))
}

func TestGetDefault(t *testing.T) {
	msg := newTestMessage("/topic/t", map[string]interface{}{
		"run": map[string]interface{}{"url": "https://jenkins.local/1"},
	})

	assert.Equal(t, "https://jenkins.local/1", msg.GetDefault("", "run", "url"))
	assert.Equal(t, "fallback", msg.GetDefault("fallback", "run", "log"))
	assert.Nil(t, msg.GetDefault(nil, "missing"))
}

func TestSystemNormalization(t *testing.T) {
	tests := []struct {
		name   string
		system interface{}
		want   interface{}
	}{
		{
			name:   "system object",
			system: map[string]interface{}{"architecture": "x86_64"},
			want:   "x86_64",
		},
		{
			name: "list of system objects uses the first",
			system: []interface{}{
				map[string]interface{}{"architecture": "aarch64"},
				map[string]interface{}{"architecture": "s390x"},
			},
			want: "aarch64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := newTestMessage("/topic/t", map[string]interface{}{"system": tt.system})
			value, err := msg.System("architecture")
			require.NoError(t, err)
			assert.Equal(t, tt.want, value)
		})
	}

	t.Run("empty system list", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{"system": []interface{}{}})
		_, err := msg.System("architecture")
		assert.Error(t, err)
		assert.Equal(t, "default", msg.SystemDefault("default", "architecture"))
	})
}

func TestContactByVersion(t *testing.T) {
	t.Run("pre-V2.1 reads ci", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{
			"version": "0.2.0",
			"ci":      map[string]interface{}{"name": "BaseOS CI"},
		})
		value, err := msg.Contact("name")
		require.NoError(t, err)
		assert.Equal(t, "BaseOS CI", value)
	})

	t.Run("V2.1 reads contact", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{
			"version": "0.2.1",
			"contact": map[string]interface{}{"name": "OSCI"},
		})
		value, err := msg.Contact("name")
		require.NoError(t, err)
		assert.Equal(t, "OSCI", value)
	})
}

func TestContactDict(t *testing.T) {
	msg := newTestMessage("/topic/t", map[string]interface{}{
		"version": "0.2.1",
		"contact": map[string]interface{}{
			"name":  "OSCI",
			"team":  "OSCI team",
			"email": "osci@example.com",
		},
	})

	contact, err := msg.ContactDict()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"ci_name":  "OSCI",
		"ci_team":  "OSCI team",
		"ci_email": "osci@example.com",
		"ci_url":   "not available",
		"ci_irc":   "not available",
	}, contact)
}

func TestContactDictMissingRequiredField(t *testing.T) {
	msg := newTestMessage("/topic/t", map[string]interface{}{
		"version": "0.2.1",
		"contact": map[string]interface{}{"name": "OSCI"},
	})

	_, err := msg.ContactDict()
	require.Error(t, err)
	assert.True(t, IsInvalidMessage(err))
}

func TestRecipients(t *testing.T) {
	t.Run("V1 top level", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{
			"recipients": []interface{}{"alice"},
		})
		assert.Equal(t, []interface{}{"alice"}, msg.Recipients())
	})

	t.Run("V2 under notification", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{
			"version": "0.2.0",
			"notification": map[string]interface{}{
				"recipients": []interface{}{"bob"},
			},
		})
		assert.Equal(t, []interface{}{"bob"}, msg.Recipients())
	})

	t.Run("defaults to empty list", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{})
		assert.Equal(t, []interface{}{}, msg.Recipients())
	})
}

func TestErrorReason(t *testing.T) {
	t.Run("V1 top-level reason", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{"reason": "infra down"})
		reason, err := msg.ErrorReason()
		require.NoError(t, err)
		assert.Equal(t, "infra down", reason)
	})

	t.Run("V2 under error", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{
			"version": "0.2.0",
			"error":   map[string]interface{}{"reason": "tests timed out"},
		})
		reason, err := msg.ErrorReason()
		require.NoError(t, err)
		assert.Equal(t, "tests timed out", reason)
	})
}

func TestResultOutcome(t *testing.T) {
	t.Run("V1 reads status", func(t *testing.T) {
		msg := newTestMessage("/topic/t", map[string]interface{}{"status": "passed"})
		outcome, err := msg.ResultOutcome()
		require.NoError(t, err)
		assert.Equal(t, "passed", outcome)
	})

	t.Run("V2 complete requires test result", func(t *testing.T) {
		msg := newTestMessage("/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
			map[string]interface{}{
				"version": "0.2.0",
				"test":    map[string]interface{}{"result": "passed"},
			})
		outcome, err := msg.ResultOutcome()
		require.NoError(t, err)
		assert.Equal(t, "passed", outcome)

		msg = newTestMessage("/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
			map[string]interface{}{
				"version": "0.2.0",
				"test":    map[string]interface{}{},
			})
		_, err = msg.ResultOutcome()
		assert.Error(t, err)
	})

	t.Run("V2 non-complete has no outcome", func(t *testing.T) {
		msg := newTestMessage("/topic/VirtualTopic.eng.ci.osci.brew-build.test.running",
			map[string]interface{}{
				"version": "0.2.0",
				"test":    map[string]interface{}{},
			})
		outcome, err := msg.ResultOutcome()
		require.NoError(t, err)
		assert.Nil(t, outcome)
	})
}

func TestTestcaseName(t *testing.T) {
	msg := newTestMessage("/topic/t", map[string]interface{}{
		"version": "0.2.0",
		"test": map[string]interface{}{
			"namespace": "baseos-ci.brew-build",
			"type":      "tier1",
			"category":  "functional",
		},
	})

	name, err := msg.TestcaseName()
	require.NoError(t, err)
	assert.Equal(t, "baseos-ci.brew-build.tier1.functional", name)
}

func TestRawMessageID(t *testing.T) {
	raw := RawMessage{Headers: map[string]string{"message-id": "ID:abc-1"}}
	assert.Equal(t, "ID:abc-1", raw.ID())

	assert.Equal(t, "ID:UNKNOWN", RawMessage{}.ID())
}
