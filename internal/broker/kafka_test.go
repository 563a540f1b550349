package broker

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	m := kafka.Message{
		Topic: "umb.eng.ci",
		Value: []byte(`{
			"topic": "/topic/VirtualTopic.eng.ci.baseos-ci.brew-build.test.complete",
			"headers": {"message-id": "ID:abc-1", "JMSXUserID": "osci-pipeline"},
			"body": {"msg": {"version": "0.2.0"}}
		}`),
	}

	raw, err := decodeFrame("umb.eng.ci", m)
	require.NoError(t, err)
	assert.Equal(t, "/topic/VirtualTopic.eng.ci.baseos-ci.brew-build.test.complete", raw.Topic)
	assert.Equal(t, "ID:abc-1", raw.ID())
	assert.Equal(t, "osci-pipeline", raw.Header("JMSXUserID"))
	assert.Equal(t, map[string]interface{}{"version": "0.2.0"}, raw.Msg())
}

func TestDecodeFrameFallbacks(t *testing.T) {
	m := kafka.Message{
		Value: []byte(`{"body": {"msg": {}}}`),
		Headers: []kafka.Header{
			{Key: "message-id", Value: []byte("ID:from-kafka")},
		},
	}

	raw, err := decodeFrame("umb.eng.ci", m)
	require.NoError(t, err)

	// The Kafka topic and record headers fill in what the frame lacks.
	assert.Equal(t, "umb.eng.ci", raw.Topic)
	assert.Equal(t, "ID:from-kafka", raw.ID())
}

func TestDecodeFrameInvalidJSON(t *testing.T) {
	_, err := decodeFrame("umb.eng.ci", kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
