package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultsink/internal/umb"
)

func TestNamespaceFromTopic(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{
			name:  "new scheme topic",
			topic: "/topic/VirtualTopic.eng.ci.baseos-ci.brew-build.test.complete",
			want:  "baseos-ci",
		},
		{
			name:  "old scheme topic without namespace",
			topic: "/topic/VirtualTopic.eng.ci.brew-build.test.complete",
			want:  "",
		},
		{
			name:  "unrelated topic",
			topic: "/topic/VirtualTopic.qe.ci.jenkins",
			want:  "",
		},
		{
			name:  "too many components",
			topic: "/topic/VirtualTopic.eng.ci.a.b.c.d.complete",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NamespaceFromTopic(tt.topic))
		})
	}
}

func TestNamespaceFromTestcaseName(t *testing.T) {
	assert.Equal(t, "baseos-ci", NamespaceFromTestcaseName("baseos-ci.brew-build.tier1.functional"))
	assert.Equal(t, "plain", NamespaceFromTestcaseName("plain"))
}

func TestVerifyTopicAndTestcaseName(t *testing.T) {
	t.Run("matching namespaces", func(t *testing.T) {
		err := VerifyTopicAndTestcaseName(
			"/topic/VirtualTopic.eng.ci.baseos-ci.redhat-module.test.complete",
			"baseos-ci.redhat-module.tier1.functional",
		)
		assert.NoError(t, err)
	})

	t.Run("old topic scheme is tolerable", func(t *testing.T) {
		err := VerifyTopicAndTestcaseName(
			"/topic/VirtualTopic.eng.ci.redhat-module.test.complete",
			"baseos-ci.redhat-module.tier1.functional",
		)
		require.Error(t, err)
		var missing *umb.MissingTopicError
		assert.ErrorAs(t, err, &missing)
	})

	t.Run("namespace disagreement is a hard failure", func(t *testing.T) {
		err := VerifyTopicAndTestcaseName(
			"/topic/VirtualTopic.eng.ci.osci.redhat-module.test.complete",
			"baseos-ci.redhat-module.tier1.functional",
		)
		require.Error(t, err)
		var mismatch *umb.TopicMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})
}
