package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultsink/internal/logger"
	"resultsink/internal/umb"
)

func newCIMessage(topic string, body map[string]interface{}) *umb.Message {
	raw := umb.RawMessage{
		Topic: topic,
		Body:  map[string]interface{}{"msg": body},
	}
	return umb.Parse(raw, logger.NopLogger())
}

func TestBrewBuildData(t *testing.T) {
	tests := []struct {
		name        string
		scratch     interface{}
		wantType    string
		wantScratch bool
	}{
		{
			name:        "regular build",
			scratch:     false,
			wantType:    "brew-build",
			wantScratch: false,
		},
		{
			name:        "scratch build",
			scratch:     true,
			wantType:    "brew-build_scratch",
			wantScratch: true,
		},
		{
			name:        "string boolean scratch",
			scratch:     "true",
			wantType:    "brew-build_scratch",
			wantScratch: true,
		},
		{
			name:        "string boolean uppercase",
			scratch:     "True",
			wantType:    "brew-build_scratch",
			wantScratch: true,
		},
		{
			name:        "string boolean false",
			scratch:     "false",
			wantType:    "brew-build",
			wantScratch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := newCIMessage("/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
				map[string]interface{}{
					"version": "0.2.0",
					"artifact": map[string]interface{}{
						"type":      "brew-build",
						"nvr":       "setup-2.8.71-10.el7_5",
						"component": "setup",
						"id":        123456,
						"scratch":   tt.scratch,
					},
					"run":  map[string]interface{}{"log": "https://jenkins.local/1/console"},
					"test": map[string]interface{}{"category": "functional"},
				})

			data, err := buildArtifactData(msg, "brew-build")
			require.NoError(t, err)
			assert.Equal(t, "setup-2.8.71-10.el7_5", data["item"])
			assert.Equal(t, tt.wantType, data["type"])
			assert.Equal(t, tt.wantScratch, data["scratch"])
			assert.Equal(t, "setup", data["component"])
			assert.Equal(t, 123456, data["brew_task_id"])
		})
	}
}

func TestBrewBuildDataOmitsNullFields(t *testing.T) {
	msg := newCIMessage("/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
		map[string]interface{}{
			"version": "0.2.0",
			"artifact": map[string]interface{}{
				"type":      "brew-build",
				"nvr":       "setup-2.8.71-10.el7_5",
				"component": "setup",
				"issuer":    nil,
			},
			"run":  map[string]interface{}{"log": "https://jenkins.local/1/console"},
			"test": map[string]interface{}{"category": "functional"},
		})

	data, err := buildArtifactData(msg, "brew-build")
	require.NoError(t, err)
	assert.NotContains(t, data, "issuer")
	assert.NotContains(t, data, "brew_task_id")
	assert.NotContains(t, data, "system_os")
}

func TestRedHatModuleData(t *testing.T) {
	msg := newCIMessage("/topic/VirtualTopic.eng.ci.baseos-ci.redhat-module.test.complete",
		map[string]interface{}{
			"version": "0.2.0",
			"artifact": map[string]interface{}{
				"type":    "redhat-module",
				"nsvc":    "rust-toolset:rhel-8:20181010170614:b09eea91",
				"context": "b09eea91",
				"name":    "rust-toolset",
				"stream":  "rhel-8",
				"version": "20181010170614",
			},
			"run":  map[string]interface{}{"log": "https://jenkins.local/1/console"},
			"test": map[string]interface{}{"category": "functional"},
		})

	data, err := buildArtifactData(msg, "redhat-module")
	require.NoError(t, err)

	// Stream dashes become underscores, matching the koji import.
	assert.Equal(t, "rust-toolset-rhel_8-20181010170614.b09eea91", data["item"])
	assert.Equal(t, data["item"], data["nsvc"])
	assert.Equal(t, "redhat-module", data["type"])
	assert.Equal(t, "rhel-8", data["stream"])
}

func TestRedHatModuleDataInvalidNSVC(t *testing.T) {
	msg := newCIMessage("/topic/VirtualTopic.eng.ci.baseos-ci.redhat-module.test.complete",
		map[string]interface{}{
			"version": "0.2.0",
			"artifact": map[string]interface{}{
				"type": "redhat-module",
				"nsvc": "rust-toolset-rhel-8", // no colons
			},
		})

	_, err := buildArtifactData(msg, "redhat-module")
	require.Error(t, err)
	assert.True(t, umb.IsInvalidMessage(err))
}

func TestComposeData(t *testing.T) {
	msg := newCIMessage("/topic/VirtualTopic.eng.ci.rtt.productmd-compose.test.complete",
		map[string]interface{}{
			"version": "0.2.0",
			"artifact": map[string]interface{}{
				"type":       "productmd-compose",
				"compose_id": "RHEL-8.0.0-20181113.2",
			},
			"system": []interface{}{
				map[string]interface{}{"architecture": "x86_64", "provider": "beaker"},
			},
			"run":  map[string]interface{}{"log": "https://jenkins.local/1/console"},
			"test": map[string]interface{}{"category": "validation"},
		})

	data, err := buildArtifactData(msg, "productmd-compose")
	require.NoError(t, err)
	assert.Equal(t, "RHEL-8.0.0-20181113.2/unknown/x86_64", data["item"])
	assert.Equal(t, "RHEL-8.0.0-20181113.2", data["productmd.compose.id"])
	assert.Equal(t, "beaker", data["system_provider"])
	assert.NotContains(t, data, "system_variant")
}

func TestComposeDataPrefersArtifactID(t *testing.T) {
	msg := newCIMessage("/topic/VirtualTopic.eng.ci.rtt.productmd-compose.test.complete",
		map[string]interface{}{
			"version": "0.2.0",
			"artifact": map[string]interface{}{
				"type":       "productmd-compose",
				"id":         "RHEL-8.0.0-20181ask113.3",
				"compose_id": "deprecated",
			},
			"system": map[string]interface{}{
				"architecture": "ppc64le",
				"variant":      "BaseOS",
			},
			"run":  map[string]interface{}{"log": "https://jenkins.local/1/console"},
			"test": map[string]interface{}{"category": "validation"},
		})

	data, err := buildArtifactData(msg, "productmd-compose")
	require.NoError(t, err)
	assert.Equal(t, "RHEL-8.0.0-20181ask113.3/BaseOS/ppc64le", data["item"])
}

func TestProductScenarioData(t *testing.T) {
	msg := newCIMessage("/topic/VirtualTopic.eng.ci.rtt.product-scenario.test.complete",
		map[string]interface{}{
			"version": "0.2.0",
			"artifact": map[string]interface{}{
				"type": "product-scenario",
				"id":   "sap-hana",
				"products": []interface{}{
					map[string]interface{}{"nvr": "RHEL-8.0.0-20181113.2"},
					map[string]interface{}{"id": "sap-hana-2.0"},
				},
			},
			"run":  map[string]interface{}{"log": "https://jenkins.local/1/console"},
			"test": map[string]interface{}{"category": "interoperability"},
		})

	data, err := buildArtifactData(msg, "product-scenario")
	require.NoError(t, err)
	assert.Equal(t,
		[]interface{}{"sap-hana", "RHEL-8.0.0-20181113.2", "sap-hana-2.0"},
		data["item"])

	products := data["products"].([]interface{})
	require.Len(t, products, 2)
	assert.JSONEq(t, `{"nvr":"RHEL-8.0.0-20181113.2"}`, products[0].(string))
}

func TestBuildArtifactDataUnknownType(t *testing.T) {
	msg := newCIMessage("/topic/VirtualTopic.eng.ci.osci.brew-build.test.complete",
		map[string]interface{}{
			"artifact": map[string]interface{}{"type": "mystery"},
		})

	_, err := buildArtifactData(msg, "mystery")
	require.Error(t, err)
	assert.True(t, umb.IsInvalidMessage(err))
}
