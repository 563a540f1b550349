package updater

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultsink/internal/constants"
	"resultsink/internal/logger"
	"resultsink/internal/umb"
)

func TestSerializeData(t *testing.T) {
	data := serializeData(map[string]interface{}{
		"item": "setup-2.8.71-10.el7_5",
		"recipients": []interface{}{
			"alice",
			map[string]interface{}{"irc": "bob"},
		},
		"products": map[string]interface{}{"nvr": "RHEL-8.0.0"},
		"count":    3,
	})

	assert.Equal(t, "setup-2.8.71-10.el7_5", data["item"])
	assert.Equal(t, []interface{}{"alice", `{"irc":"bob"}`}, data["recipients"])
	assert.Equal(t, `{"nvr":"RHEL-8.0.0"}`, data["products"])
	assert.Equal(t, 3, data["count"])
}

func TestCropDataLongString(t *testing.T) {
	long := strings.Repeat("x", constants.MaxResultDataSize+100)
	data := map[string]interface{}{"log": long}

	err := cropData(context.Background(), logger.NopLogger(), data)
	require.NoError(t, err)

	cropped := data["log"].(string)
	assert.Len(t, cropped, constants.MaxResultDataSize)
	assert.True(t, strings.HasSuffix(cropped, "..."))
}

func TestCropDataShortValuesUntouched(t *testing.T) {
	data := map[string]interface{}{
		"item": "setup-2.8.71-10.el7_5",
		"list": []interface{}{"a", "b"},
	}

	err := cropData(context.Background(), logger.NopLogger(), data)
	require.NoError(t, err)
	assert.Equal(t, "setup-2.8.71-10.el7_5", data["item"])
	assert.Equal(t, []interface{}{"a", "b"}, data["list"])
}

func TestCropDataOversizedListItem(t *testing.T) {
	data := map[string]interface{}{
		"recipients": []interface{}{strings.Repeat("x", constants.MaxResultDataSize+1)},
	}

	err := cropData(context.Background(), logger.NopLogger(), data)
	require.Error(t, err)
	assert.True(t, umb.IsInvalidMessage(err))
}

func TestCropDataOversizedScalar(t *testing.T) {
	data := map[string]interface{}{
		"blob": map[string]interface{}{"payload": strings.Repeat("x", constants.MaxResultDataSize+1)},
	}

	err := cropData(context.Background(), logger.NopLogger(), data)
	require.Error(t, err)
	assert.True(t, umb.IsInvalidMessage(err))
}

func TestTruncated(t *testing.T) {
	assert.Equal(t, "abc", truncated("abc", 5))
	assert.Equal(t, "abcde", truncated("abcdefgh", 5))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "plain", stringify("plain"))
	assert.Equal(t, "42", stringify(42))
}
