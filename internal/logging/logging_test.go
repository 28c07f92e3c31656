package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLevels(t *testing.T) {
	cases := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{" WARN ", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"loud", logrus.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ConfigureTo(&bytes.Buffer{}, tc.in, "text").GetLevel())
		})
	}
}

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	log := ConfigureTo(&buf, "info", "JSON")
	log.WithField("rundown_id", 7).Info("item added")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "item added", line["msg"])
	assert.EqualValues(t, 7, line["rundown_id"])
}

func TestConfigureTextDefault(t *testing.T) {
	var buf bytes.Buffer
	ConfigureTo(&buf, "info", "yaml").Info("hello")
	assert.Contains(t, buf.String(), `msg=hello`)
}
