package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipsight/internal/config"
)

func TestSetupLevelAndFormat(t *testing.T) {
	entry := Setup(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NotNil(t, entry)

	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	_, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok, "json format selects the JSON formatter")
}

func TestSetupInvalidLevelFallsBack(t *testing.T) {
	Setup(config.LoggingConfig{Level: "chatty", Format: "text"})

	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	_, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
