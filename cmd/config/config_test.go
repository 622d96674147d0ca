package config

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(func() {
		viper.Reset()
		ProjectOverride = ""
	})
	t.Setenv("HOME", t.TempDir())
	InitConfig()
}

func TestLoadDefaults(t *testing.T) {
	setup(t)
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", s.ServerURL)
	assert.Equal(t, "editor", s.View)
	assert.Equal(t, 4, s.ReloadConcurrency)
	assert.Equal(t, "", s.Project)
}

func TestLoadEnvAndOverride(t *testing.T) {
	setup(t)
	t.Setenv("HED_PROJECT", "demo")
	t.Setenv("HED_LOG_LEVEL", "debug")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "demo", s.Project)
	assert.Equal(t, logrus.DebugLevel, NewLogger(s).GetLevel())

	ProjectOverride = "other"
	s, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "other", s.Project)
}

func TestLoadRejectsInvalid(t *testing.T) {
	setup(t)
	viper.Set("log_level", "loud")
	_, err := Load()
	assert.Error(t, err)
}

func TestInitServiceRequiresProject(t *testing.T) {
	setup(t)
	s, err := Load()
	require.NoError(t, err)
	_, _, err = InitService(s, NewClient(s, NewLogger(s)), NewLogger(s))
	assert.Error(t, err)
}

func TestInitService(t *testing.T) {
	setup(t)
	viper.Set("data_dir", filepath.Join(t.TempDir(), "data"))
	viper.Set("project", "demo")
	s, err := Load()
	require.NoError(t, err)

	logger := NewLogger(s)
	svc, closeFn, err := InitService(s, NewClient(s, logger), logger)
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, "demo", svc.Config.Project)
}
