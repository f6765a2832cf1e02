package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DEBUG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Port)
	require.False(t, cfg.Debug)
	require.Equal(t, ":8000", cfg.Addr())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Port)
	require.True(t, cfg.Debug)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", "PORT", "eight"},
		{"port zero", "PORT", "0"},
		{"port too large", "PORT", "70000"},
		{"port negative", "PORT", "-1"},
		{"debug not a bool", "DEBUG", "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PORT", "")
			t.Setenv("DEBUG", "")
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
