package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5678, cfg.RegistryPort)
	assert.Equal(t, "Database.json", cfg.DatabasePath)
	assert.Equal(t, 512, cfg.ReadBufferSize)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wqserver.yaml")
	data := "tcp_port: 9000\nnum_words: 8\ndictionary: words.txt\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.TCPPort)
	assert.Equal(t, 8, cfg.NumWords)
	assert.Equal(t, "words.txt", cfg.Dictionary)
	// Untouched fields keep their defaults.
	assert.Equal(t, 6001, cfg.UDPPort)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tcp_port: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFromArgsEmptyKeepsConfig(t *testing.T) {
	cfg, err := FromArgs(Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromArgs(t *testing.T) {
	cfg, err := FromArgs(Default(), []string{"6000", "6001", "2", "15", "3", "6"})
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.TCPPort)
	assert.Equal(t, 6001, cfg.UDPPort)
	assert.Equal(t, 2, cfg.MatchMinutes)
	assert.Equal(t, 15, cfg.InvitationSeconds)
	assert.Equal(t, 3, cfg.NumWords)
	assert.Equal(t, 6, cfg.Workers)
}

func TestFromArgsRejects(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"too few", []string{"6000"}},
		{"help flag", []string{"--help", "6001", "2", "15", "3", "6"}},
		{"not a number", []string{"x", "6001", "2", "15", "3", "6"}},
		{"privileged tcp port", []string{"80", "6001", "2", "15", "3", "6"}},
		{"privileged udp port", []string{"6000", "1024", "2", "15", "3", "6"}},
		{"zero match timer", []string{"6000", "6001", "0", "15", "3", "6"}},
		{"negative invitation", []string{"6000", "6001", "2", "-1", "3", "6"}},
		{"zero words", []string{"6000", "6001", "2", "15", "0", "6"}},
		{"too few workers", []string{"6000", "6001", "2", "15", "3", "3"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := FromArgs(Default(), c.args)
			assert.Error(t, err)
		})
	}
}
