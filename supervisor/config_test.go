package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_MatchesCLIDefaults(t *testing.T) {
	cfg := DefaultConfig("/path/to/target")
	assert.Equal(t, "/path/to/target", cfg.Target)
	assert.Equal(t, DefaultShmPath, cfg.ShmPath)
	assert.Equal(t, DefaultMaximumTestBytes, cfg.MaximumTestBytes)
	assert.Zero(t, cfg.Seed)
}
