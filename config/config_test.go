package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultHasNonZeroSelf(t *testing.T) {
	c := Default()
	self, err := c.Self()
	assert.NoError(t, err)
	assert.False(t, self.IsZero())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv(DirEnvVar, t.TempDir())

	original := Default()
	original.BagSize = 7
	assert.NoError(t, original.Save())

	loaded := &Config{}
	assert.NoError(t, loaded.Load())
	assert.Equal(t, 7, loaded.BagSize)
	assert.Equal(t, original.savedConfig.Self, loaded.savedConfig.Self)
}

func TestLoadWithoutExistingFileFallsBackToDefault(t *testing.T) {
	t.Setenv(DirEnvVar, t.TempDir())

	c := &Config{}
	assert.NoError(t, c.Load())
	assert.Equal(t, 20, c.BagSize)
}
