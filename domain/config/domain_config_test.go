package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDomainConfig_EnvironmentPresets(t *testing.T) {
	prod := LoadDomainConfig("production")
	assert.Equal(t, 5000, prod.MaxNodesPerUser)
	assert.Equal(t, 10000, prod.MaxContentLength)
	assert.True(t, prod.ArchiveThreads)

	dev := LoadDomainConfig("development")
	assert.Equal(t, 100000, dev.MaxNodesPerUser)
	assert.Equal(t, 500000, dev.MaxEdgesPerUser)
	assert.InDelta(t, 0.3, dev.MinRememberConfidence, 1e-9)

	def := LoadDomainConfig("staging")
	assert.Equal(t, DefaultDomainConfig(), def)
}
