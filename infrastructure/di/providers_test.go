package di

import (
	"testing"

	"engram/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func TestProvideDomainConfig_UsesEnvironmentPreset(t *testing.T) {
	domainCfg := ProvideDomainConfig(&config.Config{Environment: "production"})
	assert.Equal(t, 5000, domainCfg.MaxNodesPerUser)
	assert.True(t, domainCfg.ArchiveThreads)

	domainCfg = ProvideDomainConfig(&config.Config{Environment: "development"})
	assert.InDelta(t, 0.3, domainCfg.MinRememberConfidence, 1e-9)
}
