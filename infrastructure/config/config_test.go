package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, "engram", cfg.JWTIssuer)
	assert.InDelta(t, 2.0, cfg.AICostMultiplier, 0.0001)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "dynamodb")
	t.Setenv("TABLE_NAME", "engram-prod")
	t.Setenv("AI_MAX_TOKENS", "2048")
	t.Setenv("ENABLE_CORS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendDynamoDB, cfg.StorageBackend)
	assert.Equal(t, "engram-prod", cfg.DynamoDBTable)
	assert.Equal(t, 2048, cfg.AIRequestLimit)
	assert.False(t, cfg.EnableCORS)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "memory backend in development",
			cfg:  Config{Environment: "development", StorageBackend: BackendMemory},
		},
		{
			name:    "unknown backend",
			cfg:     Config{Environment: "development", StorageBackend: "postgres"},
			wantErr: "unknown storage backend",
		},
		{
			name:    "production requires a JWT secret",
			cfg:     Config{Environment: "production", StorageBackend: BackendMemory},
			wantErr: "JWT_SECRET",
		},
		{
			name: "production requires a table for dynamodb",
			cfg: Config{
				Environment:    "production",
				StorageBackend: BackendDynamoDB,
				JWTSecret:      "secret",
			},
			wantErr: "DYNAMODB_TABLE",
		},
		{
			name: "production dynamodb fully configured",
			cfg: Config{
				Environment:    "production",
				StorageBackend: BackendDynamoDB,
				JWTSecret:      "secret",
				DynamoDBTable:  "engram",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
