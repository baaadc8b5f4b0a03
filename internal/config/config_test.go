package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/liora")
	t.Setenv("GEMINI_API_KEY", "key")
	for _, k := range []string{"LLM_PROVIDER", "LOG_LEVEL", "PORT", "MIGRATIONS_PATH", "INVITE_CODE_PREFIX", "TELEGRAM_TOKEN"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, "LIORA", cfg.InviteCodePrefix)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "key", cfg.LLM.APIKey)
	assert.Empty(t, cfg.TelegramToken)
}

func TestLoad_PipeShift(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/liora")
	t.Setenv("LLM_PROVIDER", "PipeShift")
	t.Setenv("PIPESHIFT_API_KEY", "ps")
	t.Setenv("INVITE_CODE_PREFIX", "fam")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderPipeShift, cfg.LLM.Provider)
	assert.Equal(t, "https://api.pipeshift.com/api/v0/", cfg.LLM.BaseURL)
	assert.Equal(t, "FAM", cfg.InviteCodePrefix)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing database",
			env:  map[string]string{"GEMINI_API_KEY": "key"},
			want: "DATABASE_URL",
		},
		{
			name: "missing provider key",
			env:  map[string]string{"DATABASE_URL": "x", "LLM_PROVIDER": "openai"},
			want: "OPENAI_API_KEY",
		},
		{
			name: "unknown provider",
			env:  map[string]string{"DATABASE_URL": "x", "LLM_PROVIDER": "llama"},
			want: "unsupported LLM_PROVIDER",
		},
		{
			name: "bad prefix",
			env:  map[string]string{"DATABASE_URL": "x", "ANTHROPIC_API_KEY": "k", "LLM_PROVIDER": "anthropic", "INVITE_CODE_PREFIX": "LI-1"},
			want: "INVITE_CODE_PREFIX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for _, k := range []string{"DATABASE_URL", "LLM_PROVIDER", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "INVITE_CODE_PREFIX"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
