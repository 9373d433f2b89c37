package config

import (
	"os"
	"path/filepath"
	"testing"

	"dayflow/internal/provider"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "PERPLEXITY_API_KEY"} {
		t.Setenv(v, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Keys.OpenAI != "env-key" {
		t.Errorf("openai key = %q, want the env value", cfg.Keys.OpenAI)
	}
	if cfg.DBPath == "" {
		t.Error("default db path must be set")
	}
}

func TestLoad_FileValuesWinOverEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	path := writeConfig(t, `
provider: anthropic
model: claude-3-5-haiku-latest
keys:
  anthropic: file-key
memory:
  max_bytes: 8000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Keys.Anthropic != "file-key" {
		t.Errorf("anthropic key = %q, file value must win", cfg.Keys.Anthropic)
	}
	if cfg.Memory.MaxBytes != 8000 {
		t.Errorf("memory.max_bytes = %d", cfg.Memory.MaxBytes)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "provider: [unclosed")

	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml must fail")
	}
}

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		want    provider.Provider
		wantErr bool
	}{
		{
			name: "explicit provider wins",
			cfg:  Config{Provider: "gemini", Keys: Keys{Anthropic: "k"}},
			want: provider.ProviderGemini,
		},
		{
			name:    "explicit but unknown provider",
			cfg:     Config{Provider: "cohere"},
			wantErr: true,
		},
		{
			name: "anthropic key preferred",
			cfg:  Config{Keys: Keys{Anthropic: "a", OpenAI: "o", Gemini: "g"}},
			want: provider.ProviderAnthropic,
		},
		{
			name: "openai before gemini",
			cfg:  Config{Keys: Keys{OpenAI: "o", Gemini: "g"}},
			want: provider.ProviderOpenAI,
		},
		{
			name: "gemini last",
			cfg:  Config{Keys: Keys{Gemini: "g"}},
			want: provider.ProviderGemini,
		},
		{
			name:    "no keys",
			cfg:     Config{},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.DetectProvider()
			if tc.wantErr {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("provider = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDefaultModel(t *testing.T) {
	if m := DefaultModel(provider.ProviderOpenAI); m != "gpt-4o-mini" {
		t.Errorf("openai default = %q", m)
	}
	if m := DefaultModel(provider.Provider("unknown")); m != "" {
		t.Errorf("unknown provider default = %q", m)
	}
}
