package provider

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tuning := SharedTuning{MaxTokens: 4096, Temperature: 0.8}

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── Claude ────────────────────────────────────────────────────────────
		{
			name: "claude/valid",
			cfg: Config{
				Backend: BackendClaude,
				Claude:  ProviderClaude{APIKey: "sk-ant-test", Model: "claude-3-5-sonnet-latest"},
				Tuning:  tuning,
			},
		},
		{
			name:    "claude/missing api key",
			cfg:     Config{Backend: BackendClaude, Claude: ProviderClaude{Model: "claude-3-5-sonnet-latest"}, Tuning: tuning},
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "claude/missing model",
			cfg:     Config{Backend: BackendClaude, Claude: ProviderClaude{APIKey: "sk-ant-test"}, Tuning: tuning},
			wantErr: "MODEL_NAME",
		},

		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg: Config{
				Backend: BackendOpenAI,
				OpenAI:  ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o"},
				Tuning:  tuning,
			},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o"}, Tuning: tuning},
			wantErr: "OPENAI_API_KEY",
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: Config{
				Backend: BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{
					APIKey:     "key",
					Endpoint:   "https://my.openai.azure.com",
					Deployment: "gpt-4o",
					APIVersion: "2024-02-01",
				},
				Tuning: tuning,
			},
		},
		{
			name: "azure/missing endpoint",
			cfg: Config{
				Backend:     BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{APIKey: "key", Deployment: "gpt-4o"},
				Tuning:      tuning,
			},
			wantErr: "AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{
				Backend:     BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{APIKey: "key", Endpoint: "https://my.openai.azure.com"},
				Tuning:      tuning,
			},
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},

		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg: Config{
				Backend: BackendOllama,
				Ollama:  ProviderOllama{Host: "http://localhost:11434", Model: "llama3"},
				Tuning:  tuning,
			},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}, Tuning: tuning},
			wantErr: "OLLAMA_MODEL",
		},

		// ── Gemini ────────────────────────────────────────────────────────────
		{
			name: "gemini/valid",
			cfg: Config{
				Backend: BackendGemini,
				Gemini:  ProviderGemini{APIKey: "key", Model: "gemini-1.5-pro"},
				Tuning:  tuning,
			},
		},
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-1.5-pro"}, Tuning: tuning},
			wantErr: "GOOGLE_API_KEY",
		},

		// ── Ark ───────────────────────────────────────────────────────────────
		{
			name: "ark/valid",
			cfg: Config{
				Backend: BackendArk,
				Ark:     ProviderArk{APIKey: "key", Model: "ep-test"},
				Tuning:  tuning,
			},
		},
		{
			name:    "ark/missing model",
			cfg:     Config{Backend: BackendArk, Ark: ProviderArk{APIKey: "key"}, Tuning: tuning},
			wantErr: "ARK_MODEL",
		},

		// ── Shared ────────────────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     Config{Backend: Backend("bogus"), Tuning: tuning},
			wantErr: "unknown backend",
		},
		{
			name: "zero max tokens",
			cfg: Config{
				Backend: BackendClaude,
				Claude:  ProviderClaude{APIKey: "k", Model: "m"},
				Tuning:  SharedTuning{MaxTokens: 0, Temperature: 0.8},
			},
			wantErr: "MODEL_MAX_TOKENS",
		},
		{
			name: "temperature out of range",
			cfg: Config{
				Backend: BackendClaude,
				Claude:  ProviderClaude{APIKey: "k", Model: "m"},
				Tuning:  SharedTuning{MaxTokens: 4096, Temperature: 1.5},
			},
			wantErr: "MODEL_TEMPERATURE",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() = %q, want it to mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}
