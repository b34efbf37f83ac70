package config

import (
	"os"
	"testing"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY",
		"GROQ_API_KEY", "OPENROUTER_API_KEY", "AZURE_OPENAI_API_KEY", "MISTRAL_API_KEY",
		"CEREBRAS_API_KEY", "VERCEL_API_KEY", "BROWSER_USE_API_KEY",
		"AWS_ACCESS_KEY_ID", "AWS_PROFILE",
	}
	for _, v := range vars {
		old := os.Getenv(v)
		os.Unsetenv(v)
		t.Cleanup(func(v, old string) func() {
			return func() {
				if old != "" {
					os.Setenv(v, old)
				}
			}
		}(v, old))
	}
}

func TestRouteModel_PrefixRules(t *testing.T) {
	clearProviderEnv(t)

	cases := []struct {
		model        string
		wantProvider string
		wantModel    string
	}{
		{"claude-3-7-sonnet", "anthropic", "claude-3-7-sonnet"},
		{"gpt-4o", "openai", "gpt-4o"},
		{"mistral-large-latest", "mistral", "mistral-large-latest"},
		{"cerebras:llama3.1-70b", "cerebras", "llama3.1-70b"},
		{"vercel:v0-1.0-md", "vercel", "v0-1.0-md"},
		{"bu-1", "browser-use", "bu-1"},
	}
	for _, c := range cases {
		got, err := RouteModel("", c.model)
		if err != nil {
			t.Errorf("RouteModel(%q): unexpected error %v", c.model, err)
			continue
		}
		if got.Provider != c.wantProvider || got.Model != c.wantModel {
			t.Errorf("RouteModel(%q) = %+v, want {%s %s}", c.model, got, c.wantProvider, c.wantModel)
		}
	}
}

func TestRouteModel_OCIModelRequiresExplicitConfig(t *testing.T) {
	clearProviderEnv(t)
	if _, err := RouteModel("", "oci:some-model"); err == nil {
		t.Error("RouteModel with oci: prefix: want error, got nil")
	}
}

func TestRouteModel_AWSAndOCIProviderRequireExplicitModel(t *testing.T) {
	clearProviderEnv(t)
	if _, err := RouteModel("aws", ""); err == nil {
		t.Error("RouteModel(--provider aws, no model): want error, got nil")
	}
	if _, err := RouteModel("oci", ""); err == nil {
		t.Error("RouteModel(--provider oci, no model): want error, got nil")
	}
	got, err := RouteModel("aws", "my-bedrock-model")
	if err != nil || got.Provider != "aws" || got.Model != "my-bedrock-model" {
		t.Errorf("RouteModel(aws, my-bedrock-model) = %+v, %v", got, err)
	}
}

func TestRouteModel_NoCredentialsNoModelDefaultsToOllama(t *testing.T) {
	clearProviderEnv(t)
	got, err := RouteModel("", "")
	if err != nil {
		t.Fatalf("RouteModel(\"\", \"\"): unexpected error %v", err)
	}
	if got.Provider != "ollama" || got.Model != "qwen2.5:latest" {
		t.Errorf("RouteModel(\"\", \"\") = %+v, want {ollama qwen2.5:latest}", got)
	}
}

func TestRouteModel_ProviderGivenNoModelUsesProviderDefault(t *testing.T) {
	clearProviderEnv(t)
	got, err := RouteModel("openai", "")
	if err != nil {
		t.Fatalf("RouteModel(openai, \"\"): unexpected error %v", err)
	}
	if got.Provider != "openai" || got.Model == "" {
		t.Errorf("RouteModel(openai, \"\") = %+v, want a non-empty default model", got)
	}
}
