package config

import (
	"fmt"
	"os"
	"strings"
)

// RoutedModel is the result of resolving --provider/--model against the
// prefix rules and credential environment of spec.md §6.
type RoutedModel struct {
	Provider string
	Model    string
}

// RouteModel applies spec.md §6's provider-routing table. provider/model are
// the raw --provider/--model flag values (possibly empty).
func RouteModel(provider, model string) (RoutedModel, error) {
	switch {
	case strings.HasPrefix(model, "claude"):
		return RoutedModel{Provider: "anthropic", Model: model}, nil
	case strings.HasPrefix(model, "gpt"):
		return RoutedModel{Provider: "openai", Model: model}, nil
	case strings.HasPrefix(model, "mistral"):
		return RoutedModel{Provider: "mistral", Model: model}, nil
	case strings.HasPrefix(model, "cerebras:"):
		return RoutedModel{Provider: "cerebras", Model: strings.TrimPrefix(model, "cerebras:")}, nil
	case strings.HasPrefix(model, "vercel:"):
		return RoutedModel{Provider: "vercel", Model: strings.TrimPrefix(model, "vercel:")}, nil
	case strings.HasPrefix(model, "bu-"):
		return RoutedModel{Provider: "browser-use", Model: model}, nil
	case strings.HasPrefix(model, "oci:"):
		return RoutedModel{}, fmt.Errorf("config: oci models require explicit provider configuration")
	}

	switch provider {
	case "aws", "oci":
		if model == "" {
			return RoutedModel{}, fmt.Errorf("config: --provider %s requires an explicit --model", provider)
		}
		return RoutedModel{Provider: provider, Model: model}, nil
	case "":
		// fall through to credential-based default below
	default:
		if model != "" {
			return RoutedModel{Provider: provider, Model: model}, nil
		}
		return RoutedModel{Provider: provider, Model: defaultModelFor(provider)}, nil
	}

	if model != "" {
		return RoutedModel{Provider: inferProviderFromCredentials(), Model: model}, nil
	}
	if hasAnyCredential() {
		return RoutedModel{Provider: inferProviderFromCredentials(), Model: defaultModelFor(inferProviderFromCredentials())}, nil
	}
	return RoutedModel{Provider: "ollama", Model: "qwen2.5:latest"}, nil
}

// BaseURL returns the OpenAI-compatible chat-completions endpoint for a
// routed provider. Providers without an OpenAI-compatible surface
// (anthropic, aws, oci) are not covered here; the CLI only wires
// OpenAIClient for the providers this returns a non-empty URL for.
func BaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com"
	case "cerebras":
		return "https://api.cerebras.ai"
	case "vercel":
		return "https://api.v0.dev"
	case "browser-use":
		return "https://api.browser-use.com"
	case "ollama":
		if h := os.Getenv("OLLAMA_HOST"); h != "" {
			return h
		}
		return "http://localhost:11434"
	default:
		return ""
	}
}

func defaultModelFor(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-3-7-sonnet-latest"
	case "openai":
		return "gpt-4o"
	case "mistral":
		return "mistral-large-latest"
	case "cerebras":
		return "llama3.1-70b"
	case "vercel":
		return "v0-1.0-md"
	case "browser-use":
		return "bu-1"
	case "ollama":
		return "qwen2.5:latest"
	default:
		return ""
	}
}

// credentialEnvVars maps each provider to the environment variable whose
// presence signals usable credentials (spec.md §6's env var list).
var credentialEnvVars = []struct {
	provider string
	env      string
}{
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"openai", "OPENAI_API_KEY"},
	{"google", "GOOGLE_API_KEY"},
	{"deepseek", "DEEPSEEK_API_KEY"},
	{"groq", "GROQ_API_KEY"},
	{"openrouter", "OPENROUTER_API_KEY"},
	{"azure", "AZURE_OPENAI_API_KEY"},
	{"mistral", "MISTRAL_API_KEY"},
	{"cerebras", "CEREBRAS_API_KEY"},
	{"vercel", "VERCEL_API_KEY"},
	{"browser-use", "BROWSER_USE_API_KEY"},
}

// APIKey returns the credential environment variable's value for provider,
// or "" if unset/unknown (e.g. a local Ollama needs none).
func APIKey(provider string) string {
	for _, c := range credentialEnvVars {
		if c.provider == provider {
			return os.Getenv(c.env)
		}
	}
	return ""
}

func hasAnyCredential() bool {
	return inferProviderFromCredentials() != ""
}

func inferProviderFromCredentials() string {
	for _, c := range credentialEnvVars {
		if os.Getenv(c.env) != "" {
			return c.provider
		}
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" || os.Getenv("AWS_PROFILE") != "" {
		return "aws"
	}
	return ""
}
