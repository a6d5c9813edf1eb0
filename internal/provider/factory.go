package provider

import "fmt"

const (
	APIOpenAI    = "openai-completions"
	APIAnthropic = "anthropic-messages"
)

// Config mirrors config.LLMConfig to avoid circular imports.
type Config struct {
	ID      string
	BaseURL string
	APIKey  string
	API     string
	Model   string
}

// FromConfig creates a Provider from a config entry. The api field
// determines which wire format to use:
//   - "anthropic-messages"  -> Anthropic Messages API (default)
//   - "openai-completions"  -> OpenAI-compatible (OpenAI, Ollama, vLLM, etc.)
func FromConfig(cfg Config) (Provider, error) {
	id := cfg.ID
	switch cfg.API {
	case APIAnthropic, "":
		if id == "" {
			id = "anthropic"
		}
		return NewAnthropicProvider(id, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case APIOpenAI:
		if id == "" {
			id = "openai"
		}
		return NewOpenAIProvider(id, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown api type %q for provider %q (supported: %s, %s)",
			cfg.API, cfg.ID, APIAnthropic, APIOpenAI)
	}
}
