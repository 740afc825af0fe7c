package config

import "os"

// applyEnvOverrides layers environment variables over the file config.
// GM_* variables win over provider-conventional ones, which win over
// the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GM_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("GM_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("GM_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("GM_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if os.Getenv("GM_DEBUG") == "1" {
		cfg.Logging.Debug = true
	}

	// API key precedence: explicit GM key, then the conventional
	// variable for the selected provider, then whatever the file had.
	if v := os.Getenv("GM_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	} else if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Name {
		case "anthropic":
			cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if v := os.Getenv("GM_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Embedding.GenAIAPIKey == "" {
		cfg.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" && cfg.Embedding.OllamaEndpoint == "" {
		cfg.Embedding.OllamaEndpoint = v
	}
}
