// Package config loads foliorank configuration from a JSON file backend
// with environment-variable overrides.
package config

type Config struct {
	Server   ServerConfig
	Ollama   OllamaConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Matching MatchingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string // optional; empty disables API auth
}

type OllamaConfig struct {
	BaseURL    string
	EmbedModel string
}

type GeminiConfig struct {
	APIKey string // secret, environment only
	Model  string
}

type StorageConfig struct {
	DataDir string
}

type MatchingConfig struct {
	TopK int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			EmbedModel: "all-minilm",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Matching: MatchingConfig{
			TopK: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/foliorank/config.json, then applies FOLIORANK_*
// environment overrides. Secrets (the Gemini API key, the API token) are
// read from the environment only. A missing Gemini key is not an error;
// matching degrades to raw-text queries without it.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}
