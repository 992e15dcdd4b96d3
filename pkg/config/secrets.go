package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Secrets holds values that must never live in config.yml.
type Secrets struct {
	DiscordToken  string
	GenerationKey string
	GuildID       string
	RedisURL      string
	Surreal       SurrealSecrets
}

type SurrealSecrets struct {
	Host      string
	User      string
	Pass      string
	Namespace string
	Database  string
}

// MissingEnvError names the first required variable that was not set.
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("Missing required environment variable: %s", e.Name)
}

// LoadDotEnv loads .env files when present. The environment wins over the file.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
}

// GenerationKeyEnv is the environment variable holding the API key for provider.
func GenerationKeyEnv(provider string) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// LoadSecrets reads the secrets required by cfg from the environment.
func LoadSecrets(cfg *Config) (*Secrets, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, &MissingEnvError{Name: "DISCORD_TOKEN"}
	}
	key := os.Getenv(GenerationKeyEnv(cfg.Completion.Provider))
	if key == "" {
		return nil, &MissingEnvError{Name: GenerationKeyEnv(cfg.Completion.Provider)}
	}

	s, err := LoadStorageSecrets(cfg)
	if err != nil {
		return nil, err
	}
	s.DiscordToken = token
	s.GenerationKey = key
	s.GuildID = os.Getenv("DISCORD_GUILD_ID")
	return s, nil
}

// LoadStorageSecrets reads only what the memory backend and cache need.
func LoadStorageSecrets(cfg *Config) (*Secrets, error) {
	s := &Secrets{RedisURL: os.Getenv("REDIS_URL")}
	if cfg.Memory.Backend == BackendSurreal {
		surreal, err := loadSurrealSecrets()
		if err != nil {
			return nil, err
		}
		s.Surreal = *surreal
	}
	return s, nil
}

func loadSurrealSecrets() (*SurrealSecrets, error) {
	s := &SurrealSecrets{
		Host:      os.Getenv("SURREAL_DB_HOST"),
		User:      os.Getenv("SURREAL_DB_USER"),
		Pass:      os.Getenv("SURREAL_DB_PASS"),
		Namespace: os.Getenv("SURREAL_DB_NAMESPACE"),
		Database:  os.Getenv("SURREAL_DB_DATABASE"),
	}
	for _, req := range []struct{ name, value string }{
		{"SURREAL_DB_HOST", s.Host},
		{"SURREAL_DB_USER", s.User},
		{"SURREAL_DB_PASS", s.Pass},
	} {
		if req.value == "" {
			return nil, &MissingEnvError{Name: req.name}
		}
	}
	if s.Namespace == "" {
		s.Namespace = "personabot"
	}
	if s.Database == "" {
		s.Database = "memory"
	}
	return s, nil
}
