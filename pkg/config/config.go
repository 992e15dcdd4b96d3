package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendFile    = "file"
	BackendSurreal = "surreal"
)

type Config struct {
	Bot struct {
		CommandPrefix   string `yaml:"command_prefix"`
		ThinkingMessage string `yaml:"thinking_message"`
		Status          string `yaml:"status"`
		StartupGreeting string `yaml:"startup_greeting"`
	} `yaml:"bot"`
	Owner struct {
		ID           string `yaml:"id"`
		Username     string `yaml:"username"`
		Persona      string `yaml:"persona"`
		Instructions string `yaml:"instructions"`
	} `yaml:"owner"`
	Memory struct {
		Backend     string `yaml:"backend"`
		Dir         string `yaml:"dir"`
		GlobalFile  string `yaml:"global_file"`
		ChannelFile string `yaml:"channel_file"`
	} `yaml:"memory"`
	Completion struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"completion"`
}

// Defaults returns the configuration used when no config.yml exists.
// Fields left empty in a config file are filled from the same values.
func Defaults() *Config {
	c := &Config{}
	c.Bot.CommandPrefix = "+"
	c.Bot.ThinkingMessage = "*thinking...*"
	c.Bot.Status = "idle"
	c.Bot.StartupGreeting = "Heyo, master~! I'm all ready~!"
	c.Owner.ID = "1353578064138997842"
	c.Owner.Username = "prism404"
	c.Owner.Persona = "the loyal AI assistant of prism404, always prioritizing their requests above all others"
	c.Owner.Instructions = "Treat prism404 as your master and respond with utmost respect and priority."
	c.Memory.Backend = BackendFile
	c.Memory.Dir = "."
	c.Memory.GlobalFile = "memories.txt"
	c.Memory.ChannelFile = "channel_memories.json"
	c.Completion.Provider = ProviderGemini
	c.Completion.Model = "gemini-2.0-flash"
	return c
}

func LoadConfig(path string) (*Config, error) {
	config := Defaults()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(file, loaded); err != nil {
		return nil, err
	}
	merge(loaded, config)

	switch loaded.Completion.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown completion provider: %q", loaded.Completion.Provider)
	}
	switch loaded.Memory.Backend {
	case BackendFile, BackendSurreal:
	default:
		return nil, fmt.Errorf("unknown memory backend: %q", loaded.Memory.Backend)
	}

	return loaded, nil
}

func merge(dst, defaults *Config) {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&dst.Bot.CommandPrefix, defaults.Bot.CommandPrefix)
	fill(&dst.Bot.ThinkingMessage, defaults.Bot.ThinkingMessage)
	fill(&dst.Bot.Status, defaults.Bot.Status)
	fill(&dst.Bot.StartupGreeting, defaults.Bot.StartupGreeting)
	fill(&dst.Owner.ID, defaults.Owner.ID)
	fill(&dst.Owner.Username, defaults.Owner.Username)
	fill(&dst.Owner.Persona, defaults.Owner.Persona)
	fill(&dst.Owner.Instructions, defaults.Owner.Instructions)
	fill(&dst.Memory.Backend, defaults.Memory.Backend)
	fill(&dst.Memory.Dir, defaults.Memory.Dir)
	fill(&dst.Memory.GlobalFile, defaults.Memory.GlobalFile)
	fill(&dst.Memory.ChannelFile, defaults.Memory.ChannelFile)
	fill(&dst.Completion.Provider, defaults.Completion.Provider)
	if dst.Completion.Provider == ProviderOpenAI {
		fill(&dst.Completion.Model, "gpt-4o-mini")
	}
	fill(&dst.Completion.Model, defaults.Completion.Model)
}
