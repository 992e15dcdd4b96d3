package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"personabot/pkg/bot"
	"personabot/pkg/cache"
	"personabot/pkg/compat"
	"personabot/pkg/config"
	"personabot/pkg/gemini"
	"personabot/pkg/memory"
	"personabot/pkg/prompt"
	"personabot/pkg/session"
	"personabot/pkg/surreal"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "personabot",
		Short:         "Discord bot that role-plays a per-channel persona",
		Long:          "personabot answers mentions and replies in character, using a persona and instructions set per channel plus global and channel memories.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg
			config.LoadDotEnv()
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runBot()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "config.yml", "path to config.yml")

	rootCmd.AddCommand(
		newRunCmd(a),
		newMemoryCmd(a),
		newPromptCmd(a),
	)

	return rootCmd
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve messages until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runBot()
		},
	}
}

func newMemoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and edit stored memories",
	}

	cmd.AddCommand(
		newMemoryAddCmd(a),
		newMemoryListCmd(a),
	)

	return cmd
}

func newMemoryAddCmd(a *app) *cobra.Command {
	var channelID string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Append a global memory, or a channel memory with --channel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("memory text is empty")
			}

			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			if channelID != "" {
				err = store.AppendChannel(channelID, text)
			} else {
				err = store.AppendGlobal(text)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "memory added")
			return nil
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "channel ID for a channel-specific memory")

	return cmd
}

func newMemoryListCmd(a *app) *cobra.Command {
	var channelID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List global memories, plus one channel's with --channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, prompt.GlobalMemoryHeader)
			for _, m := range store.GlobalMemories() {
				_, _ = fmt.Fprintf(out, "- %s\n", m)
			}
			if channelID != "" {
				_, _ = fmt.Fprintln(out, prompt.ChannelMemoryHeader)
				for _, m := range store.ChannelMemories(channelID) {
					_, _ = fmt.Fprintf(out, "- %s\n", m)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "also list this channel's memories")

	return cmd
}

func newPromptCmd(a *app) *cobra.Command {
	var (
		channelID    string
		persona      string
		instructions string
	)

	cmd := &cobra.Command{
		Use:   "prompt <message>",
		Short: "Print the prompt a message would produce, without calling the model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			in := prompt.Input{
				Persona:        persona,
				Instructions:   instructions,
				GlobalMemories: store.GlobalMemories(),
				UserMessage:    strings.Join(args, " "),
			}
			if channelID != "" {
				in.ChannelMemories = store.ChannelMemories(channelID)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), prompt.Compose(in))
			return nil
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "include this channel's memories")
	cmd.Flags().StringVar(&persona, "persona", "", "persona to preview with")
	cmd.Flags().StringVar(&instructions, "instructions", "", "instructions to preview with")

	return cmd
}

// openStore builds the configured memory backend, wrapped in the Redis
// cache when REDIS_URL is set. The returned func releases its connections.
func (a *app) openStore() (memory.Store, func(), error) {
	secrets, err := config.LoadStorageSecrets(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	return openStore(a.cfg, secrets)
}

func openStore(cfg *config.Config, secrets *config.Secrets) (memory.Store, func(), error) {
	var (
		store   memory.Store
		closers []func()
	)

	switch cfg.Memory.Backend {
	case config.BackendSurreal:
		host := surreal.NormalizeHost(secrets.Surreal.Host)
		log.Printf("Connecting to SurrealDB at %s (NS: %s, DB: %s)", host, secrets.Surreal.Namespace, secrets.Surreal.Database)
		client, err := surreal.NewClient(host, secrets.Surreal.User, secrets.Surreal.Pass, secrets.Surreal.Namespace, secrets.Surreal.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		closers = append(closers, client.Close)
		store = memory.NewSurrealStore(client)
	default:
		store = memory.NewFileStoreInDir(cfg.Memory.Dir, cfg.Memory.GlobalFile, cfg.Memory.ChannelFile)
	}

	if secrets.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(secrets.RedisURL, "personabot")
		if err != nil {
			log.Printf("Redis unavailable, reading memories uncached: %v", err)
		} else {
			closers = append(closers, func() {
				if err := redisCache.Close(); err != nil {
					log.Printf("Error closing Redis: %v", err)
				}
			})
			store = memory.NewCachedStore(store, redisCache)
		}
	}

	return store, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func newCompleter(cfg *config.Config, apiKey string) bot.Completer {
	if cfg.Completion.Provider == config.ProviderOpenAI {
		return compat.NewClient(apiKey, cfg.Completion.BaseURL, cfg.Completion.Model)
	}
	return gemini.NewClient(apiKey, gemini.WithModel(cfg.Completion.Model))
}

func (a *app) runBot() error {
	cfg := a.cfg

	secrets, err := config.LoadSecrets(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg, secrets)
	if err != nil {
		return err
	}
	defer closeStore()

	handler := bot.NewHandler(bot.Options{
		Sessions:        session.NewTable(),
		Memory:          store,
		Completer:       newCompleter(cfg, secrets.GenerationKey),
		Commands:        bot.DefaultRegistry(store),
		Prefix:          cfg.Bot.CommandPrefix,
		ThinkingMessage: cfg.Bot.ThinkingMessage,
		Status:          cfg.Bot.Status,
		Greeting:        cfg.Bot.StartupGreeting,
		Owner: bot.Owner{
			ID:           cfg.Owner.ID,
			Username:     cfg.Owner.Username,
			Persona:      cfg.Owner.Persona,
			Instructions: cfg.Owner.Instructions,
		},
	})
	defer handler.Close()

	dg, err := discordgo.New("Bot " + secrets.DiscordToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	dg.AddHandler(handler.Ready)
	dg.AddHandler(handler.GuildCreate)
	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.InteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	defer dg.Close()

	// Ready may not have been dispatched yet
	handler.SetBotID(dg.State.User.ID)

	registeredCommands, err := handler.RegisterSlashCommands(dg, secrets.GuildID)
	if err != nil {
		log.Printf("Error registering slash commands: %v", err)
	}
	defer func() {
		if err := bot.UnregisterSlashCommands(dg, secrets.GuildID, registeredCommands); err != nil {
			log.Printf("Error unregistering slash commands: %v", err)
		}
	}()

	log.Println("Bot is now running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	return nil
}
