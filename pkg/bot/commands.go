package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"personabot/pkg/memory"
	"personabot/pkg/session"
)

// Event is a command invocation, from a prefixed message or a slash command.
type Event struct {
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string

	reply func(content string) error
}

// Reply answers the user who issued the command.
func (e *Event) Reply(content string) error {
	if e.reply == nil {
		return fmt.Errorf("event has no reply target")
	}
	return e.reply(content)
}

// Command is a named action dispatched by exact name after the prefix.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, e *Event, args []string, sessions *session.Table) error
}

// Registry maps command names to commands. Populate it once at startup.
type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd, replacing any command with the same name.
func (r *Registry) Register(cmd Command) *Registry {
	name := cmd.Name()
	if name == "" {
		panic("bot: command with empty name")
	}
	if _, exists := r.commands[name]; exists {
		log.Printf("Command %q registered twice, keeping the latest", name)
	}
	r.commands[name] = cmd
	return r
}

func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Commands returns the registered commands sorted by name.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// DefaultRegistry holds the personalization commands.
func DefaultRegistry(store memory.Store) *Registry {
	return NewRegistry().
		Register(PersonaCommand{}).
		Register(InstructionsCommand{}).
		Register(ResetCommand{}).
		Register(ChannelMemoryCommand{Store: store}).
		Register(MemoriesCommand{Store: store})
}

// parseCommand splits "<prefix>name a b" into name and args on single spaces.
func parseCommand(content, prefix string) (string, []string) {
	parts := strings.Split(strings.TrimPrefix(content, prefix), " ")
	return parts[0], parts[1:]
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

const (
	addMemoryName     = "addmem"
	addMemoryUsage    = "Heyo, master~! Please provide a memory to add~!"
	addMemoryDone     = "Heyo, master~! Global memory added~!"
	addMemoryFailed   = "Sorry master, I couldn't save that memory... (%v)"
	commandFailedText = "Ugh, something went wrong running that command..."
)

// addMemoryCommand is built into the handler and cannot be replaced.
type addMemoryCommand struct {
	store memory.Store
}

func (addMemoryCommand) Name() string        { return addMemoryName }
func (addMemoryCommand) Description() string { return "Add a memory shared by every channel" }

func (c addMemoryCommand) Execute(_ context.Context, e *Event, args []string, _ *session.Table) error {
	text := joinArgs(args)
	if text == "" {
		return e.Reply(addMemoryUsage)
	}
	if err := c.store.AppendGlobal(text); err != nil {
		log.Printf("Error adding global memory: %v", err)
		return e.Reply(fmt.Sprintf(addMemoryFailed, err))
	}
	return e.Reply(addMemoryDone)
}

type PersonaCommand struct{}

func (PersonaCommand) Name() string        { return "persona" }
func (PersonaCommand) Description() string { return "Set the character the bot plays in this channel" }

func (PersonaCommand) Execute(_ context.Context, e *Event, args []string, sessions *session.Table) error {
	s := sessions.GetOrCreate(e.ChannelID)
	text := joinArgs(args)
	if text == "" {
		if current := s.Persona(); current != "" {
			return e.Reply("Current persona: " + current)
		}
		return e.Reply("No persona set yet~! Usage: persona <description>")
	}
	s.SetPersona(text)
	return e.Reply("Persona set~!")
}

type InstructionsCommand struct{}

func (InstructionsCommand) Name() string        { return "instructions" }
func (InstructionsCommand) Description() string { return "Set behavioral instructions for this channel" }

func (InstructionsCommand) Execute(_ context.Context, e *Event, args []string, sessions *session.Table) error {
	s := sessions.GetOrCreate(e.ChannelID)
	text := joinArgs(args)
	if text == "" {
		if current := s.Instructions(); current != "" {
			return e.Reply("Current instructions: " + current)
		}
		return e.Reply("No instructions set yet~! Usage: instructions <text>")
	}
	s.SetInstructions(text)
	return e.Reply("Instructions set~!")
}

type ResetCommand struct{}

func (ResetCommand) Name() string { return "reset" }
func (ResetCommand) Description() string {
	return "Clear this channel's persona, instructions and conversation"
}

func (ResetCommand) Execute(_ context.Context, e *Event, _ []string, sessions *session.Table) error {
	sessions.GetOrCreate(e.ChannelID).Reset()
	return e.Reply("All cleared~! Starting fresh in this channel.")
}

type ChannelMemoryCommand struct {
	Store memory.Store
}

func (ChannelMemoryCommand) Name() string        { return "channelmem" }
func (ChannelMemoryCommand) Description() string { return "Add a memory only this channel sees" }

func (c ChannelMemoryCommand) Execute(_ context.Context, e *Event, args []string, _ *session.Table) error {
	text := joinArgs(args)
	if text == "" {
		return e.Reply("Please provide a memory for this channel~!")
	}
	if err := c.Store.AppendChannel(e.ChannelID, text); err != nil {
		log.Printf("Error adding channel memory: %v", err)
		return e.Reply(fmt.Sprintf("Sorry, I couldn't save that channel memory... (%v)", err))
	}
	return e.Reply("Channel memory added~!")
}

type MemoriesCommand struct {
	Store memory.Store
}

func (MemoriesCommand) Name() string        { return "memories" }
func (MemoriesCommand) Description() string { return "List global and channel memories" }

func (c MemoriesCommand) Execute(_ context.Context, e *Event, _ []string, _ *session.Table) error {
	global := c.Store.GlobalMemories()
	channel := c.Store.ChannelMemories(e.ChannelID)
	if len(global) == 0 && len(channel) == 0 {
		return e.Reply("I don't remember anything yet~!")
	}

	var b strings.Builder
	if len(global) > 0 {
		b.WriteString("**Global memories:**\n")
		for _, m := range global {
			b.WriteString("• " + m + "\n")
		}
	}
	if len(channel) > 0 {
		b.WriteString("**Channel memories:**\n")
		for _, m := range channel {
			b.WriteString("• " + m + "\n")
		}
	}
	return e.Reply(strings.TrimRight(b.String(), "\n"))
}
