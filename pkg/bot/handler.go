package bot

import (
	"context"
	"log"
	"strings"
	"sync"

	"personabot/pkg/memory"
	"personabot/pkg/prompt"
	"personabot/pkg/session"

	"github.com/bwmarrin/discordgo"
)

// BotAuthor is the author name recorded for the bot's own turns.
const BotAuthor = "Bot"

// Owner is the single identity that gets a default persona when none is set.
type Owner struct {
	ID           string
	Username     string
	Persona      string
	Instructions string
}

func (o Owner) matches(u *discordgo.User) bool {
	return o.ID != "" && u != nil && u.ID == o.ID && u.Username == o.Username
}

// Options configures a Handler. Nil Sessions and Commands get empty defaults.
type Options struct {
	Sessions        *session.Table
	Memory          memory.Store
	Completer       Completer
	Commands        *Registry
	Prefix          string
	ThinkingMessage string
	Status          string
	Greeting        string
	Owner           Owner
}

// Handler routes gateway events for one bot identity.
type Handler struct {
	sessions        *session.Table
	memoryStore     memory.Store
	completer       Completer
	commands        *Registry
	addMemory       Command
	prefix          string
	thinkingMessage string
	status          string
	greeting        string
	owner           Owner

	botIDMu sync.RWMutex
	botID   string

	greetedMu sync.Mutex
	greeted   map[string]bool

	ctx    context.Context
	cancel context.CancelFunc

	// lifeMu orders begin against Close so wg.Add never races wg.Wait.
	lifeMu sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewHandler builds a Handler; call Close to stop it.
func NewHandler(opts Options) *Handler {
	if opts.Sessions == nil {
		opts.Sessions = session.NewTable()
	}
	if opts.Commands == nil {
		opts.Commands = NewRegistry()
	}
	if opts.Prefix == "" {
		opts.Prefix = "+"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		sessions:        opts.Sessions,
		memoryStore:     opts.Memory,
		completer:       opts.Completer,
		commands:        opts.Commands,
		addMemory:       addMemoryCommand{store: opts.Memory},
		prefix:          opts.Prefix,
		thinkingMessage: opts.ThinkingMessage,
		status:          opts.Status,
		greeting:        opts.Greeting,
		owner:           opts.Owner,
		greeted:         make(map[string]bool),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// SetBotID records the bot's own user ID so its messages are ignored.
func (h *Handler) SetBotID(id string) {
	h.botIDMu.Lock()
	h.botID = id
	h.botIDMu.Unlock()
}

// BotID returns the ID set by SetBotID or the Ready event.
func (h *Handler) BotID() string {
	h.botIDMu.RLock()
	defer h.botIDMu.RUnlock()
	return h.botID
}

// Sessions exposes the channel session table.
func (h *Handler) Sessions() *session.Table {
	return h.sessions
}

// Close cancels in-flight events and waits for them to return. Events
// arriving afterwards are dropped.
func (h *Handler) Close() {
	h.lifeMu.Lock()
	h.closed = true
	h.lifeMu.Unlock()

	h.cancel()
	h.wg.Wait()
}

// begin registers an event; it reports false once Close has started.
func (h *Handler) begin() bool {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// command resolves name, giving the built-in addmem precedence over the registry.
func (h *Handler) command(name string) (Command, bool) {
	if name == addMemoryName {
		return h.addMemory, true
	}
	return h.commands.Get(name)
}

// MessageCreate is the discordgo handler for new messages.
func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(&DiscordSession{s}, m)
}

// HandleMessage processes one inbound message under its own context.
// Events for the same channel are handled one at a time.
func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == h.BotID() {
		return
	}

	if !h.begin() {
		return
	}
	defer h.wg.Done()

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	unlock := h.sessions.Lock(m.ChannelID)
	defer unlock()

	sess := h.sessions.GetOrCreate(m.ChannelID)

	if h.isAddressedToBot(s, m) {
		h.replyToMention(ctx, s, m, sess)
		return
	}

	if strings.HasPrefix(m.Content, h.prefix) && h.dispatchCommand(ctx, s, m) {
		return
	}

	h.handlePlainMessage(ctx, s, m, sess)
}

func (h *Handler) isAddressedToBot(s Session, m *discordgo.MessageCreate) bool {
	botID := h.BotID()
	for _, user := range m.Mentions {
		if user != nil && user.ID == botID {
			return true
		}
	}
	return h.isReplyToBot(s, m)
}

func (h *Handler) isReplyToBot(s Session, m *discordgo.MessageCreate) bool {
	ref := m.MessageReference
	if ref == nil || ref.MessageID == "" {
		return false
	}

	referenced := m.ReferencedMessage
	if referenced == nil {
		channelID := ref.ChannelID
		if channelID == "" {
			channelID = m.ChannelID
		}
		var err error
		referenced, err = s.ChannelMessage(channelID, ref.MessageID)
		if err != nil {
			log.Printf("Error fetching referenced message: %v", err)
			return false
		}
	}

	return referenced != nil && referenced.Author != nil && referenced.Author.ID == h.BotID()
}

// resolveRole applies the owner defaults to unset fields without storing them.
func (h *Handler) resolveRole(sess *session.Session, author *discordgo.User) (string, string) {
	persona, instructions := sess.Persona(), sess.Instructions()
	if h.owner.matches(author) {
		if persona == "" {
			persona = h.owner.Persona
		}
		if instructions == "" {
			instructions = h.owner.Instructions
		}
	}
	return persona, instructions
}

// generate composes the prompt from the conversation as it stands and calls the model.
func (h *Handler) generate(ctx context.Context, sess *session.Session, persona, instructions, message string) string {
	in := prompt.Input{
		Persona:         persona,
		Instructions:    instructions,
		GlobalMemories:  h.memoryStore.GlobalMemories(),
		ChannelMemories: h.memoryStore.ChannelMemories(sess.ChannelID),
		Conversation:    sess.Conversation(),
		UserMessage:     message,
	}
	return h.completer.Complete(ctx, prompt.Compose(in))
}

func (h *Handler) replyToMention(ctx context.Context, s Session, m *discordgo.MessageCreate, sess *session.Session) {
	persona, instructions := h.resolveRole(sess, m.Author)

	placeholder, err := s.ChannelMessageSendReply(m.ChannelID, h.thinkingMessage, m.Reference())
	if err != nil {
		log.Printf("Error sending placeholder: %v", err)
	}

	// Only the answer is recorded; the question stays out of the history.
	reply := h.generate(ctx, sess, persona, instructions, m.Content)
	sess.AppendTurn(BotAuthor, reply)

	h.deliver(s, m, placeholder, reply)
}

// deliver edits the placeholder with reply, falling back to a fresh reply.
func (h *Handler) deliver(s Session, m *discordgo.MessageCreate, placeholder *discordgo.Message, reply string) {
	chunks := splitMessage(reply, maxMessageLength)

	if placeholder != nil {
		_, err := s.ChannelMessageEdit(placeholder.ChannelID, placeholder.ID, chunks[0])
		if err == nil {
			h.sendChunks(s, m.ChannelID, chunks[1:], nil)
			return
		}
		log.Printf("Error editing placeholder: %v", err)
	}
	h.sendChunks(s, m.ChannelID, chunks, m.Reference())
}

func (h *Handler) dispatchCommand(ctx context.Context, s Session, m *discordgo.MessageCreate) bool {
	name, args := parseCommand(m.Content, h.prefix)
	cmd, ok := h.command(name)
	if !ok {
		return false
	}

	e := &Event{
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    m.Content,
		reply: func(content string) error {
			return h.sendChunks(s, m.ChannelID, splitMessage(content, maxMessageLength), m.Reference())
		},
	}

	if err := cmd.Execute(ctx, e, args, h.sessions); err != nil {
		log.Printf("Error executing command %s: %v", name, err)
		if _, err := s.ChannelMessageSendReply(m.ChannelID, commandFailedText, m.Reference()); err != nil {
			log.Printf("Error sending message: %v", err)
		}
	}
	return true
}

// handlePlainMessage always records the message; it only answers once the
// channel has both a persona and instructions.
func (h *Handler) handlePlainMessage(ctx context.Context, s Session, m *discordgo.MessageCreate, sess *session.Session) {
	sess.AppendTurn(m.Author.Username, m.Content)
	if !sess.Configured() {
		return
	}

	reply := h.generate(ctx, sess, sess.Persona(), sess.Instructions(), m.Content)
	sess.AppendTurn(BotAuthor, reply)

	h.sendChunks(s, m.ChannelID, splitMessage(reply, maxMessageLength), m.Reference())
}
