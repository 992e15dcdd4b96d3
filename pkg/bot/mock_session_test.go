package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// SentMessage is one outbound call recorded by MockSession.
type SentMessage struct {
	Kind      string // send, reply, complex, edit
	ChannelID string
	MessageID string
	Content   string
}

// MockSession implements Session for testing
type MockSession struct {
	mu         sync.Mutex
	Sent       []SentMessage
	Responses  []*discordgo.InteractionResponse
	Statuses   []discordgo.UpdateStatusData
	Messages   map[string]*discordgo.Message
	FailEdit   bool
	FailFetch  bool
	FetchCalls int
	nextID     int
}

func (m *MockSession) record(kind, channelID, messageID, content string) *discordgo.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if messageID == "" {
		m.nextID++
		messageID = fmt.Sprintf("msg-%d", m.nextID)
	}
	m.Sent = append(m.Sent, SentMessage{Kind: kind, ChannelID: channelID, MessageID: messageID, Content: content})
	return &discordgo.Message{ID: messageID, ChannelID: channelID, Content: content}
}

func (m *MockSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.record("send", channelID, "", content), nil
}

func (m *MockSession) ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.record("reply", channelID, "", content), nil
}

func (m *MockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.record("complex", channelID, "", data.Content), nil
}

func (m *MockSession) ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.FailEdit {
		return nil, errors.New("edit failed")
	}
	return m.record("edit", channelID, messageID, content), nil
}

func (m *MockSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if m.FailFetch {
		return nil, errors.New("unknown message")
	}
	if msg, ok := m.Messages[messageID]; ok {
		return msg, nil
	}
	return nil, errors.New("unknown message")
}

func (m *MockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, resp)
	return nil
}

func (m *MockSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses = append(m.Statuses, usd)
	return nil
}

// Contents returns the content of every recorded call of the given kind.
func (m *MockSession) Contents(kind string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.Kind == kind {
			out = append(out, s.Content)
		}
	}
	return out
}

// mockCompleter records prompts and answers with a fixed reply.
type mockCompleter struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

func (c *mockCompleter) Complete(_ context.Context, prompt string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.reply
}

func (c *mockCompleter) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// memStore is an in-memory memory.Store.
type memStore struct {
	mu       sync.Mutex
	global   []string
	channels map[string][]string
	err      error
}

func newMemStore() *memStore {
	return &memStore{channels: make(map[string][]string)}
}

func (s *memStore) AppendGlobal(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.global = append(s.global, text)
	return nil
}

func (s *memStore) GlobalMemories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.global...)
}

func (s *memStore) ChannelMemories(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.channels[channelID]...)
}

func (s *memStore) AppendChannel(channelID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.channels[channelID] = append(s.channels[channelID], text)
	return nil
}
