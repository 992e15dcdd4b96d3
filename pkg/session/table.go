// Package session keeps the per-channel persona, instructions and rolling
// conversation for the lifetime of the process.
package session

import "sync"

// MaxTurns bounds the conversation kept per channel.
const MaxTurns = 20

// Turn is one line of conversation.
type Turn struct {
	Author  string
	Content string
}

// Session is the mutable state of one channel.
type Session struct {
	ChannelID string

	mu           sync.RWMutex
	persona      string
	instructions string
	conversation []Turn
}

// Table maps channel IDs to sessions. Entries are never evicted.
type Table struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewTable() *Table {
	return &Table{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// GetOrCreate returns the session for channelID, creating an empty one on first use.
func (t *Table) GetOrCreate(channelID string) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[channelID]
	if !ok {
		s = &Session{ChannelID: channelID}
		t.sessions[channelID] = s
	}
	return s
}

// Lock serializes event handling for one channel. Call the returned func to release.
func (t *Table) Lock(channelID string) (unlock func()) {
	t.mu.Lock()
	l, ok := t.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[channelID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Len reports how many channels have a session.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (s *Session) Persona() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona
}

func (s *Session) Instructions() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instructions
}

func (s *Session) SetPersona(persona string) {
	s.mu.Lock()
	s.persona = persona
	s.mu.Unlock()
}

func (s *Session) SetInstructions(instructions string) {
	s.mu.Lock()
	s.instructions = instructions
	s.mu.Unlock()
}

// Configured reports whether both persona and instructions are set.
func (s *Session) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona != "" && s.instructions != ""
}

// AppendTurn records a turn, evicting the oldest ones past MaxTurns.
func (s *Session) AppendTurn(author, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversation = append(s.conversation, Turn{Author: author, Content: content})
	if over := len(s.conversation) - MaxTurns; over > 0 {
		s.conversation = append(s.conversation[:0:0], s.conversation[over:]...)
	}
}

// Conversation returns a copy of the conversation, oldest first.
func (s *Session) Conversation() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.conversation))
	copy(out, s.conversation)
	return out
}

// Reset clears persona, instructions and conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	s.persona = ""
	s.instructions = ""
	s.conversation = nil
	s.mu.Unlock()
}
