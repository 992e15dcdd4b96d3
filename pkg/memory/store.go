package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store holds global memories (shared by every channel) and channel memories.
//
// Reads never fail: a missing or unreadable store reads as empty. Writes
// return their error so callers can tell the user.
type Store interface {
	AppendGlobal(text string) error
	GlobalMemories() []string
	ChannelMemories(channelID string) []string
	AppendChannel(channelID, text string) error
}

// FileStore keeps global memories one per line in a text file and channel
// memories in a JSON object keyed by channel ID.
type FileStore struct {
	globalPath  string
	channelPath string
	mu          sync.Mutex
}

func NewFileStore(globalPath, channelPath string) *FileStore {
	return &FileStore{
		globalPath:  globalPath,
		channelPath: channelPath,
	}
}

// NewFileStoreInDir places both files under dir.
func NewFileStoreInDir(dir, globalFile, channelFile string) *FileStore {
	return NewFileStore(filepath.Join(dir, globalFile), filepath.Join(dir, channelFile))
}

func (s *FileStore) AppendGlobal(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.globalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open global memory file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.TrimSpace(text) + "\n"); err != nil {
		return fmt.Errorf("failed to append global memory: %w", err)
	}
	return nil
}

func (s *FileStore) GlobalMemories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.globalPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Error reading global memories: %v", err)
		}
		return []string{}
	}

	memories := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			memories = append(memories, line)
		}
	}
	return memories
}

func (s *FileStore) ChannelMemories(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	memories := s.loadChannels()[channelID]
	if memories == nil {
		return []string{}
	}
	return memories
}

// AppendChannel rewrites the whole channel file.
func (s *FileStore) AppendChannel(channelID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.loadChannels()
	data[channelID] = append(data[channelID], text)

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode channel memories: %w", err)
	}
	if err := os.WriteFile(s.channelPath, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write channel memories: %w", err)
	}
	return nil
}

// loadChannels treats a missing or corrupt file as empty. Callers hold s.mu.
func (s *FileStore) loadChannels() map[string][]string {
	data := map[string][]string{}

	raw, err := os.ReadFile(s.channelPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Error reading channel memories: %v", err)
		}
		return data
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		log.Printf("Error decoding channel memories, treating as empty: %v", err)
		return map[string][]string{}
	}
	if data == nil {
		data = map[string][]string{}
	}
	return data
}
