package memory

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	globalTable  = "global_memories"
	channelTable = "channel_memories"
)

// SurrealClient is the part of surreal.Client the store needs.
type SurrealClient interface {
	Query(sql string, vars map[string]interface{}) (interface{}, error)
	Create(table string, data interface{}) (interface{}, error)
	SelectOrdered(table string, filter map[string]interface{}, orderField string) ([]map[string]interface{}, error)
}

// SurrealStore keeps memories in SurrealDB instead of local files.
type SurrealStore struct {
	client SurrealClient
	now    func() time.Time
}

type surrealMemoryItem struct {
	ChannelID string `json:"channel_id,omitempty"`
	Text      string `json:"text"`
	Seq       int64  `json:"seq"`
}

func NewSurrealStore(client SurrealClient) *SurrealStore {
	store := &SurrealStore{
		client: client,
		now:    time.Now,
	}
	if err := store.Init(); err != nil {
		// The schema may already exist or the DB may come back later
		log.Printf("Warning: Failed to initialize SurrealDB schema: %v", err)
	}
	return store
}

func (s *SurrealStore) Init() error {
	query := `
		DEFINE TABLE IF NOT EXISTS global_memories SCHEMAFULL;
		DEFINE FIELD IF NOT EXISTS text ON global_memories TYPE string;
		DEFINE FIELD IF NOT EXISTS seq ON global_memories TYPE int;

		DEFINE TABLE IF NOT EXISTS channel_memories SCHEMAFULL;
		DEFINE FIELD IF NOT EXISTS channel_id ON channel_memories TYPE string;
		DEFINE FIELD IF NOT EXISTS text ON channel_memories TYPE string;
		DEFINE FIELD IF NOT EXISTS seq ON channel_memories TYPE int;
		DEFINE INDEX IF NOT EXISTS channel_idx ON channel_memories FIELDS channel_id;
	`
	_, err := s.client.Query(query, map[string]interface{}{})
	return err
}

func (s *SurrealStore) AppendGlobal(text string) error {
	item := surrealMemoryItem{
		Text: strings.TrimSpace(text),
		Seq:  s.now().UnixNano(),
	}
	if _, err := s.client.Create(globalTable, item); err != nil {
		return fmt.Errorf("failed to store global memory: %w", err)
	}
	return nil
}

func (s *SurrealStore) GlobalMemories() []string {
	rows, err := s.client.SelectOrdered(globalTable, nil, "seq")
	if err != nil {
		log.Printf("Error reading global memories: %v", err)
		return []string{}
	}
	return texts(rows)
}

func (s *SurrealStore) ChannelMemories(channelID string) []string {
	rows, err := s.client.SelectOrdered(channelTable, map[string]interface{}{"channel_id": channelID}, "seq")
	if err != nil {
		log.Printf("Error reading channel memories: %v", err)
		return []string{}
	}
	return texts(rows)
}

// AppendChannel inserts one row; unlike the file store it never rewrites other channels.
func (s *SurrealStore) AppendChannel(channelID, text string) error {
	item := surrealMemoryItem{
		ChannelID: channelID,
		Text:      text,
		Seq:       s.now().UnixNano(),
	}
	if _, err := s.client.Create(channelTable, item); err != nil {
		return fmt.Errorf("failed to store channel memory: %w", err)
	}
	return nil
}

func texts(rows []map[string]interface{}) []string {
	out := []string{}
	for _, row := range rows {
		if text, ok := row["text"].(string); ok && text != "" {
			out = append(out, text)
		}
	}
	return out
}
