package bot

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int
		want    []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"empty", "", 10, []string{""}},
		{"exact", "0123456789", 10, []string{"0123456789"}},
		{"hard cut", "0123456789abc", 10, []string{"0123456789", "abc"}},
		{"newline cut", "hello\nworld!!", 10, []string{"hello", "world!!"}},
		{"runes", strings.Repeat("é", 12), 10, []string{strings.Repeat("é", 10), "éé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitMessage(tt.content, tt.limit))
		})
	}
}

func TestSendChunks(t *testing.T) {
	h := NewHandler(Options{})
	defer h.Close()
	s := &MockSession{}
	ref := &discordgo.MessageReference{MessageID: "in-1"}

	err := h.sendChunks(s, testChannel, []string{"one", " ", "two"}, ref)

	assert.NoError(t, err)
	assert.Equal(t, []string{"one"}, s.Contents("reply"))
	assert.Equal(t, []string{"two"}, s.Contents("complex"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
