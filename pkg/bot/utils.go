package bot

import (
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Discord rejects messages longer than this many characters.
const maxMessageLength = 2000

// splitMessage cuts content into chunks of at most limit runes, preferring
// to break at the last newline inside each window. It always returns at
// least one chunk.
func splitMessage(content string, limit int) []string {
	runes := []rune(content)
	if len(runes) <= limit {
		return []string{content}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		if nl := lastIndexRune(runes[:limit], '\n'); nl > 0 {
			cut = nl
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// sendChunks posts chunks in order. With a reference the first chunk is a
// reply and the rest are sent without pinging the author again.
func (h *Handler) sendChunks(s Session, channelID string, chunks []string, reference *discordgo.MessageReference) error {
	var firstErr error
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		var err error
		switch {
		case reference == nil:
			_, err = s.ChannelMessageSend(channelID, chunk)
		case i == 0:
			_, err = s.ChannelMessageSendReply(channelID, chunk, reference)
		default:
			_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
				Content:   chunk,
				Reference: reference,
				AllowedMentions: &discordgo.MessageAllowedMentions{
					RepliedUser: false,
				},
			})
		}

		if err != nil {
			log.Printf("Error sending message part: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
