package bot

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.HandleReady(&DiscordSession{s}, r)
}

// HandleReady records the bot identity and sets its presence.
func (h *Handler) HandleReady(s Session, r *discordgo.Ready) {
	if r.User != nil {
		h.SetBotID(r.User.ID)
		log.Printf("Logged in as %s#%s", r.User.Username, r.User.Discriminator)
	}

	if h.status == "" {
		return
	}
	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: h.status,
		AFK:    false,
	})
	if err != nil {
		log.Printf("Error updating status: %v", err)
	}
}

func (h *Handler) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	h.HandleGuildCreate(&DiscordSession{s}, g)
}

// HandleGuildCreate greets a guild's system channel the first time the
// guild becomes available in this process.
func (h *Handler) HandleGuildCreate(s Session, g *discordgo.GuildCreate) {
	if h.greeting == "" || g.Guild == nil || g.SystemChannelID == "" {
		return
	}

	h.greetedMu.Lock()
	if h.greeted[g.ID] {
		h.greetedMu.Unlock()
		return
	}
	h.greeted[g.ID] = true
	h.greetedMu.Unlock()

	if _, err := s.ChannelMessageSend(g.SystemChannelID, h.greeting); err != nil {
		log.Printf("Error sending greeting to guild %s: %v", g.ID, err)
	}
}
