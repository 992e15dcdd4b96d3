package bot

import (
	"context"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// slashTextOption carries the arguments a prefixed command would take.
const slashTextOption = "text"

// SlashCommands mirrors the prefixed commands, addmem included.
func (h *Handler) SlashCommands() []*discordgo.ApplicationCommand {
	cmds := append([]Command{h.addMemory}, h.commands.Commands()...)

	out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, &discordgo.ApplicationCommand{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        slashTextOption,
					Description: "Command arguments",
					Required:    false,
				},
			},
		})
	}
	return out
}

// InteractionCreate handles all slash command interactions
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.HandleInteraction(&DiscordSession{s}, i)
}

// HandleInteraction runs an application command through the same registry
// as prefixed messages.
func (h *Handler) HandleInteraction(s Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	cmd, ok := h.command(data.Name)
	if !ok {
		log.Printf("Unknown slash command: %s", data.Name)
		return
	}

	author, err := interactionUser(i)
	if err != nil {
		log.Printf("Error handling slash command %s: %v", data.Name, err)
		return
	}

	var text string
	for _, opt := range data.Options {
		if opt.Name == slashTextOption && opt.Type == discordgo.ApplicationCommandOptionString {
			text = opt.StringValue()
		}
	}
	var args []string
	if text = strings.TrimSpace(text); text != "" {
		args = strings.Split(text, " ")
	}

	if !h.begin() {
		return
	}
	defer h.wg.Done()

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	unlock := h.sessions.Lock(i.ChannelID)
	defer unlock()

	responded := false
	e := &Event{
		ChannelID:  i.ChannelID,
		AuthorID:   author.ID,
		AuthorName: displayName(author),
		Content:    text,
		reply: func(content string) error {
			if responded {
				_, err := s.ChannelMessageSend(i.ChannelID, content)
				return err
			}
			responded = true
			return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: truncate(content, maxMessageLength),
				},
			})
		},
	}

	if err := cmd.Execute(ctx, e, args, h.sessions); err != nil {
		log.Printf("Error responding to %s command: %v", data.Name, err)
		if !responded {
			err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: commandFailedText,
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
			if err != nil {
				log.Printf("Error responding to %s command: %v", data.Name, err)
			}
		}
	}
}

func truncate(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit-1]) + "…"
}

// RegisterSlashCommands registers all slash commands with Discord
func (h *Handler) RegisterSlashCommands(s *discordgo.Session, guildID string) ([]*discordgo.ApplicationCommand, error) {
	log.Println("Registering slash commands...")

	commands := h.SlashCommands()
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commands))

	for _, cmd := range commands {
		// Register globally (guildID = "") or for a specific guild
		registeredCmd, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			log.Printf("Cannot create '%s' command: %v", cmd.Name, err)
			return registeredCommands, err
		}
		registeredCommands = append(registeredCommands, registeredCmd)
		log.Printf("Registered command: %s", cmd.Name)
	}

	return registeredCommands, nil
}

// UnregisterSlashCommands removes all registered slash commands
func UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand) error {
	log.Println("Unregistering slash commands...")

	for _, cmd := range commands {
		err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID)
		if err != nil {
			log.Printf("Cannot delete '%s' command: %v", cmd.Name, err)
			return err
		}
		log.Printf("Unregistered command: %s", cmd.Name)
	}

	return nil
}
