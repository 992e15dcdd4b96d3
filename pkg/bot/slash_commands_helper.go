package bot

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

var errNoInteractionUser = errors.New("could not determine user from interaction")

// interactionUser returns the invoking user for guild (Member) and DM (User) interactions.
func interactionUser(i *discordgo.InteractionCreate) (*discordgo.User, error) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User, nil
	}
	if i.User != nil {
		return i.User, nil
	}
	return nil, errNoInteractionUser
}

// displayName prefers the global display name over the account username.
func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
