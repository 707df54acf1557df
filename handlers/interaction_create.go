package handlers

import (
	"github.com/bwmarrin/discordgo"
)

// InteractionCreate handles slash command interactions.
func InteractionCreate(h *Handler) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			h.CommandDispatcher(s, i)
		case discordgo.InteractionApplicationCommandAutocomplete:
			h.HandleAutocomplete(s, i)
		}
	}
}
