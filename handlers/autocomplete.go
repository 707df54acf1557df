package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// maxChoices is Discord's limit on autocomplete results.
const maxChoices = 25

// HandleAutocomplete handles all autocomplete interactions.
func (h *Handler) HandleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "wander" || len(data.Options) == 0 {
		return
	}
	for _, opt := range data.Options[0].Options {
		if opt.Name == "guild" && opt.Focused {
			h.handleGuildAutocomplete(s, i, opt.StringValue())
		}
	}
}

func (h *Handler) handleGuildAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate, query string) {
	s.State.RLock()
	choices := guildChoices(s.State.Guilds, query)
	s.State.RUnlock()

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		h.Logger.Warn("error responding to autocomplete interaction", zap.Error(err))
	}
}

// guildChoices matches query case-insensitively against guild names and ids.
func guildChoices(guilds []*discordgo.Guild, query string) []*discordgo.ApplicationCommandOptionChoice {
	query = strings.ToLower(strings.TrimSpace(query))
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(guilds), maxChoices))
	for _, g := range guilds {
		if len(choices) == maxChoices {
			break
		}
		if query != "" && !strings.Contains(strings.ToLower(g.Name), query) && !strings.HasPrefix(g.ID, query) {
			continue
		}
		name := g.Name
		if name == "" {
			name = g.ID
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: g.ID,
		})
	}
	return choices
}
