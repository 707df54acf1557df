package command

import (
	"discord-wanderer/utils"

	"github.com/bwmarrin/discordgo"
)

// WanderCommand defines the structure for the /wander command.
type WanderCommand struct{}

// Definition returns the application command definition.
func (c *WanderCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "wander",
		Description: "Inspect and control the wandering engine",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "status",
				Description: "Show engine counters, circuit breaker and cooldowns",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:         "guild",
						Description:  "Show the cooldown of one guild",
						Type:         discordgo.ApplicationCommandOptionString,
						Required:     false,
						Autocomplete: true,
					},
				},
			},
			{
				Name:        "stop",
				Description: "Emergency stop: halt the scheduler and trip the circuit breaker",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        "resume",
				Description: "Clear the circuit breaker and restart the scheduler",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

// Level restricts /wander to admins and developers.
func (c *WanderCommand) Level() string { return utils.LevelAdmin }

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}

// Level lets anyone ping.
func (c *PingCommand) Level() string { return utils.LevelGuest }
