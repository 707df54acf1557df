package command

import (
	"github.com/bwmarrin/discordgo"
)

// Command is a slash command together with the permission level needed to run it.
type Command interface {
	Definition() *discordgo.ApplicationCommand
	Level() string
}

// AllCommands lists the commands registered on startup, in registration order.
var AllCommands = []Command{
	&WanderCommand{},
	&PingCommand{},
}

// GetCommandDefinitions returns the definitions to register with Discord.
func GetCommandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(AllCommands))
	for _, cmd := range AllCommands {
		defs = append(defs, cmd.Definition())
	}
	return defs
}

// RequiredLevel returns the permission level for a command name.
// Unknown commands report false.
func RequiredLevel(name string) (string, bool) {
	for _, cmd := range AllCommands {
		if cmd.Definition().Name == name {
			return cmd.Level(), true
		}
	}
	return "", false
}
