package models

// ActivityLevel is a coarse classification of how lively a destination is.
type ActivityLevel string

const (
	ActivityHigh     ActivityLevel = "high"
	ActivityMedium   ActivityLevel = "medium"
	ActivityLow      ActivityLevel = "low"
	ActivityInactive ActivityLevel = "inactive"
)

// ChannelScore is the transient result of scoring one destination in one cycle.
type ChannelScore struct {
	Destination             Destination
	GuildID                 string
	GuildName               string
	Score                   int
	ParticipantCount        int
	MinutesSinceLastMessage int
	BotWasRecent            bool
	ActivityLevel           ActivityLevel
	BotMessagePercentage    float64
	HumanActivityModifier   float64
}
