package models

import "time"

// Guild is a community the bot has been added to. The engine only reads it.
type Guild struct {
	ID       string
	Name     string
	JoinedAt time.Time // zero when unknown
}

// Permissions is the bot's effective permission set on a destination.
type Permissions struct {
	View        bool
	Send        bool
	ReadHistory bool
}

// Destination is a postable text channel inside a guild.
type Destination struct {
	ID          string
	GuildID     string
	Name        string
	NSFW        bool
	Permissions Permissions
}
