package handlers

import (
	"fmt"
	"strings"
	"time"

	"discord-wanderer/wander"
)

func discordTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func statusMessage(st wander.EngineStatus, running bool, next time.Time) string {
	var b strings.Builder
	b.WriteString("**Wanderer status**\n")

	if running {
		b.WriteString("Scheduler: running")
		if !next.IsZero() {
			fmt.Fprintf(&b, ", next cycle %s", discordTime(next))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Scheduler: stopped\n")
	}
	fmt.Fprintf(&b, "Phase: %s\n", st.Phase)
	fmt.Fprintf(&b, "Messages this hour: %d/%d\n", st.SentLastHour, st.MaxPerHour)

	if st.BreakerActive {
		fmt.Fprintf(&b, "Circuit breaker: ⚠️ active since %s, resets %s\n",
			discordTime(st.BreakerSince), discordTime(st.BreakerResetsAt))
	} else {
		b.WriteString("Circuit breaker: clear\n")
	}

	if st.LastSend.IsZero() {
		b.WriteString("Last message: never\n")
	} else {
		fmt.Fprintf(&b, "Last message: %s\n", discordTime(st.LastSend))
	}

	if c := st.LastCycle; c != nil {
		fmt.Fprintf(&b, "Last cycle: %s (%d candidates)", c.Outcome, c.Candidates)
		if c.Winner != nil {
			fmt.Fprintf(&b, " → #%s in %s, score %d", c.Winner.Destination.Name, c.Winner.GuildName, c.Winner.Score)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func guildCooldownMessage(guildName string, last time.Time, ok bool, base time.Duration, percent float64, now time.Time) string {
	if !ok {
		return fmt.Sprintf("**%s**: never visited, eligible now", guildName)
	}
	lo, hi := wander.Bounds(base, percent)
	switch earliest, latest := last.Add(lo), last.Add(hi); {
	case now.Before(earliest):
		return fmt.Sprintf("**%s**: last visit %s, on cooldown until between %s and %s",
			guildName, discordTime(last), discordTime(earliest), discordTime(latest))
	case now.Before(latest):
		return fmt.Sprintf("**%s**: last visit %s, may be eligible (window ends %s)",
			guildName, discordTime(last), discordTime(latest))
	default:
		return fmt.Sprintf("**%s**: last visit %s, eligible now", guildName, discordTime(last))
	}
}
