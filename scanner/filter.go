package scanner

import (
	"strings"

	"discord-wanderer/models"
)

// Filter decides whether a destination may receive an unsolicited message.
// It is pure: the same destination always yields the same answer.
type Filter struct {
	deny         []string
	conversation []string
	special      map[string]struct{}
}

// NewFilter builds a filter. specialNames are channel names that are accepted
// as soon as the permission, content and deny checks pass.
func NewFilter(cfg models.FilterConfig, specialNames []string) *Filter {
	f := &Filter{
		deny:         lowerAll(cfg.DenyPatterns),
		conversation: lowerAll(cfg.ConversationPatterns),
		special:      make(map[string]struct{}, len(specialNames)),
	}
	for _, name := range specialNames {
		f.special[strings.ToLower(name)] = struct{}{}
	}
	return f
}

// IsEligible applies the policy in order; the first matching rule wins:
// missing permissions, NSFW, deny-listed name, special name, otherwise allow.
func (f *Filter) IsEligible(d models.Destination) bool {
	if !d.Permissions.View || !d.Permissions.Send || !d.Permissions.ReadHistory {
		return false
	}
	if d.NSFW {
		return false
	}

	name := strings.ToLower(d.Name)
	for _, pattern := range f.deny {
		if strings.Contains(name, pattern) {
			return false
		}
	}
	// Special names and everything else that got this far are allowed.
	return true
}

// IsSpecial reports whether name matches a configured special channel name.
func (f *Filter) IsSpecial(name string) bool {
	_, ok := f.special[strings.ToLower(name)]
	return ok
}

// IsConversational reports whether the name looks like a casual chat channel.
// It never affects eligibility.
func (f *Filter) IsConversational(name string) bool {
	name = strings.ToLower(name)
	for _, pattern := range f.conversation {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
