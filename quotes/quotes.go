// Package quotes supplies the text the wanderer posts, read from a YAML file.
package quotes

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of the content file.
type File struct {
	GenericMessages []string            `yaml:"generic_messages"`
	ChannelMessages map[string][]string `yaml:"channel_messages"`
}

// Provider picks a message for a channel: one of the channel's own messages
// when the file has an entry for its name, a generic message otherwise.
type Provider struct {
	mu      sync.RWMutex
	path    string
	generic []string
	channel map[string][]string
	pick    func(n int) int
}

// Load reads and parses the content file at path.
func Load(path string) (*Provider, error) {
	p := &Provider{path: path, pick: rand.IntN}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// New builds a provider from an already parsed file.
func New(f File) *Provider {
	p := &Provider{pick: rand.IntN}
	p.set(f)
	return p
}

// Parse decodes a content file. Blank messages are dropped and channel names
// are lower-cased.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse content file: %w", err)
	}

	out := File{
		GenericMessages: clean(f.GenericMessages),
		ChannelMessages: make(map[string][]string, len(f.ChannelMessages)),
	}
	for name, msgs := range f.ChannelMessages {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if msgs = clean(msgs); len(msgs) > 0 {
			out.ChannelMessages[key] = append(out.ChannelMessages[key], msgs...)
		}
	}
	return out, nil
}

// Validate reports content files the bot could never post from.
func Validate(f File) error {
	if len(f.GenericMessages) == 0 && len(f.ChannelMessages) == 0 {
		return errors.New("content file has no messages")
	}
	return nil
}

// Reload re-reads the file the provider was loaded from.
func (p *Provider) Reload() error {
	if p.path == "" {
		return errors.New("provider has no backing file")
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("failed to read content file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return err
	}
	if err := Validate(f); err != nil {
		return fmt.Errorf("%s: %w", p.path, err)
	}
	p.set(f)
	return nil
}

func (p *Provider) set(f File) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generic = f.GenericMessages
	p.channel = f.ChannelMessages
	if p.channel == nil {
		p.channel = make(map[string][]string)
	}
}

// ContentFor returns a message for the destination named name.
func (p *Provider) ContentFor(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	msgs := p.channel[strings.ToLower(name)]
	if len(msgs) == 0 {
		msgs = p.generic
	}
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[p.pick(len(msgs))], true
}

// SpecialNames returns the channel names that have their own messages, sorted.
func (p *Provider) SpecialNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.channel))
	for name := range p.channel {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Counts returns the number of generic messages and of channels with their own messages.
func (p *Provider) Counts() (generic, channels int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.generic), len(p.channel)
}

func clean(msgs []string) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}
