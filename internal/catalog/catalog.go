// Package catalog holds the fixed user-facing copy of the chat.
package catalog

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Messages is the set of strings the chat shows without asking the backend.
type Messages struct {
	Greeting    string `yaml:"greeting"`
	Cleared     string `yaml:"cleared"`
	Rebooted    string `yaml:"rebooted"`
	NoMatch     string `yaml:"no_match"`
	FoundOne    string `yaml:"found_one"`
	FoundMany   string `yaml:"found_many"`
	Unreachable string `yaml:"unreachable"`
	ErrorPrefix string `yaml:"error_prefix"`
}

func Default() Messages {
	return Messages{
		Greeting:    "Greetings, human. I am your AI assistant from the future. How may I assist you today?",
		Cleared:     "Chat cleared. How can I help you?",
		Rebooted:    "System rebooted. Ready to assist you again!",
		NoMatch:     "Sorry — I couldn't find a good match.",
		FoundOne:    "Found %d relevant result. See details below.",
		FoundMany:   "Found %d relevant results. See details below.",
		Unreachable: "Sorry — could not reach the backend. Make sure the TF-IDF server is running and CORS is enabled.",
		ErrorPrefix: "Backend connection failed: ",
	}
}

// Found summarizes a result list of length n.
func (m Messages) Found(n int) string {
	switch n {
	case 0:
		return m.NoMatch
	case 1:
		return fmt.Sprintf(m.FoundOne, n)
	default:
		return fmt.Sprintf(m.FoundMany, n)
	}
}

// Load reads a YAML file and overlays its non-empty fields onto Default.
func Load(path string) (Messages, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Messages{}, err
	}
	var file Messages
	if err := yaml.Unmarshal(b, &file); err != nil {
		return Messages{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return overlay(Default(), file), nil
}

func overlay(base, over Messages) Messages {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.Greeting, over.Greeting)
	pick(&base.Cleared, over.Cleared)
	pick(&base.Rebooted, over.Rebooted)
	pick(&base.NoMatch, over.NoMatch)
	pick(&base.FoundOne, over.FoundOne)
	pick(&base.FoundMany, over.FoundMany)
	pick(&base.Unreachable, over.Unreachable)
	pick(&base.ErrorPrefix, over.ErrorPrefix)
	return base
}

// Store publishes the current Messages to concurrent readers.
type Store struct {
	cur atomic.Pointer[Messages]
}

func NewStore(m Messages) *Store {
	s := &Store{}
	s.Set(m)
	return s
}

func (s *Store) Get() Messages { return *s.cur.Load() }

func (s *Store) Set(m Messages) { s.cur.Store(&m) }
