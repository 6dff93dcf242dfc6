package config

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Paintersrp/recall/internal/pathutil"
)

// Paths are the absolute directories the browser reads from.
type Paths struct {
	OpenClawHome  string `json:"openclaw_home"`
	Workspace     string `json:"workspace"`
	Memory        string `json:"memory"`
	Conversations string `json:"conversations"`
	Sessions      string `json:"sessions"`
}

// Roots returns every configured directory in a stable order, skipping
// duplicates and empty values.
func (p Paths) Roots() []string {
	seen := make(map[string]struct{}, 4)
	out := make([]string, 0, 4)
	for _, dir := range []string{p.Workspace, p.Memory, p.Conversations, p.Sessions} {
		if dir == "" {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	return out
}

// ResolvePaths derives the directory layout from OPENCLAW_* style variables.
// getenv is usually os.Getenv; home is the user's home directory.
func ResolvePaths(getenv func(string) string, home string) Paths {
	lookup := func(key, fallback string) string {
		if getenv != nil {
			if value := strings.TrimSpace(getenv(key)); value != "" {
				return pathutil.ExpandHome(value, home)
			}
		}
		return pathutil.ExpandHome(fallback, home)
	}

	openclaw := lookup("OPENCLAW_HOME", filepath.Join(home, ".openclaw"))
	workspace := lookup("OPENCLAW_WORKSPACE", filepath.Join(openclaw, "workspace"))

	return Paths{
		OpenClawHome:  openclaw,
		Workspace:     workspace,
		Memory:        lookup("OPENCLAW_MEMORY_DIR", filepath.Join(workspace, "memory")),
		Conversations: lookup("OPENCLAW_CONVERSATIONS_DIR", filepath.Join(workspace, "conversations")),
		Sessions:      lookup("OPENCLAW_SESSIONS_DIR", filepath.Join(openclaw, "agents", "main", "sessions")),
	}
}

// ResolveLogger fills conversation-logger settings left empty in the file
// from the OPENCLAW_* variables. The poll interval and message length always
// follow their variables when those are set.
func ResolveLogger(cfg LoggerConfig, getenv func(string) string, home string) LoggerConfig {
	if getenv == nil {
		return cfg
	}
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if cfg.Timezone == "" {
		cfg.Timezone = env("OPENCLAW_TIMEZONE")
	}
	if cfg.MainSessionID == "" {
		cfg.MainSessionID = env("OPENCLAW_MAIN_SESSION_ID")
	}
	if cfg.StateFile == "" {
		if v := env("OPENCLAW_CONVERSATION_STATE_FILE"); v != "" {
			cfg.StateFile = pathutil.ExpandHome(v, home)
		}
	}
	if v := env("OPENCLAW_LOGGER_POLL_SECONDS"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			cfg.PollInterval = time.Duration(secs * float64(time.Second))
		}
	}
	if v := env("OPENCLAW_LOGGER_MAX_MESSAGE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxMessageLength = n
		}
	}
	return cfg
}
