package constants

import "time"

const (
	Version        = `0.3.0`
	ConfigFile     = `config`
	ConfigFileType = `yaml`
	ConfigDir      = `/.recall/`
	EnvFile        = `.env`

	DefaultServerAddr = `127.0.0.1:7777`
	DefaultDebounce   = 150 * time.Millisecond
	DefaultWatchDepth = 4
	DefaultTokenTTL   = 30 * 24 * time.Hour

	// DeletedMarker is the infix OpenClaw inserts when it soft-deletes a file,
	// e.g. "abc.jsonl.deleted.2026-01-02T10-00-00".
	DeletedMarker = `.deleted.`

	MarkdownExt   = `.md`
	TranscriptExt = `.jsonl`

	LongTermMemoryFile = `MEMORY.md`
	SessionsIndexFile  = `sessions.json`
	MainSessionKey     = `agent:main:main`
)

// WorkspaceDocs are the agent bootstrap files that live in the workspace root.
var WorkspaceDocs = []string{
	"AGENTS.md",
	"SOUL.md",
	"USER.md",
	"TOOLS.md",
	"IDENTITY.md",
	"HEARTBEAT.md",
	"BOOTSTRAP.md",
}
