// Package convlog tails the main agent session transcript and appends each
// user and assistant message to a daily markdown log in the conversations
// directory.
package convlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/transcript"
)

const (
	stateFileName = ".state.json"
	truncatedNote = "\n\n[truncated]"
	errorBackoff  = 5 * time.Second
	userLabel     = "User"
	partSeparator = "\n"
	dayLayout     = "2006-01-02"
	clockLayout   = "15:04"
)

var ErrNoSession = errors.New("convlog: no session transcript found")

// skipPatterns mark housekeeping traffic that never belongs in a log.
var skipPatterns = []string{
	"HEARTBEAT",
	"Read HEARTBEAT.md",
	"GatewayRestart",
	"Exec failed",
	"Pre-compaction memory flush",
	"NO_REPLY",
	"HEARTBEAT_OK",
}

// Entry is one message ready to be written.
type Entry struct {
	Time    time.Time
	Role    string
	Content string
}

type Logger struct {
	sessionsDir      string
	conversationsDir string
	stateFile        string
	mainSessionID    string
	assistantLabel   string
	maxLength        int
	poll             time.Duration
	loc              *time.Location
	logger           *slog.Logger
	now              func() time.Time
}

// New builds a logger for the given layout. An unknown timezone falls back
// to the local zone with a warning.
func New(paths config.Paths, cfg config.LoggerConfig, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}

	loc := time.Local
	if name := strings.TrimSpace(cfg.Timezone); name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		} else {
			logger.Warn("convlog: invalid timezone, using local", "timezone", name, "error", err)
		}
	}

	stateFile := cfg.StateFile
	if stateFile == "" {
		stateFile = filepath.Join(paths.Conversations, stateFileName)
	}
	label := strings.TrimSpace(cfg.AssistantLabel)
	if label == "" {
		label = "Assistant"
	}
	maxLength := cfg.MaxMessageLength
	if maxLength <= 0 {
		maxLength = 2000
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}

	return &Logger{
		sessionsDir:      paths.Sessions,
		conversationsDir: paths.Conversations,
		stateFile:        stateFile,
		mainSessionID:    strings.TrimSpace(cfg.MainSessionID),
		assistantLabel:   label,
		maxLength:        maxLength,
		poll:             poll,
		loc:              loc,
		logger:           logger,
		now:              time.Now,
	}
}

// MainSession locates the transcript of the main agent session: the entry
// in sessions.json first, then the configured session id, then the most
// recently modified live transcript.
func (l *Logger) MainSession() (string, error) {
	if path, ok := l.indexedSession(); ok {
		return path, nil
	}

	if l.mainSessionID != "" {
		path := filepath.Join(l.sessionsDir, l.mainSessionID+constants.TranscriptExt)
		if fileExists(path) {
			return path, nil
		}
	}

	entries, err := os.ReadDir(l.sessionsDir)
	if err != nil {
		return "", ErrNoSession
	}
	var (
		newest  string
		newestT time.Time
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), constants.TranscriptExt) {
			continue
		}
		if strings.Contains(name, constants.DeletedMarker) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest = filepath.Join(l.sessionsDir, name)
			newestT = info.ModTime()
		}
	}
	if newest == "" {
		return "", ErrNoSession
	}
	return newest, nil
}

func (l *Logger) indexedSession() (string, bool) {
	data, err := os.ReadFile(filepath.Join(l.sessionsDir, constants.SessionsIndexFile))
	if err != nil {
		return "", false
	}
	var index map[string]struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		l.logger.Debug("convlog: unreadable sessions index", "error", err)
		return "", false
	}
	id := strings.TrimSpace(index[constants.MainSessionKey].SessionID)
	if id == "" {
		return "", false
	}
	path := filepath.Join(l.sessionsDir, id+constants.TranscriptExt)
	return path, fileExists(path)
}

// ProcessFile appends every new message in path since the offset recorded
// in st and advances it. A trailing line that is still being written is left
// for the next pass. It returns the number of entries written.
func (l *Logger) ProcessFile(path string, st *State) (int, error) {
	stem := sessionID(path)
	offset := st.Files[stem].Offset

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if size < offset {
		l.logger.Info("convlog: transcript shrank, restarting from the top", "session", stem)
		offset = 0
	}
	if size == offset {
		return 0, nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}

	written := 0
	reader := bufio.NewReader(f)
	for {
		line, readErr := reader.ReadBytes('\n')
		complete := readErr == nil
		if len(line) > 0 && (complete || json.Valid(bytes.TrimSpace(line))) {
			if entry, ok := l.entryFromLine(line); ok {
				if err := l.Write(entry); err != nil {
					l.mark(st, stem, offset)
					return written, err
				}
				written++
			}
			offset += int64(len(line))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return written, readErr
		}
	}

	l.mark(st, stem, offset)
	return written, nil
}

func (l *Logger) mark(st *State, stem string, offset int64) {
	st.Files[stem] = FileState{
		Offset:        offset,
		LastProcessed: l.now().In(l.loc).Format(time.RFC3339),
	}
}

// entryFromLine turns a transcript line into a log entry, or reports false
// for anything that should not be logged.
func (l *Logger) entryFromLine(line []byte) (Entry, bool) {
	rec, err := transcript.ParseLine(line)
	if err != nil || !rec.IsChatMessage() {
		return Entry{}, false
	}

	content := rec.Message.Text(partSeparator)
	if skip(content) {
		return Entry{}, false
	}

	ts, ok := transcript.Timestamp(rec.Timestamp, rec.Message.Timestamp)
	if !ok {
		ts = l.now()
	}

	role := userLabel
	if rec.Message.Role == transcript.RoleAssistant {
		role = l.assistantLabel
	}

	return Entry{
		Time:    ts.In(l.loc),
		Role:    role,
		Content: truncate(content, l.maxLength),
	}, true
}

func skip(content string) bool {
	if strings.TrimSpace(content) == "" {
		return true
	}
	for _, pattern := range skipPatterns {
		if strings.Contains(content, pattern) {
			return true
		}
	}
	return false
}

func truncate(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return strings.TrimRightFunc(string(runes[:limit]), unicode.IsSpace) + truncatedNote
}

// Write appends entry to the daily log for its date.
func (l *Logger) Write(entry Entry) error {
	if err := os.MkdirAll(l.conversationsDir, 0o755); err != nil {
		return fmt.Errorf("create conversations dir: %w", err)
	}
	target := filepath.Join(l.conversationsDir, entry.Time.Format(dayLayout)+constants.MarkdownExt)

	f, err := os.OpenFile(target, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open daily log: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	if needsNewline(f) {
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "## %s - [%s]\n%s\n\n", entry.Time.Format(clockLayout), entry.Role, entry.Content)

	if _, err := f.WriteString(buf.String()); err != nil {
		return fmt.Errorf("append daily log: %w", err)
	}
	l.logger.Debug("convlog: logged", "file", filepath.Base(target), "role", entry.Role, "at", entry.Time.Format(clockLayout))
	return nil
}

func needsNewline(f *os.File) bool {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false
	}
	return last[0] != '\n'
}

// RunOnce processes whatever the main session holds beyond the saved offset
// and persists the new position.
func (l *Logger) RunOnce(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	st := l.loadState()
	path, err := l.MainSession()
	if err != nil {
		return 0, err
	}

	written, err := l.ProcessFile(path, st)
	if saveErr := st.Save(l.stateFile); saveErr != nil {
		l.logger.Warn("convlog: could not save state", "error", saveErr)
	}
	return written, err
}

// Run tails the main session until ctx is cancelled. It follows the main
// session when the agent switches to a new one.
func (l *Logger) Run(ctx context.Context) error {
	l.logger.Info("convlog: starting",
		"sessions", l.sessionsDir,
		"conversations", l.conversationsDir,
		"state", l.stateFile,
		"poll", l.poll,
	)

	if err := os.MkdirAll(l.conversationsDir, 0o755); err != nil {
		return fmt.Errorf("create conversations dir: %w", err)
	}

	st := l.loadState()
	l.logger.Info("convlog: loaded state", "tracked", len(st.Files))

	current, err := l.MainSession()
	if err != nil {
		return err
	}
	l.logger.Info("convlog: watching main session", "session", filepath.Base(current))

	if n, err := l.ProcessFile(current, st); err != nil {
		l.logger.Warn("convlog: initial pass failed", "error", err)
	} else if n > 0 {
		l.logger.Info("convlog: caught up", "entries", n)
	}
	l.save(st)

	lastSize := fileSize(current)
	wait := l.poll
	for {
		select {
		case <-ctx.Done():
			l.save(st)
			l.logger.Info("convlog: stopped")
			return nil
		case <-time.After(wait):
		}
		wait = l.poll

		next, err := l.MainSession()
		if err != nil {
			continue
		}
		if sessionID(next) != sessionID(current) {
			l.logger.Info("convlog: session changed", "session", filepath.Base(next))
			current = next
			lastSize = 0
			continue
		}

		size := fileSize(current)
		switch {
		case size < 0:
			continue
		case size > lastSize:
			n, err := l.ProcessFile(current, st)
			if err != nil {
				l.logger.Error("convlog: processing failed", "error", err)
				wait = errorBackoff
				continue
			}
			if n > 0 {
				l.save(st)
			}
			lastSize = size
		case size < lastSize:
			l.logger.Info("convlog: transcript shrank, resetting offset", "session", sessionID(current))
			st.Files[sessionID(current)] = FileState{}
			lastSize = 0
		}
	}
}

func (l *Logger) loadState() *State {
	st, err := LoadState(l.stateFile)
	if err != nil {
		l.logger.Warn("convlog: could not load state", "error", err)
	}
	return st
}

func (l *Logger) save(st *State) {
	if err := st.Save(l.stateFile); err != nil {
		l.logger.Warn("convlog: could not save state", "error", err)
	}
}

func sessionID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}
