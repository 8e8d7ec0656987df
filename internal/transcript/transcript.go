package transcript

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xlog/internal/disk"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

const logFileName = "log.txt"

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Entry is a single transcript line.
type Entry struct {
	Time time.Time
	Role Role
	Text string
}

// Line renders the entry as "[HH:MM:SS] role: text\n". Line breaks inside
// the text are folded so that one entry is always one line.
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] %s: %s\n", e.Time.Format(time.TimeOnly), e.Role, lineBreaks.Replace(e.Text))
}

// PartitionDir is the folder holding one profile's log for one day.
func PartitionDir(profileName string, day time.Time) string {
	return path.Join(profileName, "logs", day.Format("2006"), day.Format("01"), day.Format("02"))
}

func PartitionPath(profileName string, day time.Time) string {
	return path.Join(PartitionDir(profileName, day), logFileName)
}

// Store is the subset of disk.Store the transcript needs.
type Store interface {
	EnsureFolderExists(ctx context.Context, rel string) bool
	AppendToFile(ctx context.Context, rel, text string) bool
	Read(ctx context.Context, rel string) (string, disk.ReadFailure)
}

// Log is the date-partitioned, append-only transcript of every profile.
// Appends to one partition must come from a single writer.
type Log struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

func New(store Store, log zerolog.Logger) *Log {
	return &Log{store: store, now: time.Now, log: log}
}

// SetLocation makes Recent resolve "today" in loc.
func (l *Log) SetLocation(loc *time.Location) {
	l.now = func() time.Time { return time.Now().In(loc) }
}

// Append writes one entry to the partition of ts's calendar date. The
// store creates missing partition folders on the way.
func (l *Log) Append(ctx context.Context, profileName string, role Role, text string, ts time.Time) bool {
	rel := PartitionPath(profileName, ts)
	if !l.store.AppendToFile(ctx, rel, Entry{Time: ts, Role: role, Text: text}.Line()) {
		l.log.Error().Str("profile", profileName).Str("path", rel).Msg("failed to save message")
		return false
	}
	l.log.Debug().Str("profile", profileName).Str("path", rel).Str("role", string(role)).Msg("message saved")
	return true
}

// Prepare creates the partition folder for day ahead of the first append.
func (l *Log) Prepare(ctx context.Context, profileName string, day time.Time) bool {
	return l.store.EnsureFolderExists(ctx, PartitionDir(profileName, day))
}

// Recent returns at most limit trailing lines of today's partition, or of
// yesterday's when today has nothing. A limit <= 0 returns every line.
// An empty result means there is no recent context.
func (l *Log) Recent(ctx context.Context, profileName string, limit int) string {
	today := l.now()
	content := l.read(ctx, PartitionPath(profileName, today))
	if content == "" {
		content = l.read(ctx, PartitionPath(profileName, today.AddDate(0, 0, -1)))
	}
	if content == "" {
		return ""
	}
	return lastLines(content, limit)
}

func (l *Log) read(ctx context.Context, rel string) string {
	text, failure := l.store.Read(ctx, rel)
	switch failure {
	case disk.ReadOK, disk.ReadMissing:
	case disk.ReadDecode:
		l.log.Warn().Str("path", rel).Msg("transcript decoded lossy")
	default:
		l.log.Warn().Str("path", rel).Stringer("failure", failure).Msg("transcript unavailable")
	}
	return strings.TrimSpace(text)
}

func lastLines(content string, limit int) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return strings.Join(lines, "\n")
}
