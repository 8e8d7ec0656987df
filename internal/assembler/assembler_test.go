package assembler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"xlog/internal/disk"
	"xlog/internal/disk/disktest"
	"xlog/internal/profile"
	"xlog/internal/textenc"
	"xlog/internal/transcript"
)

func newAssembler(t *testing.T) (*Assembler, *disktest.Memory, *transcript.Log) {
	t.Helper()
	mem := disktest.NewMemory()
	ds := disk.New(mem, textenc.New(nil, zerolog.Nop()), disk.Options{Root: "XLog", TempDir: t.TempDir()}, zerolog.Nop())
	tl := transcript.New(ds, zerolog.Nop())
	return New(profile.NewFileStore(ds, zerolog.Nop()), tl, zerolog.Nop()), mem, tl
}

func TestBuildContext_PersonaAndRulesOnly(t *testing.T) {
	a, mem, _ := newAssembler(t)
	mem.Put("/XLog/Mira/king.txt", []byte("Mira is calm."))
	mem.Put("/XLog/Mira/rules.txt", []byte("Be kind."))
	mem.Put("/XLog/Mira/library.txt", []byte(""))

	got := a.BuildContext(context.Background(), "Mira", 5)

	assert.Equal(t, "YOU ARE THIS PERSONA:\nMira is calm.\n\nCONVERSATION RULES:\nBe kind.\n", got)
	assert.NotContains(t, got, LabelKnowledge)
	assert.NotContains(t, got, LabelRecent)
}

func TestBuildContext_AllSections(t *testing.T) {
	a, mem, tl := newAssembler(t)
	mem.Put("/XLog/Logan/king.txt", []byte("Logan."))
	mem.Put("/XLog/Logan/rules.txt", []byte("Short answers."))
	mem.Put("/XLog/Logan/library.txt", []byte("Knows Go."))
	now := time.Now()
	tl.Append(context.Background(), "Logan", transcript.RoleUser, "hi", now)
	tl.Append(context.Background(), "Logan", transcript.RoleAssistant, "hey", now)

	got := a.BuildContext(context.Background(), "Logan", 1)

	order := []string{LabelPersona, LabelRules, LabelKnowledge, LabelRecent}
	last := -1
	for _, label := range order {
		i := strings.Index(got, label)
		assert.Greater(t, i, last, label)
		last = i
	}
	assert.Contains(t, got, "assistant: hey")
	assert.NotContains(t, got, "user: hi")
}

func TestBuildContext_EmptyProfile(t *testing.T) {
	a, _, _ := newAssembler(t)
	assert.Equal(t, "", a.BuildContext(context.Background(), "Nobody", 10))
}
