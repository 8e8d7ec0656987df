package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xlog/internal/assembler"
	"xlog/internal/disk"
	"xlog/internal/disk/disktest"
	"xlog/internal/llm"
	"xlog/internal/profile"
	"xlog/internal/registry"
	"xlog/internal/textenc"
	"xlog/internal/transcript"
)

type fakeLLM struct {
	resp llm.Response
	err  error
	got  []llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, msgs []llm.Message) (llm.Response, error) {
	f.got = msgs
	return f.resp, f.err
}

type fixture struct {
	relay *Relay
	mem   *disktest.Memory
	ds    *disk.Store
	model *fakeLLM
	reg   *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := disktest.NewMemory()
	ds := disk.New(mem, textenc.New(nil, zerolog.Nop()), disk.Options{Root: "XLog", TempDir: t.TempDir()}, zerolog.Nop())
	tl := transcript.New(ds, zerolog.Nop())
	asm := assembler.New(profile.NewFileStore(ds, zerolog.Nop()), tl, zerolog.Nop())
	reg, err := registry.New([]registry.Profile{{Name: "Mira"}, {Name: "Logan"}}, "", zerolog.Nop())
	require.NoError(t, err)
	model := &fakeLLM{}
	r := New(asm, model, tl, reg, Options{ContextLimit: 5, Location: time.UTC}, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2026, 2, 17, 12, 30, 0, 0, time.UTC) }
	return &fixture{relay: r, mem: mem, ds: ds, model: model, reg: reg}
}

func TestReply_RecordsBothSides(t *testing.T) {
	f := newFixture(t)
	f.mem.Put("/XLog/Mira/king.txt", []byte("Mira is calm."))
	f.model.resp = llm.Response{Content: " Hello there. ", Model: "deepseek-chat"}

	reply, err := f.relay.Reply(context.Background(), "Mira", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", reply)

	require.Len(t, f.model.got, 2)
	assert.Equal(t, llm.RoleSystem, f.model.got[0].Role)
	assert.Contains(t, f.model.got[0].Content, "Mira is calm.")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hi"}, f.model.got[1])

	raw, ok := f.mem.File("/XLog/Mira/logs/2026/02/17/log.txt")
	require.True(t, ok)
	assert.Equal(t, "[12:30:00] user: hi\n[12:30:00] assistant: Hello there.\n", string(raw))
}

func TestReply_NoContextSendsOnlyUser(t *testing.T) {
	f := newFixture(t)
	f.model.resp = llm.Response{Content: "ok"}

	_, err := f.relay.Reply(context.Background(), "Logan", "hi")
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, f.model.got)
}

func TestReply_FailureRecordsNothing(t *testing.T) {
	cases := map[string]*fakeLLM{
		"error": {err: errors.New("timeout")},
		"empty": {resp: llm.Response{Content: "   "}},
	}
	for name, model := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.relay.model = model

			_, err := f.relay.Reply(context.Background(), "Mira", "hi")
			assert.ErrorIs(t, err, ErrNoReply)
			_, ok := f.mem.File("/XLog/Mira/logs/2026/02/17/log.txt")
			assert.False(t, ok)
		})
	}
}

func TestReply_UnknownProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.relay.Reply(context.Background(), "Vera", "hi")
	assert.ErrorIs(t, err, registry.ErrUnknownProfile)
	assert.Nil(t, f.model.got)
}

func TestWarmup(t *testing.T) {
	f := newFixture(t)
	f.mem.FailOn("/XLog/Logan")
	day := time.Date(2026, 2, 18, 0, 5, 0, 0, time.UTC)

	failed := f.relay.Warmup(context.Background(), day)

	assert.Equal(t, 1, failed)
	assert.True(t, f.mem.HasDir("/XLog/Mira/logs/2026/02/18"))
	mira, err := f.reg.State("Mira")
	require.NoError(t, err)
	assert.True(t, mira.Initialized)
	logan, err := f.reg.State("Logan")
	require.NoError(t, err)
	assert.False(t, logan.Initialized)
}
