package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xlog/internal/assembler"
	"xlog/internal/disk"
	"xlog/internal/disk/disktest"
	"xlog/internal/profile"
	"xlog/internal/registry"
	"xlog/internal/textenc"
	"xlog/internal/transcript"
)

func newTools(t *testing.T) (*Tools, *disktest.Memory, *transcript.Log) {
	t.Helper()
	mem := disktest.NewMemory()
	ds := disk.New(mem, textenc.New(nil, zerolog.Nop()), disk.Options{Root: "XLog", TempDir: t.TempDir()}, zerolog.Nop())
	files := profile.NewFileStore(ds, zerolog.Nop())
	tl := transcript.New(ds, zerolog.Nop())
	reg, err := registry.New([]registry.Profile{{Name: "Mira"}, {Name: "Logan"}}, "", zerolog.Nop())
	require.NoError(t, err)
	return NewTools(reg, files, tl, assembler.New(files, tl, zerolog.Nop()), zerolog.Nop()), mem, tl
}

func resultText(t *testing.T, res *mcp.CallToolResultFor[any]) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListProfiles(t *testing.T) {
	tools, _, _ := newTools(t)
	res, err := tools.ListProfiles(context.Background(), nil, &mcp.CallToolParamsFor[ListParams]{})
	require.NoError(t, err)
	assert.Equal(t, "2 profiles:\n- Mira\n- Logan\n", resultText(t, res))
}

func TestGetProfileFiles_HidesKey(t *testing.T) {
	tools, mem, _ := newTools(t)
	mem.Put("/XLog/Mira/key.txt", []byte("sk-secret"))
	mem.Put("/XLog/Mira/king.txt", []byte("Mira is calm."))

	res, err := tools.GetProfileFiles(context.Background(), nil, &mcp.CallToolParamsFor[ProfileParams]{Arguments: ProfileParams{Profile: "Mira"}})
	require.NoError(t, err)
	out := resultText(t, res)

	assert.False(t, res.IsError)
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, "=== king.txt [ok] ===\nMira is calm.")
	assert.Contains(t, out, "=== rules.txt [missing] ===")
}

func TestUnknownProfile(t *testing.T) {
	tools, _, _ := newTools(t)
	res, err := tools.BuildContext(context.Background(), nil, &mcp.CallToolParamsFor[RecentParams]{Arguments: RecentParams{Profile: "Vera"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Unknown profile")
}

func TestGetRecentMessages(t *testing.T) {
	tools, _, tl := newTools(t)
	ctx := context.Background()

	res, err := tools.GetRecentMessages(ctx, nil, &mcp.CallToolParamsFor[RecentParams]{Arguments: RecentParams{Profile: "Mira"}})
	require.NoError(t, err)
	assert.Equal(t, "No recent messages for Mira", resultText(t, res))

	now := time.Now()
	require.True(t, tl.Append(ctx, "Mira", transcript.RoleUser, "one", now))
	require.True(t, tl.Append(ctx, "Mira", transcript.RoleAssistant, "two", now))
	res, err = tools.GetRecentMessages(ctx, nil, &mcp.CallToolParamsFor[RecentParams]{Arguments: RecentParams{Profile: "Mira", Limit: 1}})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "assistant: two")
	assert.NotContains(t, resultText(t, res), "user: one")
}

func TestAddToLibrary(t *testing.T) {
	tools, mem, _ := newTools(t)
	ctx := context.Background()

	res, err := tools.AddToLibrary(ctx, nil, &mcp.CallToolParamsFor[LibraryParams]{Arguments: LibraryParams{Profile: "Logan", Text: "Knows Go."}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	raw, ok := mem.File("/XLog/Logan/library.txt")
	require.True(t, ok)
	assert.Contains(t, string(raw), "ADDED:\nKnows Go.")

	res, err = tools.AddToLibrary(ctx, nil, &mcp.CallToolParamsFor[LibraryParams]{Arguments: LibraryParams{Profile: "Logan", Text: " "}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRegister(t *testing.T) {
	tools, _, _ := newTools(t)
	server := mcp.NewServer(&mcp.Implementation{Name: "xlog-test", Version: "0.0.0"}, nil)
	assert.NotPanics(t, func() { tools.Register(server) })
}
