package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"xlog/internal/profile"
)

const defaultLimit = 10

type ProfileParams struct {
	Profile string `json:"profile" mcp:"name of the profile"`
}

type RecentParams struct {
	Profile string `json:"profile" mcp:"name of the profile"`
	Limit   int    `json:"limit,omitempty" mcp:"maximum number of lines (default: 10, 0 or less: all of the day)"`
}

type LibraryParams struct {
	Profile string `json:"profile" mcp:"name of the profile"`
	Text    string `json:"text" mcp:"text to append to the profile library"`
}

type ListParams struct{}

type Registry interface {
	Names() []string
	Has(name string) bool
}

type Files interface {
	GetProfileFiles(ctx context.Context, profileName string) profile.Files
	AppendToLibrary(ctx context.Context, profileName, text string) bool
}

type Transcript interface {
	Recent(ctx context.Context, profileName string, limit int) string
}

type ContextBuilder interface {
	BuildContext(ctx context.Context, profileName string, limit int) string
}

// Tools exposes the profile store to MCP hosts.
type Tools struct {
	registry   Registry
	files      Files
	transcript Transcript
	assembler  ContextBuilder
	log        zerolog.Logger
}

func NewTools(reg Registry, files Files, tr Transcript, asm ContextBuilder, log zerolog.Logger) *Tools {
	return &Tools{registry: reg, files: files, transcript: tr, assembler: asm, log: log}
}

// Register adds every tool to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_profiles",
		Description: "Lists the configured profiles",
	}, t.ListProfiles)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_profile_files",
		Description: "Returns the persona, rules, library and welcome texts of a profile with the read status of each file",
	}, t.GetProfileFiles)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_recent_messages",
		Description: "Returns the last lines of the profile transcript from today or yesterday",
	}, t.GetRecentMessages)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_context",
		Description: "Builds the system context the bot sends to the language model for a profile",
	}, t.BuildContext)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_library",
		Description: "Appends a timestamped block to the profile library",
	}, t.AddToLibrary)
}

func (t *Tools) ListProfiles(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[ListParams]) (*mcp.CallToolResultFor[any], error) {
	names := t.registry.Names()
	var b strings.Builder
	fmt.Fprintf(&b, "%d profiles:\n", len(names))
	for _, n := range names {
		b.WriteString("- " + n + "\n")
	}
	return textResult(b.String()), nil
}

func (t *Tools) GetProfileFiles(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ProfileParams]) (*mcp.CallToolResultFor[any], error) {
	name := params.Arguments.Profile
	if res := t.checkProfile(name); res != nil {
		return res, nil
	}
	files := t.files.GetProfileFiles(ctx, name)

	var b strings.Builder
	for _, a := range profile.Assets {
		r := files[a]
		fmt.Fprintf(&b, "=== %s [%s] ===\n", a.FileName(), r.Failure)
		switch {
		case a == profile.AssetKey && r.Text != "":
			b.WriteString("(present, not shown)\n")
		case r.Text != "":
			b.WriteString(r.Text + "\n")
		}
		b.WriteString("\n")
	}
	return textResult(b.String()), nil
}

func (t *Tools) GetRecentMessages(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RecentParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if res := t.checkProfile(args.Profile); res != nil {
		return res, nil
	}
	recent := t.transcript.Recent(ctx, args.Profile, limitOrDefault(args.Limit))
	if recent == "" {
		return textResult(fmt.Sprintf("No recent messages for %s", args.Profile)), nil
	}
	return textResult(recent), nil
}

func (t *Tools) BuildContext(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RecentParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if res := t.checkProfile(args.Profile); res != nil {
		return res, nil
	}
	built := t.assembler.BuildContext(ctx, args.Profile, limitOrDefault(args.Limit))
	if built == "" {
		return textResult(fmt.Sprintf("Context for %s is empty", args.Profile)), nil
	}
	return textResult(built), nil
}

func (t *Tools) AddToLibrary(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[LibraryParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if res := t.checkProfile(args.Profile); res != nil {
		return res, nil
	}
	if strings.TrimSpace(args.Text) == "" {
		return errorResult("❌ text is required"), nil
	}
	if !t.files.AppendToLibrary(ctx, args.Profile, args.Text) {
		return errorResult(fmt.Sprintf("❌ Failed to update the library of %s", args.Profile)), nil
	}
	t.log.Info().Str("profile", args.Profile).Msg("library updated over mcp")
	return textResult(fmt.Sprintf("✅ Added to the library of %s", args.Profile)), nil
}

func (t *Tools) checkProfile(name string) *mcp.CallToolResultFor[any] {
	if name == "" {
		return errorResult("❌ profile is required")
	}
	if !t.registry.Has(name) {
		return errorResult(fmt.Sprintf("❌ Unknown profile %q", name))
	}
	return nil
}

func limitOrDefault(n int) int {
	if n == 0 {
		return defaultLimit
	}
	return n
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
