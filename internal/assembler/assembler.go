package assembler

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"xlog/internal/profile"
)

const (
	LabelPersona   = "YOU ARE THIS PERSONA:"
	LabelRules     = "CONVERSATION RULES:"
	LabelKnowledge = "YOUR KNOWLEDGE AND EXPERIENCE:"
	LabelRecent    = "RECENT MESSAGES IN CHAT:"
)

type ProfileFiles interface {
	GetProfileFiles(ctx context.Context, profileName string) profile.Files
}

type Transcript interface {
	Recent(ctx context.Context, profileName string, limit int) string
}

// Assembler builds the system context handed to the language model.
type Assembler struct {
	files      ProfileFiles
	transcript Transcript
	log        zerolog.Logger
}

func New(files ProfileFiles, transcript Transcript, log zerolog.Logger) *Assembler {
	return &Assembler{files: files, transcript: transcript, log: log}
}

// BuildContext joins the non-empty persona, rules, library and recent
// transcript sections in that order. A profile with nothing yields "".
func (a *Assembler) BuildContext(ctx context.Context, profileName string, limit int) string {
	files := a.files.GetProfileFiles(ctx, profileName)

	var sections []string
	add := func(label, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		sections = append(sections, label+"\n"+text+"\n")
	}
	add(LabelPersona, files.Text(profile.AssetPersona))
	add(LabelRules, files.Text(profile.AssetRules))
	add(LabelKnowledge, files.Text(profile.AssetLibrary))
	add(LabelRecent, a.transcript.Recent(ctx, profileName, limit))

	a.log.Debug().Str("profile", profileName).Int("sections", len(sections)).Msg("context built")
	return strings.Join(sections, "\n")
}
