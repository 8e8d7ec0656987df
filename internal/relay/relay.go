package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xlog/internal/llm"
	"xlog/internal/registry"
	"xlog/internal/transcript"
)

// ErrNoReply means the model did not produce a usable answer.
var ErrNoReply = errors.New("no reply from model")

type ContextBuilder interface {
	BuildContext(ctx context.Context, profileName string, limit int) string
}

type Transcript interface {
	Append(ctx context.Context, profileName string, role transcript.Role, text string, ts time.Time) bool
	Prepare(ctx context.Context, profileName string, day time.Time) bool
}

type Registry interface {
	Names() []string
	Has(name string) bool
	State(name string) (registry.State, error)
	SetInitialized(name string, initialized bool) error
}

type Options struct {
	ContextLimit int
	Location     *time.Location
}

// Relay runs one conversation turn: context, model call, transcript.
// Turns for the same profile must not run concurrently.
type Relay struct {
	assembler  ContextBuilder
	model      llm.Client
	transcript Transcript
	registry   Registry
	limit      int
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
}

func New(assembler ContextBuilder, model llm.Client, tr Transcript, reg Registry, opts Options, log zerolog.Logger) *Relay {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Relay{
		assembler:  assembler,
		model:      model,
		transcript: tr,
		registry:   reg,
		limit:      opts.ContextLimit,
		loc:        loc,
		now:        time.Now,
		log:        log,
	}
}

// Reply sends text to the model as profileName and records both sides of
// the exchange. Nothing is recorded when the model fails.
func (r *Relay) Reply(ctx context.Context, profileName, text string) (string, error) {
	if !r.registry.Has(profileName) {
		return "", fmt.Errorf("%w: %s", registry.ErrUnknownProfile, profileName)
	}
	asked := r.now().In(r.loc)

	var msgs []llm.Message
	if system := r.assembler.BuildContext(ctx, profileName, r.limit); system != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})

	resp, err := r.model.Generate(ctx, msgs)
	if err != nil {
		r.log.Error().Err(err).Str("profile", profileName).Msg("llm call failed")
		return "", fmt.Errorf("%w: %v", ErrNoReply, err)
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		r.log.Warn().Str("profile", profileName).Str("model", resp.Model).Msg("llm returned empty reply")
		return "", ErrNoReply
	}
	r.log.Info().
		Str("profile", profileName).
		Str("model", resp.Model).
		Int("prompt_tokens", resp.PromptTokens).
		Int("completion_tokens", resp.CompletionTokens).
		Msg("llm reply received")

	r.transcript.Append(ctx, profileName, transcript.RoleUser, text, asked)
	r.transcript.Append(ctx, profileName, transcript.RoleAssistant, reply, r.now().In(r.loc))
	return reply, nil
}

// Warmup creates the day's transcript partition of every profile and marks
// profiles initialized after their first successful warm-up. It returns the
// number of profiles that failed.
func (r *Relay) Warmup(ctx context.Context, day time.Time) int {
	day = day.In(r.loc)
	failed := 0
	for _, name := range r.registry.Names() {
		if !r.transcript.Prepare(ctx, name, day) {
			failed++
			r.log.Warn().Str("profile", name).Time("day", day).Msg("partition warm-up failed")
			continue
		}
		st, err := r.registry.State(name)
		if err != nil || st.Initialized {
			continue
		}
		if err := r.registry.SetInitialized(name, true); err != nil {
			r.log.Warn().Err(err).Str("profile", name).Msg("failed to mark profile initialized")
		}
	}
	r.log.Info().Int("profiles", len(r.registry.Names())).Int("failed", failed).Msg("transcript warm-up done")
	return failed
}

// Now is the current time in the transcript time zone.
func (r *Relay) Now() time.Time {
	return r.now().In(r.loc)
}
