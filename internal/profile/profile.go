package profile

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"xlog/internal/disk"
)

// Asset is one of the fixed per-profile text files.
type Asset string

const (
	AssetKey     Asset = "key"
	AssetPersona Asset = "king"
	AssetRules   Asset = "rules"
	AssetLibrary Asset = "library"
	AssetWelcome Asset = "welcome"
)

// Assets lists every asset in the order they are read.
var Assets = []Asset{AssetKey, AssetPersona, AssetRules, AssetLibrary, AssetWelcome}

func (a Asset) FileName() string { return string(a) + ".txt" }

// Path returns the asset location relative to the store root.
func (a Asset) Path(profileName string) string {
	return path.Join(profileName, a.FileName())
}

type AssetResult struct {
	Text    string
	Failure disk.ReadFailure
}

// Files holds every asset of a profile. Missing or unreadable assets are
// present with empty Text and a non-OK Failure.
type Files map[Asset]AssetResult

func (f Files) Text(a Asset) string { return f[a].Text }

// Loaded returns the assets that have non-empty text.
func (f Files) Loaded() []Asset {
	var out []Asset
	for _, a := range Assets {
		if f[a].Text != "" {
			out = append(out, a)
		}
	}
	return out
}

// Empty returns the assets that have no text.
func (f Files) Empty() []Asset {
	var out []Asset
	for _, a := range Assets {
		if f[a].Text == "" {
			out = append(out, a)
		}
	}
	return out
}

// Store is the subset of disk.Store the profile files need.
type Store interface {
	Read(ctx context.Context, rel string) (string, disk.ReadFailure)
	WriteFile(ctx context.Context, rel, content string) bool
}

type FileStore struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewFileStore(store Store, log zerolog.Logger) *FileStore {
	return &FileStore{store: store, now: time.Now, log: log}
}

// GetProfileFiles reads all five assets. A failure on one asset is recorded
// in its result and never stops the others from being read.
func (s *FileStore) GetProfileFiles(ctx context.Context, profileName string) Files {
	files := make(Files, len(Assets))
	for _, a := range Assets {
		files[a] = s.readAsset(ctx, profileName, a)
	}
	s.log.Info().
		Str("profile", profileName).
		Strs("loaded", assetNames(files.Loaded())).
		Strs("empty", assetNames(files.Empty())).
		Msg("profile files loaded")
	return files
}

func (s *FileStore) readAsset(ctx context.Context, profileName string, a Asset) AssetResult {
	text, failure := s.store.Read(ctx, a.Path(profileName))
	switch failure {
	case disk.ReadOK:
		if text == "" {
			s.log.Warn().Str("profile", profileName).Str("file", a.FileName()).Msg("file is empty")
		} else {
			s.log.Debug().Str("profile", profileName).Str("file", a.FileName()).Int("chars", len([]rune(text))).Msg("file loaded")
		}
		return AssetResult{Text: text}
	case disk.ReadMissing:
		s.log.Warn().Str("profile", profileName).Str("file", a.FileName()).Msg("file is missing")
	default:
		s.log.Error().Str("profile", profileName).Str("file", a.FileName()).Stringer("failure", failure).Msg("failed to read file")
	}
	return AssetResult{Failure: failure}
}

// Welcome returns the greeting text of a profile, empty if it has none.
func (s *FileStore) Welcome(ctx context.Context, profileName string) string {
	return s.readAsset(ctx, profileName, AssetWelcome).Text
}

// AppendToLibrary adds a timestamped block to the library asset and writes
// the whole file back. It refuses to write when the current library could
// not be read cleanly, so a transient failure cannot truncate it.
func (s *FileStore) AppendToLibrary(ctx context.Context, profileName, text string) bool {
	rel := AssetLibrary.Path(profileName)
	current, failure := s.store.Read(ctx, rel)
	switch failure {
	case disk.ReadOK:
	case disk.ReadMissing:
		current = ""
	default:
		s.log.Error().Str("profile", profileName).Stringer("failure", failure).Msg("library not updated: current content unreadable")
		return false
	}

	updated := current + LibraryBlock(s.now(), text)
	if !s.store.WriteFile(ctx, rel, updated) {
		s.log.Error().Str("profile", profileName).Msg("failed to add to library")
		return false
	}
	s.log.Info().Str("profile", profileName).Msg("added to library")
	return true
}

// LibraryBlock formats one library addition.
func LibraryBlock(ts time.Time, text string) string {
	return fmt.Sprintf("\n\n[%s] ADDED:\n%s", ts.Format(time.DateTime), text)
}

func assetNames(as []Asset) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = string(a)
	}
	return out
}
