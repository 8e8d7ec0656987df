package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"xlog/internal/textenc"
)

type Options struct {
	// Root is the folder every relative path is resolved against.
	Root string
	// TempDir holds staged transfers; empty means os.TempDir().
	TempDir string
}

// Store exposes a Backend as a small filesystem rooted at Options.Root.
// Failures are logged and reported as false, empty values or a ReadFailure;
// they are never returned as errors except by Exists.
//
// Store does no locking. AppendToFile is a read-modify-write and callers
// must ensure a single writer per path.
type Store struct {
	backend Backend
	decoder *textenc.Decoder
	root    string
	tempDir string
	log     zerolog.Logger
}

func New(backend Backend, decoder *textenc.Decoder, opts Options, log zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		decoder: decoder,
		root:    strings.Trim(opts.Root, "/"),
		tempDir: opts.TempDir,
		log:     log,
	}
}

// FullPath resolves rel against the root folder.
func (s *Store) FullPath(rel string) string {
	return path.Join("/", s.root, rel)
}

// Ping validates the backend credentials when the backend supports it.
func (s *Store) Ping(ctx context.Context) error {
	p, ok := s.backend.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// Exists reports whether rel exists. A non-nil error means the answer is
// unknown.
func (s *Store) Exists(ctx context.Context, rel string) (bool, error) {
	full := s.FullPath(rel)
	ok, err := s.backend.Exists(ctx, full)
	if err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("exists check failed")
		return false, err
	}
	return ok, nil
}

// EnsureFolderExists creates the root folder and every missing segment of
// rel, checking each one before creating it.
func (s *Store) EnsureFolderExists(ctx context.Context, rel string) bool {
	target := s.FullPath(rel)
	cur := ""
	for _, seg := range strings.Split(strings.Trim(target, "/"), "/") {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		ok, err := s.backend.Exists(ctx, cur)
		if err != nil {
			s.log.Error().Err(err).Str("path", cur).Msg("failed to ensure folder")
			return false
		}
		if ok {
			continue
		}
		if err := s.backend.Mkdir(ctx, cur); err != nil {
			s.log.Error().Err(err).Str("path", cur).Msg("failed to create folder")
			return false
		}
		s.log.Debug().Str("path", cur).Msg("created folder")
	}
	return true
}

// ListFiles returns the names inside rel. A missing folder and a failed
// listing both yield nil.
func (s *Store) ListFiles(ctx context.Context, rel string) []string {
	full := s.FullPath(rel)
	names, err := s.backend.List(ctx, full)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error().Err(err).Str("path", full).Msg("failed to list folder")
		}
		return nil
	}
	return names
}

// ReadRaw downloads rel as-is.
func (s *Store) ReadRaw(ctx context.Context, rel string) ([]byte, error) {
	full := s.FullPath(rel)
	f, err := s.stage("dl")
	if err != nil {
		return nil, err
	}
	defer s.discard(f)

	if err := s.backend.Download(ctx, full, f); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: rewind staged download: %v", ErrUnavailable, err)
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read staged download: %v", ErrUnavailable, err)
	}
	return b, nil
}

// Read downloads and decodes rel. On ReadDecode the returned text is the
// lossy rendition; on every other failure it is empty.
func (s *Store) Read(ctx context.Context, rel string) (string, ReadFailure) {
	raw, err := s.ReadRaw(ctx, rel)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", ReadMissing
	case err != nil:
		s.log.Error().Err(err).Str("path", s.FullPath(rel)).Msg("failed to read file")
		return "", ReadUnavailable
	}
	res := s.decoder.Decode(raw, rel)
	if res.Lossy {
		return res.Text, ReadDecode
	}
	return res.Text, ReadOK
}

// ReadFile returns the decoded content of rel and whether it was read
// cleanly.
func (s *Store) ReadFile(ctx context.Context, rel string) (string, bool) {
	text, failure := s.Read(ctx, rel)
	return text, failure == ReadOK
}

// WriteFile replaces rel with content, creating parent folders first.
func (s *Store) WriteFile(ctx context.Context, rel, content string) bool {
	if !s.ensureParent(ctx, rel) {
		return false
	}
	full := s.FullPath(rel)
	f, err := s.stage("ul")
	if err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("failed to write file")
		return false
	}
	defer s.discard(f)

	if _, err := f.WriteString(content); err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("failed to stage upload")
		return false
	}
	if err := s.upload(ctx, full, f); err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("failed to write file")
		return false
	}
	s.log.Debug().Str("path", full).Int("bytes", len(content)).Msg("written")
	return true
}

// AppendToFile appends text to rel by downloading the current content,
// concatenating and uploading the whole file again. Existing bytes are
// kept untouched whatever their encoding.
func (s *Store) AppendToFile(ctx context.Context, rel, text string) bool {
	if !s.ensureParent(ctx, rel) {
		return false
	}
	full := s.FullPath(rel)
	f, err := s.stage("ap")
	if err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("failed to append")
		return false
	}
	defer s.discard(f)

	ok, err := s.backend.Exists(ctx, full)
	if err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("failed to append")
		return false
	}
	if ok {
		if err := s.backend.Download(ctx, full, f); err != nil {
			s.log.Error().Err(err).Str("path", full).Msg("failed to fetch file for append")
			return false
		}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("failed to stage append")
		return false
	}
	if _, err := f.WriteString(text); err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("failed to stage append")
		return false
	}
	if err := s.upload(ctx, full, f); err != nil {
		s.log.Error().Err(err).Str("path", full).Msg("failed to append")
		return false
	}
	s.log.Debug().Str("path", full).Int("bytes", len(text)).Msg("appended")
	return true
}

func (s *Store) ensureParent(ctx context.Context, rel string) bool {
	dir := path.Dir(path.Join("/", rel))
	if dir == "/" {
		return s.EnsureFolderExists(ctx, "")
	}
	return s.EnsureFolderExists(ctx, dir)
}

func (s *Store) upload(ctx context.Context, full string, f *os.File) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind staged upload: %v", ErrUnavailable, err)
	}
	return s.backend.Upload(ctx, full, f, true)
}

func (s *Store) stage(kind string) (*os.File, error) {
	f, err := os.CreateTemp(s.tempDir, "xlog-"+kind+"-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create staging file: %v", ErrUnavailable, err)
	}
	return f, nil
}

func (s *Store) discard(f *os.File) {
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("file", f.Name()).Msg("failed to remove staging file")
	}
}
