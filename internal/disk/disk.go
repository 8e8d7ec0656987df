package disk

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound    = errors.New("disk: not found")
	ErrUnavailable = errors.New("disk: store unavailable")
)

// Backend is a cloud drive addressed by absolute slash-separated paths.
// Implementations return ErrNotFound for missing resources and wrap every
// other failure in ErrUnavailable.
type Backend interface {
	Exists(ctx context.Context, path string) (bool, error)
	Mkdir(ctx context.Context, path string) error
	List(ctx context.Context, path string) ([]string, error)
	Download(ctx context.Context, path string, w io.Writer) error
	Upload(ctx context.Context, path string, r io.Reader, overwrite bool) error
}

// Pinger is implemented by backends that can validate their credentials.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadFailure classifies why a read produced no usable text.
type ReadFailure int

const (
	ReadOK ReadFailure = iota
	ReadMissing
	ReadDecode
	ReadUnavailable
)

func (f ReadFailure) String() string {
	switch f {
	case ReadOK:
		return "ok"
	case ReadMissing:
		return "missing"
	case ReadDecode:
		return "decode"
	case ReadUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}
