// Package disktest provides an in-memory disk.Backend for tests.
package disktest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"xlog/internal/disk"
)

// Memory mimics a cloud drive: creating a folder or uploading a file whose
// parent folder is missing fails, like the real services do.
type Memory struct {
	mu     sync.Mutex
	files  map[string][]byte
	dirs   map[string]bool
	fails  map[string]error
	Mkdirs []string
}

func NewMemory() *Memory {
	return &Memory{
		files: map[string][]byte{},
		dirs:  map[string]bool{"/": true},
		fails: map[string]error{},
	}
}

// Put stores a file at an absolute path, creating its folders.
func (m *Memory) Put(p string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean(p)
	for dir := path.Dir(p); dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}
	m.files[p] = append([]byte(nil), content...)
}

// File returns the stored content of an absolute path.
func (m *Memory) File(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path.Clean(p)]
	return b, ok
}

func (m *Memory) HasDir(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[path.Clean(p)]
}

// Dirs returns every folder, sorted.
func (m *Memory) Dirs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.dirs))
	for d := range m.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// FailOn makes every operation on p (or below it) return a transport
// error.
func (m *Memory) FailOn(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[path.Clean(p)] = fmt.Errorf("%w: injected failure for %s", disk.ErrUnavailable, p)
}

func (m *Memory) failure(p string) error {
	for cur := path.Clean(p); ; cur = path.Dir(cur) {
		if err, ok := m.fails[cur]; ok {
			return err
		}
		if cur == "/" {
			return nil
		}
	}
}

func (m *Memory) Exists(_ context.Context, p string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(p); err != nil {
		return false, err
	}
	p = path.Clean(p)
	_, isFile := m.files[p]
	return isFile || m.dirs[p], nil
}

func (m *Memory) Mkdir(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(p); err != nil {
		return err
	}
	p = path.Clean(p)
	if !m.dirs[path.Dir(p)] {
		return fmt.Errorf("%w: parent of %s does not exist", disk.ErrUnavailable, p)
	}
	if m.dirs[p] {
		return fmt.Errorf("%w: %s already exists", disk.ErrUnavailable, p)
	}
	m.dirs[p] = true
	m.Mkdirs = append(m.Mkdirs, p)
	return nil
}

func (m *Memory) List(_ context.Context, p string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(p); err != nil {
		return nil, err
	}
	p = path.Clean(p)
	if !m.dirs[p] {
		return nil, disk.ErrNotFound
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	seen := map[string]bool{}
	collect := func(full string) {
		if full == p || !strings.HasPrefix(full, prefix) {
			return
		}
		name := strings.SplitN(strings.TrimPrefix(full, prefix), "/", 2)[0]
		seen[name] = true
	}
	for f := range m.files {
		collect(f)
	}
	for d := range m.dirs {
		collect(d)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Download(_ context.Context, p string, w io.Writer) error {
	m.mu.Lock()
	if err := m.failure(p); err != nil {
		m.mu.Unlock()
		return err
	}
	b, ok := m.files[path.Clean(p)]
	m.mu.Unlock()
	if !ok {
		return disk.ErrNotFound
	}
	_, err := io.Copy(w, bytes.NewReader(b))
	return err
}

func (m *Memory) Upload(_ context.Context, p string, r io.Reader, overwrite bool) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(p); err != nil {
		return err
	}
	p = path.Clean(p)
	if !m.dirs[path.Dir(p)] {
		return fmt.Errorf("%w: parent of %s does not exist", disk.ErrUnavailable, p)
	}
	if _, exists := m.files[p]; exists && !overwrite {
		return fmt.Errorf("%w: %s already exists", disk.ErrUnavailable, p)
	}
	m.files[p] = b
	return nil
}
