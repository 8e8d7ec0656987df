package disk_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xlog/internal/disk"
	"xlog/internal/disk/disktest"
	"xlog/internal/textenc"
)

func newStore(t *testing.T) (*disk.Store, *disktest.Memory, string) {
	t.Helper()
	mem := disktest.NewMemory()
	tmp := t.TempDir()
	s := disk.New(mem, textenc.New(nil, zerolog.Nop()), disk.Options{Root: "XLog", TempDir: tmp}, zerolog.Nop())
	return s, mem, tmp
}

func assertNoStagingLeft(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging files must be removed")
}

func TestStore_FullPath(t *testing.T) {
	s := disk.New(disktest.NewMemory(), nil, disk.Options{Root: "/XLog/"}, zerolog.Nop())
	assert.Equal(t, "/XLog/Mira/king.txt", s.FullPath("Mira/king.txt"))
	assert.Equal(t, "/XLog", s.FullPath(""))
}

func TestStore_WriteThenRead(t *testing.T) {
	s, mem, tmp := newStore(t)
	ctx := context.Background()

	want := "Mira is calm.\nВторая строка."
	require.True(t, s.WriteFile(ctx, "Mira/king.txt", want))

	got, ok := s.ReadFile(ctx, "Mira/king.txt")
	require.True(t, ok)
	assert.Equal(t, want, got)

	raw, ok := mem.File("/XLog/Mira/king.txt")
	require.True(t, ok)
	assert.Equal(t, []byte(want), raw)
	assertNoStagingLeft(t, tmp)
}

func TestStore_WriteOverwrites(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	require.True(t, s.WriteFile(ctx, "a.txt", "first version"))
	require.True(t, s.WriteFile(ctx, "a.txt", "second"))

	got, ok := s.ReadFile(ctx, "a.txt")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestStore_EnsureFolderExists_CreatesEverySegment(t *testing.T) {
	s, mem, _ := newStore(t)
	ctx := context.Background()

	require.True(t, s.EnsureFolderExists(ctx, "Mira/logs/2026/02/17"))

	for _, d := range []string{"/XLog", "/XLog/Mira", "/XLog/Mira/logs", "/XLog/Mira/logs/2026", "/XLog/Mira/logs/2026/02", "/XLog/Mira/logs/2026/02/17"} {
		assert.True(t, mem.HasDir(d), d)
	}
}

func TestStore_EnsureFolderExists_Idempotent(t *testing.T) {
	s, mem, _ := newStore(t)
	ctx := context.Background()

	require.True(t, s.EnsureFolderExists(ctx, "Mira/logs/2026"))
	dirs := mem.Dirs()
	created := len(mem.Mkdirs)

	require.True(t, s.EnsureFolderExists(ctx, "Mira/logs/2026"))
	assert.Equal(t, dirs, mem.Dirs())
	assert.Len(t, mem.Mkdirs, created, "second call must not create anything")
}

func TestStore_EnsureFolderExists_Unavailable(t *testing.T) {
	s, mem, _ := newStore(t)
	mem.FailOn("/XLog/Mira")

	assert.False(t, s.EnsureFolderExists(context.Background(), "Mira/logs"))
}

func TestStore_AppendToFile(t *testing.T) {
	s, _, tmp := newStore(t)
	ctx := context.Background()

	require.True(t, s.AppendToFile(ctx, "Mira/logs/2026/02/17/log.txt", "[10:00:00] user: hi\n"))
	require.True(t, s.AppendToFile(ctx, "Mira/logs/2026/02/17/log.txt", "[10:00:01] assistant: hello\n"))

	got, ok := s.ReadFile(ctx, "Mira/logs/2026/02/17/log.txt")
	require.True(t, ok)
	assert.Equal(t, "[10:00:00] user: hi\n[10:00:01] assistant: hello\n", got)
	assertNoStagingLeft(t, tmp)
}

func TestStore_AppendKeepsForeignBytes(t *testing.T) {
	s, mem, _ := newStore(t)
	ctx := context.Background()
	legacy := []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2} // "Привет" in windows-1251
	mem.Put("/XLog/Mira/library.txt", legacy)

	require.True(t, s.AppendToFile(ctx, "Mira/library.txt", "!"))

	raw, _ := mem.File("/XLog/Mira/library.txt")
	assert.Equal(t, append(append([]byte{}, legacy...), '!'), raw)
}

func TestStore_AppendUnavailableLeavesNoStaging(t *testing.T) {
	s, mem, tmp := newStore(t)
	ctx := context.Background()
	require.True(t, s.EnsureFolderExists(ctx, "Mira"))
	mem.FailOn("/XLog/Mira/log.txt")

	assert.False(t, s.AppendToFile(ctx, "Mira/log.txt", "x"))
	assertNoStagingLeft(t, tmp)
}

func TestStore_ReadFailureKinds(t *testing.T) {
	s, mem, tmp := newStore(t)
	ctx := context.Background()
	mem.Put("/XLog/Mira/bin.txt", bytes.Repeat([]byte{0x00, 0x01, 0x02, 0xff}, 50))
	mem.Put("/XLog/Mira/broken.txt", []byte("text"))
	mem.FailOn("/XLog/Mira/broken.txt")

	_, failure := s.Read(ctx, "Mira/missing.txt")
	assert.Equal(t, disk.ReadMissing, failure)

	_, failure = s.Read(ctx, "Mira/broken.txt")
	assert.Equal(t, disk.ReadUnavailable, failure)

	_, failure = s.Read(ctx, "Mira/bin.txt")
	assert.Equal(t, disk.ReadDecode, failure)

	_, ok := s.ReadFile(ctx, "Mira/bin.txt")
	assert.False(t, ok)
	assertNoStagingLeft(t, tmp)
}

func TestStore_Exists(t *testing.T) {
	s, mem, _ := newStore(t)
	ctx := context.Background()
	mem.Put("/XLog/Mira/king.txt", []byte("x"))
	mem.FailOn("/XLog/Vera")

	ok, err := s.Exists(ctx, "Mira/king.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "Mira/rules.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Exists(ctx, "Vera")
	assert.ErrorIs(t, err, disk.ErrUnavailable)
}

func TestStore_ListFiles(t *testing.T) {
	s, mem, _ := newStore(t)
	ctx := context.Background()
	mem.Put("/XLog/Mira/king.txt", []byte("x"))
	mem.Put("/XLog/Mira/rules.txt", []byte("y"))
	mem.Put("/XLog/Mira/logs/2026/01/01/log.txt", []byte("z"))

	assert.Equal(t, []string{"king.txt", "logs", "rules.txt"}, s.ListFiles(ctx, "Mira"))
	assert.Empty(t, s.ListFiles(ctx, "Nobody"))
}

func TestReadFailure_String(t *testing.T) {
	assert.Equal(t, "missing", disk.ReadMissing.String())
	assert.Equal(t, "unavailable", disk.ReadUnavailable.String())
}
