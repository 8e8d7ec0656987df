package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfiles_Formats(t *testing.T) {
	cases := map[string]string{
		"json wrapped": `{"profiles": [{"name": "Mira"}, {"name": "Logan", "avatar": "x.png"}]}`,
		"json list":    `[{"name": "Mira"}, {"name": "Logan"}]`,
		"yaml wrapped": "profiles:\n  - name: Mira\n  - name: Logan\n    description: grumpy\n",
		"yaml list":    "- name: Mira\n- name: Logan\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			profiles, err := ParseProfiles([]byte(in))
			require.NoError(t, err)
			require.Len(t, profiles, 2)
			assert.Equal(t, "Mira", profiles[0].Name)
			assert.Equal(t, "Logan", profiles[1].Name)
		})
	}
}

func TestParseProfiles_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":     `{"profiles": []}`,
		"no name":   `[{"name": ""}]`,
		"duplicate": `[{"name": "Mira"}, {"name": " Mira "}]`,
		"separator": `[{"name": "a/b"}]`,
		"garbage":   `:::`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfiles_MissingFile(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func testProfiles() []Profile {
	return []Profile{{Name: "Mira"}, {Name: "Logan"}}
}

func TestRegistry_Lookup(t *testing.T) {
	r, err := New(testProfiles(), "", zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"Mira", "Logan"}, r.Names())
	assert.True(t, r.Has("Logan"))
	assert.False(t, r.Has("Vera"))

	_, err = r.State("Vera")
	assert.ErrorIs(t, err, ErrUnknownProfile)
	assert.ErrorIs(t, r.SetLastID("Vera", "1"), ErrUnknownProfile)
}

func TestRegistry_PersistsWholeSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "state.json")
	r, err := New(testProfiles(), path, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, r.SetLastID("Mira", "42"))
	require.NoError(t, r.SetInitialized("Logan", true))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var snapshot map[string]State
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, map[string]State{
		"Mira":  {LastID: "42"},
		"Logan": {Initialized: true},
	}, snapshot)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	reloaded, err := New(testProfiles(), path, zerolog.Nop())
	require.NoError(t, err)
	st, err := reloaded.State("Mira")
	require.NoError(t, err)
	assert.Equal(t, State{LastID: "42"}, st)
}

func TestRegistry_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(testProfiles(), path, zerolog.Nop())
	assert.Error(t, err)
}
