package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var ErrUnknownProfile = errors.New("unknown profile")

// Registry holds the configured profiles and their persisted state. Every
// mutation rewrites the whole state snapshot.
type Registry struct {
	profiles []Profile
	index    map[string]int
	file     stateFile
	log      zerolog.Logger

	mu     sync.Mutex
	states map[string]State
}

// New loads the state snapshot at statePath. An empty statePath keeps
// state in memory only.
func New(profiles []Profile, statePath string, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		profiles: append([]Profile(nil), profiles...),
		index:    make(map[string]int, len(profiles)),
		file:     stateFile{path: statePath},
		log:      log,
	}
	for i, p := range r.profiles {
		r.index[p.Name] = i
	}
	states, err := r.file.load()
	if err != nil {
		return nil, err
	}
	r.states = states
	log.Info().Int("profiles", len(r.profiles)).Int("states", len(states)).Msg("profile registry loaded")
	return r, nil
}

func (r *Registry) All() []Profile {
	return append([]Profile(nil), r.profiles...)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.Name
	}
	return names
}

func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// State returns the stored state of a profile, zero if none was saved.
func (r *Registry) State(name string) (State, error) {
	if !r.Has(name) {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[name], nil
}

func (r *Registry) SetLastID(name, lastID string) error {
	return r.update(name, func(s *State) { s.LastID = lastID })
}

func (r *Registry) SetInitialized(name string, initialized bool) error {
	return r.update(name, func(s *State) { s.Initialized = initialized })
}

func (r *Registry) update(name string, mutate func(*State)) error {
	if !r.Has(name) {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.states[name]
	mutate(&st)
	r.states[name] = st
	if err := r.file.save(r.states); err != nil {
		r.log.Error().Err(err).Str("profile", name).Msg("failed to persist profile state")
		return err
	}
	return nil
}
