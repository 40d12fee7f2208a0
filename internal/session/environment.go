package session

import (
	"sync"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
)

// Environment holds the DATA subsystem's environment variable list
//. DMAs populate it via data_start_backup/data_start_recover
// and the archive worker appends to it via its add_env/set_env callbacks
// during the run; get_env snapshots it back out.
//
// Add and Set differ on purpose: Add always appends, even if name is
// already present, so a worker can emit repeated informational entries
// (e.g. successive LEVEL markers); Set finds-or-updates by name, last
// write wins, for single-valued keys like TYPE.
type Environment struct {
	mu   sync.Mutex
	vars []ndmp.EnvVar
}

// NewEnvironment builds an Environment pre-seeded from a request's env
// list, unique by name: a repeated name keeps its first position and
// takes the last value given for it.
func NewEnvironment(initial []ndmp.EnvVar) *Environment {
	e := &Environment{}
	for _, v := range initial {
		replaced := false
		for i := range e.vars {
			if e.vars[i].Name == v.Name {
				e.vars[i].Value = v.Value
				replaced = true
				break
			}
		}
		if !replaced {
			e.vars = append(e.vars, v)
		}
	}
	return e
}

// Add always appends name=value, even if name already occurs.
func (e *Environment) Add(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars = append(e.vars, ndmp.EnvVar{Name: name, Value: value})
}

// Set finds the first entry named name and overwrites its value, or
// appends a new entry if none exists.
func (e *Environment) Set(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.vars {
		if e.vars[i].Name == name {
			e.vars[i].Value = value
			return
		}
	}
	e.vars = append(e.vars, ndmp.EnvVar{Name: name, Value: value})
}

// Get returns the value of the first entry named name.
func (e *Environment) Get(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.vars {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// List returns a snapshot copy of the environment, safe for the caller
// to range over without holding a lock.
func (e *Environment) List() []ndmp.EnvVar {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ndmp.EnvVar, len(e.vars))
	copy(out, e.vars)
	return out
}
