// Package session maps opaque session ids to friendly names.
//
// Each mapping is one file, sessions/<session_id>, whose content is the
// friendly name. A mapping is published with create-exclusive semantics and
// never rewritten, so a session id keeps its first name for good.
package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/event"
	"github.com/Iron-Ham/agent-chat/internal/logging"
	"github.com/Iron-Ham/agent-chat/internal/namer"
)

// Identity is a registered session.
type Identity struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	Name      string `json:"name" yaml:"name"`
}

// Registry reads and writes session mappings in a directory.
type Registry struct {
	dir    string
	namer  *namer.Namer
	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithNamer sets the friendly-name generator.
func WithNamer(n *namer.Namer) Option {
	return func(r *Registry) {
		r.namer = n
	}
}

// WithBus publishes a SessionRegisteredEvent for every new mapping.
func WithBus(bus *event.Bus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}

// WithLogger sets the logger for registration diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Registry) {
		r.logger = logging.OrNop(logger).WithComponent("session")
	}
}

// New creates a Registry over the sessions directory dir.
func New(dir string, opts ...Option) *Registry {
	r := &Registry{
		dir:    dir,
		namer:  namer.New(),
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register returns the friendly name of sessionID, creating the mapping if
// it does not exist yet. New names avoid the names of existing mappings.
// When two callers register the same id concurrently both get the name
// that was published first.
func (r *Registry) Register(sessionID string) (string, error) {
	path, err := r.path(sessionID)
	if err != nil {
		return "", err
	}

	name, ok, err := r.Lookup(sessionID)
	if err != nil || ok {
		return name, err
	}

	taken, err := r.names()
	if err != nil {
		return "", err
	}
	name = r.namer.Unique(func(candidate string) bool {
		_, used := taken[candidate]
		return used
	})

	err = atomicfile.CreateExclusive(path, []byte(name), 0o644)
	if errors.Is(err, fs.ErrExist) {
		winner, ok, err := r.Lookup(sessionID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errors.NewWriteError("register", path,
				fmt.Errorf("mapping vanished after concurrent registration"))
		}
		r.logger.Debug("lost registration race", "session_id", sessionID, "name", winner)
		return winner, nil
	}
	if err != nil {
		return "", err
	}

	r.logger.Info("session registered", "session_id", sessionID, "name", name)
	if r.bus != nil {
		r.bus.Publish(event.NewSessionRegisteredEvent(sessionID, name))
	}
	return name, nil
}

// Lookup returns the friendly name mapped to sessionID and whether a
// mapping exists.
func (r *Registry) Lookup(sessionID string) (string, bool, error) {
	path, err := r.path(sessionID)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("session: read mapping: %w", err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

// Resolve returns the identity for sessionID. With an empty id, the
// identity is inferred when exactly one mapping exists; otherwise it fails
// with errors.ErrUnknownSession or errors.ErrAmbiguousSession.
func (r *Registry) Resolve(sessionID string) (Identity, error) {
	if sessionID != "" {
		name, ok, err := r.Lookup(sessionID)
		if err != nil {
			return Identity{}, err
		}
		if !ok {
			return Identity{}, errors.NewUnknownSessionError(sessionID)
		}
		return Identity{SessionID: sessionID, Name: name}, nil
	}

	all, err := r.List()
	if err != nil {
		return Identity{}, err
	}
	switch len(all) {
	case 0:
		return Identity{}, errors.NewUnknownSessionError("")
	case 1:
		return all[0], nil
	default:
		return Identity{}, errors.NewAmbiguousSessionError(len(all))
	}
}

// List returns every mapping, sorted by session id. Temp residue and
// unreadable entries are skipped.
func (r *Registry) List() ([]Identity, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: read sessions directory: %w", err)
	}

	var ids []Identity
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !atomicfile.IsPlainName(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			r.logger.Debug("skipping unreadable mapping", "session_id", entry.Name(), "error", err.Error())
			continue
		}
		ids = append(ids, Identity{
			SessionID: entry.Name(),
			Name:      strings.TrimSpace(string(data)),
		})
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].SessionID < ids[j].SessionID
	})
	return ids, nil
}

// FindByName returns the session registered under name.
func (r *Registry) FindByName(name string) (Identity, error) {
	all, err := r.List()
	if err != nil {
		return Identity{}, err
	}
	for _, id := range all {
		if id.Name == name {
			return id, nil
		}
	}
	return Identity{}, errors.NewNotFoundError("session", name)
}

func (r *Registry) names() (map[string]struct{}, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(all))
	for _, id := range all {
		taken[id.Name] = struct{}{}
	}
	return taken, nil
}

func (r *Registry) path(sessionID string) (string, error) {
	if !atomicfile.IsPlainName(sessionID) {
		return "", errors.NewInvalidNameError("session_id", sessionID)
	}
	return filepath.Join(r.dir, sessionID), nil
}
