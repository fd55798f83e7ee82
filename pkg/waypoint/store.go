// Package waypoint provides the named-pose registry used by the navigation
// facade, plus tolerance-based matching of a live pose against it.
package waypoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/brean/robot-api/pkg/pose"
)

// ErrInvalidFile is returned when a waypoint file cannot be parsed.
var ErrInvalidFile = errors.New("waypoint: invalid waypoint file")

// genericPrefix is the prefix of auto-assigned waypoint names.
const genericPrefix = "waypoint"

// Store is an insertion-ordered mapping from waypoint name to pose.
//
// Every goal the facade dispatches is registered here, so concurrent
// completion callbacks may mutate the store while the caller iterates a
// listing; all operations take the store lock. Name order is insertion order
// and is preserved across Save/Load.
type Store struct {
	mu        sync.RWMutex
	names     []string
	poses     map[string]pose.Pose
	generated map[string]bool
	counter   int
}

// Named pairs a waypoint name with its pose, in store order.
type Named struct {
	Name string
	Pose pose.Pose
}

// New creates an empty store.
func New() *Store {
	return &Store{
		poses:     make(map[string]pose.Pose),
		generated: make(map[string]bool),
	}
}

var (
	defaultStore     *Store
	defaultStoreOnce sync.Once
)

// Default returns the process-wide shared store. Components that are handed a
// nil store fall back to this one, so independent callers see the same
// waypoints; passing an explicit store opts out of the sharing.
func Default() *Store {
	defaultStoreOnce.Do(func() {
		defaultStore = New()
	})
	return defaultStore
}

// Get returns the pose stored under name.
func (s *Store) Get(name string) (pose.Pose, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.poses[name]
	return p, ok
}

// Add inserts or overwrites the pose under name. Overwriting keeps the
// original insertion position.
func (s *Store) Add(name string, p pose.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(name, p, false)
}

func (s *Store) add(name string, p pose.Pose, generated bool) {
	if _, ok := s.poses[name]; !ok {
		s.names = append(s.names, name)
	}
	s.poses[name] = p
	if generated {
		s.generated[name] = true
	} else {
		delete(s.generated, name)
	}
}

// AddGeneric stores p under a generated name and returns it. Names follow a
// sequential waypoint<N> scheme; numbers whose name is already taken (for
// example by a hand-added "waypoint3") are skipped, so generated names never
// collide with existing entries.
func (s *Store) AddGeneric(p pose.Pose) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addGeneric(p)
}

func (s *Store) addGeneric(p pose.Pose) string {
	for {
		s.counter++
		name := fmt.Sprintf("%s%d", genericPrefix, s.counter)
		if _, taken := s.poses[name]; !taken {
			s.add(name, p, true)
			return name
		}
	}
}

// CustomName returns the first hand-assigned name whose pose exactly equals p.
// Generated names are skipped; this is a logging aid, not tolerance matching.
func (s *Store) CustomName(p pose.Pose) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.names {
		if s.poses[name] == p && !s.generated[name] {
			return name, true
		}
	}
	return "", false
}

// Register ensures p is present in the store. If some entry already holds an
// exactly equal pose its name is returned with added=false; otherwise p is
// stored under a generated name. Lookup and insert happen under one lock so
// two concurrent dispatches of the same pose cannot both add it.
func (s *Store) Register(p pose.Pose) (name string, added bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.names {
		if s.poses[n] == p {
			return n, false
		}
	}
	return s.addGeneric(p), true
}

// Len returns the number of waypoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Snapshot returns all waypoints in insertion order.
func (s *Store) Snapshot() []Named {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Named, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, Named{Name: name, Pose: s.poses[name]})
	}
	return out
}

// String returns a human-readable listing of all waypoints, one per line in
// insertion order. Diagnostics only.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b strings.Builder
	for _, name := range s.names {
		p := s.poses[name]
		fmt.Fprintf(&b, "'%s': position: %v, orientation: %v\n", name, p.Position, p.Orientation)
	}
	return b.String()
}

// fileEntry is one waypoint in the on-disk format. A list keeps the file
// deterministic and preserves store order, which plain YAML mappings do not.
type fileEntry struct {
	Name string    `yaml:"name"`
	Pose pose.Pose `yaml:"pose"`
}

type fileData struct {
	Version   int         `yaml:"version"`
	Waypoints []fileEntry `yaml:"waypoints"`
}

const fileVersion = 1

// Save writes the full store to path as YAML, creating parent directories as
// needed.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	data := fileData{Version: fileVersion}
	for _, name := range s.names {
		data.Waypoints = append(data.Waypoints, fileEntry{Name: name, Pose: s.poses[name]})
	}
	s.mu.RUnlock()

	out, err := yaml.Marshal(&data)
	if err != nil {
		return fmt.Errorf("marshal waypoints: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write waypoints: %w", err)
	}
	return nil
}

// Load replaces the store contents with the waypoints in path. The file is
// parsed completely before anything is swapped in, so a read or parse error
// leaves the store unchanged.
func (s *Store) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read waypoints: %w", err)
	}

	var data fileData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	names := make([]string, 0, len(data.Waypoints))
	poses := make(map[string]pose.Pose, len(data.Waypoints))
	for _, entry := range data.Waypoints {
		if entry.Name == "" {
			return fmt.Errorf("%w: entry with empty name", ErrInvalidFile)
		}
		if _, dup := poses[entry.Name]; dup {
			return fmt.Errorf("%w: duplicate name '%s'", ErrInvalidFile, entry.Name)
		}
		names = append(names, entry.Name)
		poses[entry.Name] = entry.Pose
	}

	s.mu.Lock()
	s.names = names
	s.poses = poses
	s.generated = make(map[string]bool)
	s.counter = 0
	s.mu.Unlock()
	return nil
}
