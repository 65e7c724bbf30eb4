package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"umbra/internal/util/memzero"
)

type change struct {
	data    []byte
	deleted bool
}

// overlay records what one unit of work read and what it will write.
type overlay struct {
	mu      sync.Mutex
	seen    map[string]uint64 // file version at first read
	changes map[string]change
}

func newOverlay() *overlay {
	return &overlay{seen: map[string]uint64{}, changes: map[string]change{}}
}

// wipe zeroes every pending write. Session files hold key material.
func (o *overlay) wipe() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.changes {
		memzero.Zero(c.data)
	}
	clear(o.changes)
}

// read returns the contents of name as the unit sees them, or nil if the file
// does not exist. The caller owns the returned slice.
func (s *FileStore) read(name string) ([]byte, error) {
	o := s.tx
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.changes[name]; ok {
		if c.deleted {
			return nil, nil
		}
		return slices.Clone(c.data), nil
	}

	s.disk.mu.Lock()
	b, err := readFile(s.path(name))
	v := s.disk.versions[name]
	s.disk.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if _, ok := o.seen[name]; !ok {
		o.seen[name] = v
	}
	return b, nil
}

// write queues b, copied, as the new contents of name.
func (s *FileStore) write(name string, b []byte) {
	s.queue(name, change{data: slices.Clone(b)})
}

// remove queues the deletion of name.
func (s *FileStore) remove(name string) {
	s.queue(name, change{deleted: true})
}

func (s *FileStore) queue(name string, c change) {
	o := s.tx
	o.mu.Lock()
	defer o.mu.Unlock()
	if old, ok := o.changes[name]; ok {
		memzero.Zero(old.data)
	}
	o.changes[name] = c
}

// readJSON decodes name into out. It reports false, and leaves out untouched,
// when the file does not exist.
func (s *FileStore) readJSON(name string, out any) (bool, error) {
	b, err := s.read(name)
	if err != nil || b == nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("store: %s: %w", name, err)
	}
	return true, nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	s.write(name, b)
	return nil
}

// commit applies the unit's changes. It returns ErrConflict, and writes
// nothing, if a file the unit read has changed since. Every new file is staged
// before the first rename.
func (s *FileStore) commit() error {
	o := s.tx
	o.mu.Lock()
	defer o.mu.Unlock()
	d := s.disk
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, v := range o.seen {
		if d.versions[name] != v {
			return ErrConflict
		}
	}
	if len(o.changes) == 0 {
		return nil
	}

	names := slices.Sorted(maps.Keys(o.changes))
	staged := make(map[string]string, len(names))
	defer func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()
	for _, name := range names {
		c := o.changes[name]
		if c.deleted {
			continue
		}
		tmp, err := stageFile(s.path(name), c.data)
		if err != nil {
			return err
		}
		staged[name] = tmp
	}

	for _, name := range names {
		if tmp, ok := staged[name]; ok {
			if err := os.Rename(tmp, s.path(name)); err != nil {
				return err
			}
			delete(staged, name)
		} else if err := removeFile(s.path(name)); err != nil {
			return err
		}
		d.versions[name]++
	}
	return nil
}
