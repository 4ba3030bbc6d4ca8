package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the key name whenever one of keys is written or
// removed in the store directory, including by other processes. It blocks
// until ctx is done.
func (s *FileStore) Watch(ctx context.Context, keys []string, onChange func(key string)) error {
	watched := make(map[string]bool, len(keys))
	for _, k := range keys {
		watched[k] = true
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storage.Watch: %w", err)
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("storage.Watch: add %s: %w", s.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			key := filepath.Base(ev.Name)
			if watched[key] {
				onChange(key)
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("storage.Watch: %w", werr)
		}
	}
}
