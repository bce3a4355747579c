package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config whenever the backing document changes on disk.
// Blocks until the stop channel closes, so run it in a goroutine.
// Editors often emit several events per save; a short debounce collapses
// them into one reload.
func (m *Manager) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files rather than write in place,
	// which would drop a watch on the file itself.
	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(m.path)

	var debounce *time.Timer
	debounceC := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case debounceC <- struct{}{}:
				default:
				}
			})

		case <-debounceC:
			if err := m.Reload(); err != nil {
				log.Printf("Config reload failed, keeping previous snapshot: %v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Config watcher error: %v", err)

		case <-stop:
			return nil
		}
	}
}
