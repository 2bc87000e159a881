package mailspam

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchModels watches models directory and its dataset sub-directories for changes and calls onChange
// once per burst of events. Blocks until context is canceled.
func WatchModels(ctx context.Context, dir string, delay time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := []string{dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read models directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}
	for _, d := range dirs {
		if err = watcher.Add(d); err != nil {
			return fmt.Errorf("failed to add %s to watcher: %w", d, err)
		}
		log.Printf("[DEBUG] add %q to models watcher", d)
	}

	// timer fires once after the last event in a burst, artifacts are usually written in several files
	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] stopping models watcher for %s, %v", dir, ctx.Err())
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Printf("[DEBUG] models change detected, %s", event)
			if event.Op&fsnotify.Create == fsnotify.Create {
				if fi, e := os.Stat(event.Name); e == nil && fi.IsDir() {
					if e = watcher.Add(event.Name); e != nil {
						log.Printf("[WARN] failed to watch new directory %s: %v", event.Name, e)
					}
				}
			}
			timer.Reset(delay)
		case <-timer.C:
			log.Printf("[INFO] models in %s changed", dir)
			onChange()
		case e, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] models watcher error: %v", e)
		}
	}
}
