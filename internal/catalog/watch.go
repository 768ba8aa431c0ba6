package catalog

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watch starts a background hot-reload watcher on the Registry's catalog
// file. Write events trigger Reload; a failed Reload is logged and the
// Registry keeps serving its last good snapshot. Watch returns a
// fsnotify.Watcher the caller should Close on shutdown.
func (r *Registry) Watch() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.Reload(); err != nil {
					log.Printf("catalog: reload %s failed: %v", r.path, err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("catalog: watch %s error: %v", r.path, err)
			}
		}
	}()

	return watcher, nil
}

// Watch starts a background hot-reload watcher on the KnowledgeRegistry's
// catalog file, mirroring Registry.Watch.
func (r *KnowledgeRegistry) Watch() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.Reload(); err != nil {
					log.Printf("knowledge catalog: reload %s failed: %v", r.path, err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("knowledge catalog: watch %s error: %v", r.path, err)
			}
		}
	}()

	return watcher, nil
}
