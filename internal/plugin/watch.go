package plugin

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the plugin table whenever the manifest changes, until ctx is
// done. The manifest's directory is watched so editors that replace the file
// are picked up too.
func (l *Loader) Watch(ctx context.Context) error {
	if l.manifest == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create manifest watcher")
	}

	target := filepath.Clean(l.manifest)
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return errors.Wrapf(err, "watch %s", filepath.Dir(target))
	}

	go func() {
		defer w.Close()

		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(reloadDebounce)
			case <-debounce.C:
				if _, err := l.Load(); err != nil {
					log.Bot().WithError(err).Error("Plugin reload failed")
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Bot().WithError(err).Warn("Manifest watcher error")
			}
		}
	}()
	return nil
}
