package bridge

import (
	"context"
	"log"

	"github.com/devicelink/devicelink/internal/config"
	"github.com/devicelink/devicelink/internal/daemon/supervisor"
	"github.com/devicelink/devicelink/internal/daemon/watcher"
)

// Watch applies settings and manifest changes reported by w until ctx
// ends. The manifest directories follow the configured companion host.
func (b *Bridge) Watch(ctx context.Context, w *watcher.Watcher) {
	host := b.Settings().Companion.Host
	w.WatchManifests(host, config.ManifestDirs())

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			b.handleWatchEvent(ev)
			if h := b.Settings().Companion.Host; h != host {
				host = h
				w.WatchManifests(host, config.ManifestDirs())
			}
		}
	}
}

func (b *Bridge) handleWatchEvent(ev watcher.Event) {
	switch ev.Type {
	case watcher.EventSettingsChanged:
		settings, err := config.LoadSettingsFile(ev.Path)
		if err != nil {
			log.Printf("[bridge] Warning: keeping current settings: %v", err)
			return
		}
		if err := b.Apply(settings); err != nil {
			log.Printf("[bridge] Warning: settings not applied: %v", err)
			return
		}
		log.Printf("[bridge] Settings reloaded from %s", ev.Path)

	case watcher.EventManifestChanged:
		// An explicit command bypasses manifest lookup.
		if b.Settings().Companion.Command != "" {
			return
		}
		if b.Supervisor.Status().State == supervisor.StateOpen {
			return
		}
		log.Printf("[bridge] Host manifest changed, reconnecting")
		if err := b.Supervisor.Reconnect(); err != nil {
			log.Printf("[bridge] Warning: reconnect failed: %v", err)
		}
	}
}
