package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// Directory is the slice of registry behavior the watcher needs to sync
// reloaded credentials into.
type Directory interface {
	Register(name string, creds model.Credentials)
	Get(name string) (model.Account, error)
	Disable(name string) error
	Names() []string
}

// Watcher keeps the account registry in sync with the accounts directory.
// Edits to credential files replace an account's credentials wholesale, new
// folders register new accounts, and an account whose credentials become
// unloadable is disabled (never deleted, so its audit history stays
// meaningful). Events are debounced: editors and credential refreshers tend
// to write files in bursts.
type Watcher struct {
	store    *CredentialStore
	registry Directory
	debounce time.Duration
}

// NewWatcher creates a Watcher syncing store into registry.
func NewWatcher(store *CredentialStore, registry Directory) *Watcher {
	return &Watcher{
		store:    store,
		registry: registry,
		debounce: 2 * time.Second,
	}
}

// Run watches the accounts directory until ctx is canceled. It blocks; run
// it on its own goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.store.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", w.store.Dir(), err)
	}
	// Watch existing account folders too; fsnotify is not recursive.
	if entries, err := os.ReadDir(w.store.Dir()); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				_ = fw.Add(filepath.Join(w.store.Dir(), entry.Name()))
			}
		}
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				// Possibly a new account folder.
				_ = fw.Add(ev.Name)
			}
			pending = time.After(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("credential watcher error", "error", err)
		case <-pending:
			pending = nil
			w.sync(ctx)
		}
	}
}

// sync reloads the store and applies the difference to the registry. All
// registry mutations go through its mutex, so this second writer is safe
// alongside the scheduler loop.
func (w *Watcher) sync(ctx context.Context) {
	loaded, err := w.store.LoadAll(ctx)
	if err != nil {
		slog.Error("credential reload failed", "error", err)
		return
	}

	var added, replaced, disabled int
	for name, creds := range loaded {
		existing, err := w.registry.Get(name)
		if err != nil {
			w.registry.Register(name, creds)
			added++
			continue
		}
		if existing.Credentials != creds {
			w.registry.Register(name, creds)
			replaced++
		}
	}

	for _, name := range w.registry.Names() {
		if _, ok := loaded[name]; ok {
			continue
		}
		acc, err := w.registry.Get(name)
		if err != nil || acc.State == model.AccountStateDisabled {
			continue
		}
		if err := w.registry.Disable(name); err == nil {
			disabled++
		}
	}

	slog.Info("credentials re-synced",
		"loaded", len(loaded), "added", added, "replaced", replaced, "disabled", disabled)
}
