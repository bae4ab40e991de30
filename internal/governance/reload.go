package governance

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"aeterna/internal/logging"
	"aeterna/internal/model"
)

// PolicyWatcher watches a directory of policy bundle YAML files and
// hot-reloads the Engine's active policy set on change, debouncing
// rapid saves. Grounded on the teacher's MangleWatcher (fsnotify +
// debounce-map + single event-loop goroutine), adapted from .mg rule
// files to policy YAML bundles.
type PolicyWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	engine      *Engine
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	logger      *zap.Logger
}

// NewPolicyWatcher constructs a watcher over dir, reloading engine's
// policies whenever a *.yaml or *.yml file in dir changes. debounceMs
// matches config.GovernanceConfig.PolicyReloadDebounceMs.
func NewPolicyWatcher(dir string, engine *Engine, debounceMs int64, logger *zap.Logger) (*PolicyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &PolicyWatcher{
		watcher:     w,
		engine:      engine,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: time.Duration(debounceMs) * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logging.Component(logger, "governance.reload"),
	}, nil
}

// Start begins watching dir in a background goroutine. Non-blocking.
func (pw *PolicyWatcher) Start(ctx context.Context) error {
	pw.mu.Lock()
	if pw.running {
		pw.mu.Unlock()
		return nil
	}
	pw.running = true
	pw.mu.Unlock()

	if err := pw.watcher.Add(pw.dir); err != nil {
		pw.logger.Warn("initial watch failed, directory may not exist yet", zap.String("dir", pw.dir), zap.Error(err))
	}

	go pw.run(ctx)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit.
func (pw *PolicyWatcher) Stop() {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return
	}
	pw.running = false
	pw.mu.Unlock()

	close(pw.stopCh)
	<-pw.doneCh
	_ = pw.watcher.Close()
}

func (pw *PolicyWatcher) run(ctx context.Context) {
	defer close(pw.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pw.stopCh:
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			pw.handleEvent(event)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Error("watcher error", zap.Error(err))
		case <-ticker.C:
			pw.processDebounced()
		}
	}
}

func (pw *PolicyWatcher) handleEvent(event fsnotify.Event) {
	if !isPolicyFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	pw.mu.Lock()
	pw.debounceMap[event.Name] = time.Now()
	pw.mu.Unlock()
}

func (pw *PolicyWatcher) processDebounced() {
	pw.mu.Lock()
	now := time.Now()
	settled := false
	for _, t := range pw.debounceMap {
		if now.Sub(t) >= pw.debounceDur {
			settled = true
			break
		}
	}
	if settled {
		pw.debounceMap = make(map[string]time.Time)
	}
	pw.mu.Unlock()

	if settled {
		pw.reload()
	}
}

// reload re-reads every policy bundle file in dir and swaps the
// engine's active policy set in one short exclusive window.
func (pw *PolicyWatcher) reload() {
	policies, err := LoadPolicyDir(pw.dir)
	if err != nil {
		pw.logger.Error("policy reload failed, keeping previous set", zap.Error(err))
		return
	}
	pw.engine.SetPolicies(policies)
	pw.logger.Info("policies reloaded", zap.Int("count", len(policies)), zap.String("dir", pw.dir))
}

func isPolicyFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// LoadPolicyDir reads every YAML policy bundle in dir and returns the
// concatenated policy set. A bundle file is a YAML document containing
// a top-level `policies:` list matching model.Policy's fields.
func LoadPolicyDir(dir string) ([]model.Policy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var all []model.Policy
	for _, entry := range entries {
		if entry.IsDir() || !isPolicyFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var bundle struct {
			Policies []model.Policy `yaml:"policies"`
		}
		if err := yaml.Unmarshal(content, &bundle); err != nil {
			return nil, err
		}
		all = append(all, bundle.Policies...)
	}
	return all, nil
}
