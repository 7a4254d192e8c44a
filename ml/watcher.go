package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Snapshotter is implemented by pipelines whose underlying model can change.
// Callers that invoke several methods for one request should work on the
// returned snapshot so they all see the same model.
type Snapshotter interface {
	Current() Pipeline
}

// ReloadingPipeline serves the artifact at path and swaps in a freshly loaded
// copy whenever the file changes. A reload that fails, or whose feature names
// differ from the expected ones, keeps the old model.
type ReloadingPipeline struct {
	path     string
	expected []string
	logger   *zap.Logger
	current  atomic.Pointer[TreePipeline]

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	done      chan struct{}
}

// NewReloadingPipeline loads path and watches it. Every loaded artifact must
// list exactly expectedFeatures, in order.
func NewReloadingPipeline(path string, expectedFeatures []string, logger *zap.Logger) (*ReloadingPipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(expectedFeatures) == 0 {
		return nil, fmt.Errorf("expected feature names are required")
	}
	expected := append([]string(nil), expectedFeatures...)
	pipeline, err := loadExpected(path, expected)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create artifact watcher: %w", err)
	}
	// Watch the directory: editors and deploy tools replace files by rename.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	r := &ReloadingPipeline{
		path:     filepath.Clean(path),
		expected: expected,
		logger:   logger,
		watcher:  watcher,
		done:     make(chan struct{}),
	}
	r.current.Store(pipeline)
	go r.watch()
	return r, nil
}

func (r *ReloadingPipeline) watch() {
	defer close(r.done)
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Warn("pipeline reload failed, keeping previous model",
					zap.String("path", r.path), zap.Error(err))
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("artifact watcher error", zap.Error(err))
		}
	}
}

// Reload loads the artifact again and swaps it in on success.
func (r *ReloadingPipeline) Reload() error {
	pipeline, err := loadExpected(r.path, r.expected)
	if err != nil {
		return err
	}
	r.current.Store(pipeline)
	r.logger.Info("pipeline reloaded",
		zap.String("path", r.path),
		zap.String("version", pipeline.Version()),
		zap.Strings("classes", pipeline.Classes()))
	return nil
}

func loadExpected(path string, expected []string) (*TreePipeline, error) {
	pipeline, err := LoadPipeline(path)
	if err != nil {
		return nil, err
	}
	if got := pipeline.FeatureNames(); !slices.Equal(got, expected) {
		return nil, fmt.Errorf("artifact expects columns %q, want %q", got, expected)
	}
	return pipeline, nil
}

func (r *ReloadingPipeline) Current() Pipeline {
	return r.current.Load()
}

func (r *ReloadingPipeline) Predict(ctx context.Context, rows [][]float64) ([]string, error) {
	return r.current.Load().Predict(ctx, rows)
}

func (r *ReloadingPipeline) PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error) {
	return r.current.Load().PredictProba(ctx, rows)
}

func (r *ReloadingPipeline) Classes() []string {
	return r.current.Load().Classes()
}

func (r *ReloadingPipeline) FeatureNames() []string {
	return r.current.Load().FeatureNames()
}

func (r *ReloadingPipeline) Version() string {
	return r.current.Load().Version()
}

func (r *ReloadingPipeline) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.watcher.Close()
		<-r.done
	})
	return err
}
