package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"tickcraft.ai/internal/sim/tuning"
)

const tuningDebounce = 250 * time.Millisecond

// watchTuning reloads tuning.yaml on change. Only log_level applies live;
// other changes are reported and take effect on the next start.
func (s *Server) watchTuning(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tuning watcher: %w", err)
	}
	defer fw.Close()

	path, err := filepath.Abs(s.opts.TuningPath)
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files instead of writing them.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		s.log.Warn("tuning watch disabled", zap.String("path", path), zap.Error(err))
		<-ctx.Done()
		return nil
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if abs, err := filepath.Abs(ev.Name); err != nil || abs != path {
				continue
			}
			debounce = time.After(tuningDebounce)
		case <-debounce:
			debounce = nil
			s.reloadTuning()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("tuning watcher", zap.Error(err))
		}
	}
}

func (s *Server) reloadTuning() {
	next, err := tuning.Load(s.opts.TuningPath)
	if err != nil {
		s.log.Warn("tuning reload", zap.Error(err))
		return
	}
	if next.LogLevel != s.tune.LogLevel {
		if err := s.log.SetLevel(next.LogLevel); err != nil {
			s.log.Warn("tuning reload: log_level", zap.Error(err))
		} else {
			s.log.Info("log level changed", zap.String("level", s.log.Level()))
		}
	}
	prev := s.tune
	prev.LogLevel = next.LogLevel
	if prev != next {
		s.log.Warn("tuning changed; device and world settings apply on restart")
	}
	s.tune = next
}
