package common

import (
	"sync/atomic"
	"time"
)

// BuildMetrics counts the work done by one tree build. Counters are safe for
// concurrent use.
type BuildMetrics struct {
	dirs  atomic.Int64
	files atomic.Int64
	bytes atomic.Int64
	start time.Time
	end   time.Time
}

func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{start: time.Now()}
}

func (m *BuildMetrics) AddDir()  { m.dirs.Add(1) }
func (m *BuildMetrics) AddFile() { m.files.Add(1) }

func (m *BuildMetrics) AddBytes(n int64) { m.bytes.Add(n) }

func (m *BuildMetrics) Finish() { m.end = time.Now() }

// Snapshot returns the counters as a map suitable for structured logging
func (m *BuildMetrics) Snapshot() map[string]interface{} {
	end := m.end
	if end.IsZero() {
		end = time.Now()
	}
	return map[string]interface{}{
		"dirs":        m.dirs.Load(),
		"files":       m.files.Load(),
		"bytes":       m.bytes.Load(),
		"duration_ms": end.Sub(m.start).Milliseconds(),
	}
}

func (m *BuildMetrics) Dirs() int64  { return m.dirs.Load() }
func (m *BuildMetrics) Files() int64 { return m.files.Load() }
func (m *BuildMetrics) Bytes() int64 { return m.bytes.Load() }
