// Package debug traces the analysis pipeline. Tracing is scoped by
// stage — classify, parse, match, extract, learn, config — so a
// deployment can watch one stage without drowning in the rest.
// Events carry structured key=value fields and land in a bounded
// ring buffer; a writer sink is optional. Stages are selected with
// the POLYSCAN_TRACE environment variable ("parse,match", or "all").
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Stage identifies one pipeline stage.
type Stage uint8

const (
	StageClassify Stage = iota
	StageParse
	StageMatch
	StageExtract
	StageLearn
	StageConfig
	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageClassify:
		return "classify"
	case StageParse:
		return "parse"
	case StageMatch:
		return "match"
	case StageExtract:
		return "extract"
	case StageLearn:
		return "learn"
	case StageConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ringSize bounds the retained event history.
const ringSize = 256

type event struct {
	at    time.Time
	stage Stage
	msg   string
	kv    []any
}

func (e event) format() string {
	var sb strings.Builder
	sb.WriteString(e.at.Format("15:04:05.000"))
	sb.WriteByte(' ')
	sb.WriteString(e.stage.String())
	sb.WriteByte(' ')
	sb.WriteString(e.msg)
	for i := 0; i+1 < len(e.kv); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", e.kv[i], e.kv[i+1])
	}
	if len(e.kv)%2 == 1 {
		fmt.Fprintf(&sb, " %v=?", e.kv[len(e.kv)-1])
	}
	return sb.String()
}

var (
	mu      sync.Mutex
	stages  [stageCount]bool
	quiet   bool
	sink    io.Writer
	file    *os.File
	ring    [ringSize]event
	ringLen int
	ringPos int
)

func init() {
	EnableStages(os.Getenv("POLYSCAN_TRACE"))
}

// EnableStages selects which stages trace. spec is a comma-separated
// stage list; "all", "1" or "true" enables everything; empty
// disables everything.
func EnableStages(spec string) {
	mu.Lock()
	defer mu.Unlock()
	for i := range stages {
		stages[i] = false
	}
	spec = strings.TrimSpace(strings.ToLower(spec))
	if spec == "" {
		return
	}
	if spec == "all" || spec == "1" || spec == "true" {
		for i := range stages {
			stages[i] = true
		}
		return
	}
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		for s := Stage(0); s < stageCount; s++ {
			if s.String() == name {
				stages[s] = true
			}
		}
	}
}

// SetQuiet suppresses all sink output; the ring buffer still fills
// so Recent keeps working for diagnostics.
func SetQuiet(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

// SetOutput directs formatted events to a writer. Pass nil to keep
// tracing ring-only.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sink = w
}

// Enabled reports whether a stage currently traces.
func Enabled(stage Stage) bool {
	mu.Lock()
	defer mu.Unlock()
	return stages[stage]
}

// TraceTo opens a trace file under dir and directs output there.
// Files are named polyscan-trace-<pid>-<timestamp>.log so concurrent
// engines never collide. Returns the file path.
func TraceTo(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("trace dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("polyscan-trace-%d-%s.log",
		os.Getpid(), time.Now().Format("20060102T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("trace file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
	}
	file = f
	sink = f
	return path, nil
}

// Close releases the trace file, if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	if sink == file {
		sink = nil
	}
	file = nil
	return err
}

// Recent returns the retained events, oldest first. Survives quiet
// mode, so a failing run can still be inspected after the fact.
func Recent() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, ringLen)
	start := ringPos - ringLen
	for i := 0; i < ringLen; i++ {
		idx := (start + i + ringSize) % ringSize
		out = append(out, ring[idx].format())
	}
	return out
}

// Reset clears stage selection, sinks and history. Tests use it to
// start from a known state.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	for i := range stages {
		stages[i] = false
	}
	quiet = false
	sink = nil
	if file != nil {
		file.Close()
		file = nil
	}
	ringLen, ringPos = 0, 0
}

func trace(stage Stage, msg string, kv []any) {
	mu.Lock()
	defer mu.Unlock()
	if !stages[stage] {
		return
	}
	e := event{at: time.Now(), stage: stage, msg: msg, kv: kv}
	ring[ringPos] = e
	ringPos = (ringPos + 1) % ringSize
	if ringLen < ringSize {
		ringLen++
	}
	// Writing under the lock serializes events; sinks need no
	// locking of their own.
	if sink != nil && !quiet {
		fmt.Fprintln(sink, e.format())
	}
}

// Classify traces language classification decisions.
func Classify(msg string, kv ...any) { trace(StageClassify, msg, kv) }

// Parse traces parser construction and parse outcomes.
func Parse(msg string, kv ...any) { trace(StageParse, msg, kv) }

// Match traces pattern compilation and execution.
func Match(msg string, kv ...any) { trace(StageMatch, msg, kv) }

// Extract traces feature and block extraction.
func Extract(msg string, kv ...any) { trace(StageExtract, msg, kv) }

// Learn traces the cross-project learner.
func Learn(msg string, kv ...any) { trace(StageLearn, msg, kv) }

// Config traces configuration and table reloads.
func Config(msg string, kv ...any) { trace(StageConfig, msg, kv) }
