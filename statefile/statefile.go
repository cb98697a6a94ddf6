// Package statefile publishes the timer state to a file that other
// processes can read, and validates what it reads back. All access goes
// through a single worker goroutine so that a reader can never observe
// interleaved writes or a half-applied rename.
package statefile

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tomatotools/pomo/internal/models"
)

// StaleAfter is the maximum age at which a published snapshot is still
// considered valid by a reader.
const StaleAfter = 10 * time.Second

type opKind int

const (
	opWrite opKind = iota
	opRead
	opRemove
)

type request struct {
	kind  opKind
	snap  models.Snapshot
	reply chan *models.Snapshot
}

// Gateway serialises all reads and writes of the state file.
type Gateway struct {
	path  string
	reqs  chan request
	quit  chan struct{}
	done  chan struct{}
	now   func() time.Time
	alive func(pid int) bool
}

// New creates a state file gateway and starts its worker.
func New(path string) *Gateway {
	g := &Gateway{
		path:  path,
		reqs:  make(chan request, 16),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		now:   time.Now,
		alive: pidAlive,
	}

	go g.run()

	return g
}

// Write publishes a snapshot asynchronously. Persistence failures are
// logged by the worker and never surfaced to the caller.
func (g *Gateway) Write(snap models.Snapshot) {
	select {
	case g.reqs <- request{kind: opWrite, snap: snap}:
	case <-g.quit:
	}
}

// Read returns the published snapshot, or nil if the file is absent,
// corrupt, stale, or owned by a dead process.
func (g *Gateway) Read() *models.Snapshot {
	reply := make(chan *models.Snapshot, 1)

	select {
	case g.reqs <- request{kind: opRead, reply: reply}:
		return <-reply
	case <-g.quit:
		return nil
	}
}

// Remove deletes the state file.
func (g *Gateway) Remove() {
	select {
	case g.reqs <- request{kind: opRemove}:
	case <-g.quit:
	}
}

// Close stops the worker after draining any queued operations.
func (g *Gateway) Close() {
	close(g.quit)
	<-g.done
}

func (g *Gateway) run() {
	defer close(g.done)

	for {
		select {
		case req := <-g.reqs:
			g.handle(req)
		case <-g.quit:
			// drain pending writes so a final forced publish is not lost
			for {
				select {
				case req := <-g.reqs:
					g.handle(req)
				default:
					return
				}
			}
		}
	}
}

func (g *Gateway) handle(req request) {
	switch req.kind {
	case opWrite:
		g.writeFile(req.snap)
	case opRead:
		req.reply <- g.readFile()
	case opRemove:
		if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Error("unable to remove state file", slog.Any("error", err))
		}
	}
}

// writeFile serialises the snapshot to a temporary file in the target
// directory and renames it over the state file so that readers never see a
// partial write.
func (g *Gateway) writeFile(snap models.Snapshot) {
	snap.LastUpdate = float64(g.now().UnixNano()) / float64(time.Second)

	b, err := json.Marshal(snap)
	if err != nil {
		slog.Error("unable to serialise snapshot", slog.Any("error", err))
		return
	}

	dir := filepath.Dir(g.path)

	if err = os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("unable to create state directory", slog.Any("error", err))
		return
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(g.path)+".tmp")
	if err != nil {
		slog.Error("unable to create temp state file", slog.Any("error", err))
		return
	}

	_, err = tmp.Write(b)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err == nil {
		err = os.Rename(tmp.Name(), g.path)
	}

	if err != nil {
		slog.Error("unable to write state file", slog.Any("error", err))
		_ = os.Remove(tmp.Name())
	}
}

// readFile loads and validates the state file. Corruption is treated as
// absence, not an error.
func (g *Gateway) readFile() *models.Snapshot {
	b, err := os.ReadFile(g.path)
	if err != nil {
		return nil
	}

	var snap models.Snapshot

	if err = json.Unmarshal(b, &snap); err != nil {
		slog.Warn("discarding corrupt state file", slog.Any("error", err))
		return nil
	}

	if snap.Age(g.now()) > StaleAfter {
		return nil
	}

	if !g.alive(snap.AppPID) {
		return nil
	}

	return &snap
}

// pidAlive reports whether a process with the given pid exists.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// the process exists but belongs to another user
	return errors.Is(err, syscall.EPERM)
}
