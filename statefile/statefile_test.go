package statefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tomatotools/pomo/internal/models"
)

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		AppPID:        os.Getpid(),
		Phase:         "Work",
		TimeRemaining: 1200,
		SessionCount:  2,
		IsRunning:     true,
	}
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()

	g := New(filepath.Join(t.TempDir(), "state.json"))
	t.Cleanup(g.Close)

	return g
}

func TestWriteReadRoundtrip(t *testing.T) {
	g := newTestGateway(t)

	g.Write(testSnapshot())

	got := g.Read()
	if got == nil {
		t.Fatal("expected a snapshot, got nil")
	}

	ignoreStamp := cmpopts.IgnoreFields(models.Snapshot{}, "LastUpdate")

	if diff := cmp.Diff(testSnapshot(), *got, ignoreStamp); diff != "" {
		t.Fatalf("snapshot mismatch:\n%s", diff)
	}

	if got.LastUpdate == 0 {
		t.Fatal("expected the write to stamp the publish time")
	}
}

func TestReadMissingFile(t *testing.T) {
	g := newTestGateway(t)

	if got := g.Read(); got != nil {
		t.Fatalf("expected nil for a missing file, got %+v", got)
	}
}

func TestReadCorruptFile(t *testing.T) {
	g := newTestGateway(t)

	if err := os.WriteFile(g.path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := g.Read(); got != nil {
		t.Fatalf("expected corruption to read as absence, got %+v", got)
	}
}

func TestReadRejectsStaleSnapshot(t *testing.T) {
	g := newTestGateway(t)

	g.Write(testSnapshot())

	if got := g.Read(); got == nil {
		t.Fatal("expected a fresh snapshot to be valid")
	}

	g.now = func() time.Time {
		return time.Now().Add(StaleAfter + time.Second)
	}

	if got := g.Read(); got != nil {
		t.Fatalf("expected a stale snapshot to be rejected, got %+v", got)
	}
}

func TestReadRejectsDeadOwner(t *testing.T) {
	g := newTestGateway(t)

	g.alive = func(int) bool { return false }

	g.Write(testSnapshot())

	if got := g.Read(); got != nil {
		t.Fatalf("expected a dead owner to be rejected, got %+v", got)
	}
}

func TestWriteIsAtomic(t *testing.T) {
	g := newTestGateway(t)

	for i := range 50 {
		snap := testSnapshot()
		snap.TimeRemaining = i

		g.Write(snap)
	}

	// the state file must always hold one complete JSON document
	got := g.Read()
	if got == nil {
		t.Fatal("expected a snapshot after repeated writes")
	}

	b, err := os.ReadFile(g.path)
	if err != nil {
		t.Fatal(err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		t.Fatalf("state file is not valid JSON: %v", err)
	}

	if snap.TimeRemaining != 49 {
		t.Fatalf("expected the last write to win, got %d", snap.TimeRemaining)
	}

	entries, err := os.ReadDir(filepath.Dir(g.path))
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestRemove(t *testing.T) {
	g := newTestGateway(t)

	g.Write(testSnapshot())

	if got := g.Read(); got == nil {
		t.Fatal("expected a snapshot before removal")
	}

	g.Remove()

	if got := g.Read(); got != nil {
		t.Fatal("expected nil after removal")
	}
}

func TestPidAlive(t *testing.T) {
	if !pidAlive(os.Getpid()) {
		t.Fatal("expected the current process to be alive")
	}

	if pidAlive(0) {
		t.Fatal("expected pid 0 to be rejected")
	}

	// pids above the kernel maximum can never be alive
	if pidAlive(1 << 30) {
		t.Fatal("expected an impossible pid to be dead")
	}
}
