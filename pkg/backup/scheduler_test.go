package backup

import (
	"strings"
	"testing"
	"time"

	"github.com/quayside/chandler/pkg/command"
)

// TestSchedulerRunsBothCadences verifies full and partial cycles both fire
// and a full cycle prunes expired artifacts afterwards.
func TestSchedulerRunsBothCadences(t *testing.T) {
	runner, fake, store := newTestRunner(t)
	fake.HandleResult("docker exec", &command.Result{ExitCode: 0, Stdout: dumpText})

	expired := seedArtifact(t, runner, 10)

	scheduler := NewScheduler(runner, []*Target{dbTarget()}, SchedulerConfig{
		FullInterval:    40 * time.Millisecond,
		PartialInterval: 25 * time.Millisecond,
		Retention:       7 * 24 * time.Hour,
	})
	scheduler.Start()
	time.Sleep(150 * time.Millisecond)
	scheduler.Stop()

	var fulls, partials int
	for _, line := range fake.CallLines() {
		if strings.Contains(line, "--all-databases") && !strings.Contains(line, "--no-") {
			fulls++
		}
		if strings.Contains(line, "--no-create-info") {
			partials++
		}
	}
	if fulls == 0 {
		t.Error("no full dump ran")
	}
	if partials == 0 {
		t.Error("no partial dump ran")
	}

	if _, err := store.GetBackup(expired.ID); err == nil {
		t.Error("expired artifact survived the full cycle's prune")
	}
}

// TestSchedulerStops verifies Stop ends the loop: no dumps run afterwards.
func TestSchedulerStops(t *testing.T) {
	runner, fake, _ := newTestRunner(t)
	fake.HandleResult("docker exec", &command.Result{ExitCode: 0, Stdout: dumpText})

	scheduler := NewScheduler(runner, []*Target{dbTarget()}, SchedulerConfig{
		FullInterval:    20 * time.Millisecond,
		PartialInterval: 10 * time.Millisecond,
		Retention:       time.Hour,
	})
	scheduler.Start()
	time.Sleep(35 * time.Millisecond)
	scheduler.Stop()

	time.Sleep(30 * time.Millisecond)
	settled := len(fake.Calls())
	time.Sleep(50 * time.Millisecond)
	if got := len(fake.Calls()); got != settled {
		t.Errorf("calls kept accruing after Stop: %d then %d", settled, got)
	}
}

// TestSchedulerDefaults verifies zero config fields pick up the defaults.
func TestSchedulerDefaults(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	scheduler := NewScheduler(runner, nil, SchedulerConfig{})

	if scheduler.config.FullInterval != DefaultFullInterval {
		t.Errorf("FullInterval = %v, want %v", scheduler.config.FullInterval, DefaultFullInterval)
	}
	if scheduler.config.PartialInterval != DefaultPartialInterval {
		t.Errorf("PartialInterval = %v, want %v", scheduler.config.PartialInterval, DefaultPartialInterval)
	}
	if scheduler.config.Retention != DefaultRetention {
		t.Errorf("Retention = %v, want %v", scheduler.config.Retention, DefaultRetention)
	}
}
