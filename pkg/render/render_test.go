package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/events"
)

// TestRenderSubstitution verifies exact string replacement, including
// repeated placeholders.
func TestRenderSubstitution(t *testing.T) {
	source := "server_name {{DOMAIN}};\nproxy_pass http://{{UPSTREAM}};\n# {{DOMAIN}}\n"
	out, err := Render(source, map[string]string{
		"DOMAIN":   "files.example.org",
		"UPSTREAM": "127.0.0.1:8088",
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "server_name files.example.org;\nproxy_pass http://127.0.0.1:8088;\n# files.example.org\n"
	if out != want {
		t.Errorf("unexpected output:\n%s", out)
	}
}

// TestRenderUnresolvedPlaceholder verifies that a token without a value
// fails the render instead of leaking into the config.
func TestRenderUnresolvedPlaceholder(t *testing.T) {
	_, err := Render("server_name {{DOMAIN}};", map[string]string{"UPSTREAM": "x"})
	if err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
	if !strings.Contains(err.Error(), "DOMAIN") {
		t.Errorf("error should name the placeholder: %v", err)
	}
}

// TestApplyWritesLive verifies the plain path: render, stage, swap.
func TestApplyWritesLive(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "quayside.conf")
	r := NewRenderer(command.NewFakeRunner())

	result, err := r.Apply(context.Background(), &Template{
		Source:   "listen {{PORT}};\n",
		Values:   map[string]string{"PORT": "8088"},
		LivePath: live,
		Mode:     0o640,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Outcome != OutcomeApplied {
		t.Errorf("expected %s, got %s", OutcomeApplied, result.Outcome)
	}

	data, err := os.ReadFile(live)
	if err != nil {
		t.Fatalf("live config missing: %v", err)
	}
	if string(data) != "listen 8088;\n" {
		t.Errorf("unexpected live content: %q", data)
	}
	info, _ := os.Stat(live)
	if info.Mode().Perm() != 0o640 {
		t.Errorf("expected mode 0640, got %o", info.Mode().Perm())
	}
	if _, err := os.Stat(StagedPath(live)); !os.IsNotExist(err) {
		t.Error("staged artifact left behind")
	}
}

// TestApplyRejectedPreservesLive verifies that a failed validation leaves
// the live config's content and modification time untouched and surfaces
// the validator's diagnostics.
func TestApplyRejectedPreservesLive(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "nginx.conf")
	previous := "server { listen 80; }\n"
	if err := os.WriteFile(live, []byte(previous), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(live, past, past); err != nil {
		t.Fatal(err)
	}
	before, _ := os.Stat(live)

	fake := command.NewFakeRunner()
	fake.HandleResult("nginx -t", &command.Result{
		ExitCode: 1,
		Stderr:   "nginx: [emerg] unexpected end of file in /etc/nginx/nginx.conf.staged:3",
	})
	r := NewRenderer(fake)

	result, err := r.Apply(context.Background(), &Template{
		Source:   "server { listen {{PORT}}\n",
		Values:   map[string]string{"PORT": "8080"},
		LivePath: live,
		Validate: []string{"nginx", "-t"},
		Reload:   []string{"nginx", "-s", "reload"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !result.Rejected() {
		t.Fatalf("expected rejection, got %s", result.Outcome)
	}
	if !strings.Contains(result.ValidatorOutput, "unexpected end of file") {
		t.Errorf("validator output not surfaced: %q", result.ValidatorOutput)
	}

	data, _ := os.ReadFile(live)
	if string(data) != previous {
		t.Error("live config content changed despite rejection")
	}
	after, _ := os.Stat(live)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("live config mtime changed despite rejection")
	}
	if _, err := os.Stat(StagedPath(live)); !os.IsNotExist(err) {
		t.Error("rejected staged artifact left behind")
	}
	if calls := fake.CallsMatching("nginx -s reload"); len(calls) != 0 {
		t.Error("reload signalled despite rejection")
	}
}

// TestApplyValidatesStagedArtifact verifies the validator runs while the
// staged file exists and before the live path changes.
func TestApplyValidatesStagedArtifact(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "php-fpm.conf")
	staged := StagedPath(live)

	var stagedExisted, liveExisted bool
	fake := command.NewFakeRunner()
	fake.Handle("php-fpm -t", func(cmd *command.Command) (*command.Result, error) {
		_, err := os.Stat(staged)
		stagedExisted = err == nil
		_, err = os.Stat(live)
		liveExisted = err == nil
		return &command.Result{ExitCode: 0}, nil
	})
	r := NewRenderer(fake)

	result, err := r.Apply(context.Background(), &Template{
		Source:   "pm.max_children = {{MAX}}\n",
		Values:   map[string]string{"MAX": "10"},
		LivePath: live,
		Validate: []string{"php-fpm", "-t"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}
	if !stagedExisted {
		t.Error("validator ran without the staged artifact on disk")
	}
	if liveExisted {
		t.Error("live path existed before validation passed")
	}
}

// TestApplyUnchangedSkipsWork verifies that re-applying identical content
// touches nothing and signals nothing.
func TestApplyUnchangedSkipsWork(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "quayside.conf")
	if err := os.WriteFile(live, []byte("listen 8088;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(live, past, past); err != nil {
		t.Fatal(err)
	}

	fake := command.NewFakeRunner()
	r := NewRenderer(fake)

	result, err := r.Apply(context.Background(), &Template{
		Source:   "listen {{PORT}};\n",
		Values:   map[string]string{"PORT": "8088"},
		LivePath: live,
		Validate: []string{"nginx", "-t"},
		Reload:   []string{"nginx", "-s", "reload"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Outcome != OutcomeUnchanged {
		t.Errorf("expected %s, got %s", OutcomeUnchanged, result.Outcome)
	}
	if calls := fake.Calls(); len(calls) != 0 {
		t.Errorf("commands ran for unchanged config: %v", fake.CallLines())
	}
	info, _ := os.Stat(live)
	if !info.ModTime().Equal(past) {
		t.Error("mtime changed for unchanged config")
	}
}

// TestApplyReloadFailure verifies that a failed reload surfaces as an error
// while the validated config stays applied.
func TestApplyReloadFailure(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "quayside.conf")

	fake := command.NewFakeRunner()
	fake.HandleResult("nginx -s reload", &command.Result{
		ExitCode: 1,
		Stderr:   "nginx: [error] invalid PID number",
	})
	r := NewRenderer(fake)

	_, err := r.Apply(context.Background(), &Template{
		Source:   "listen {{PORT}};\n",
		Values:   map[string]string{"PORT": "8088"},
		LivePath: live,
		Reload:   []string{"nginx", "-s", "reload"},
	})
	if err == nil {
		t.Fatal("expected reload error")
	}
	data, readErr := os.ReadFile(live)
	if readErr != nil || string(data) != "listen 8088;\n" {
		t.Error("validated config should stay applied after reload failure")
	}
}

// TestApplyRequiresLivePath verifies the guard against templates without a
// destination.
func TestApplyRequiresLivePath(t *testing.T) {
	r := NewRenderer(command.NewFakeRunner())
	if _, err := r.Apply(context.Background(), &Template{Source: "x"}); err == nil {
		t.Fatal("expected error for missing live path")
	}
}

// TestApplyPublishesAppliedEvent verifies that a successful swap is visible
// on the event stream.
func TestApplyPublishesAppliedEvent(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	live := filepath.Join(t.TempDir(), "quayside.conf")
	r := NewRenderer(command.NewFakeRunner()).WithBroker(broker)

	result, err := r.Apply(context.Background(), &Template{
		Name:     "quayside.conf",
		Source:   "listen {{PORT}};\n",
		Values:   map[string]string{"PORT": "8088"},
		LivePath: live,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected %s, got %s", OutcomeApplied, result.Outcome)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sub:
			if event.Type != events.EventConfigApplied {
				t.Fatalf("unexpected event %s", event.Type)
			}
			if event.Message != "quayside.conf" || event.Metadata["path"] != live {
				t.Errorf("event = %+v, want template name and live path", event)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for applied event")
		}
	}
}

// TestApplyUnchangedStaysSilent verifies that a no-op apply publishes
// nothing.
func TestApplyUnchangedStaysSilent(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	live := filepath.Join(t.TempDir(), "quayside.conf")
	if err := os.WriteFile(live, []byte("listen 8088;\n"), 0o644); err != nil {
		t.Fatalf("seeding live config: %v", err)
	}

	sub := broker.Subscribe()
	r := NewRenderer(command.NewFakeRunner()).WithBroker(broker)
	result, err := r.Apply(context.Background(), &Template{
		Source:   "listen {{PORT}};\n",
		Values:   map[string]string{"PORT": "8088"},
		LivePath: live,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Outcome != OutcomeUnchanged {
		t.Fatalf("expected %s, got %s", OutcomeUnchanged, result.Outcome)
	}

	select {
	case event := <-sub:
		t.Errorf("unexpected event %s for unchanged config", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}
