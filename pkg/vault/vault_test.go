package vault

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quayside/chandler/pkg/events"
)

// TestGetOrCreateGeneratesOnce verifies that a second call without rotation
// returns byte-identical values.
func TestGetOrCreateGeneratesOnce(t *testing.T) {
	v := NewVault(t.TempDir())

	first, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD", "PANEL_PASSWORD"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if len(first.Generated) != 2 {
		t.Errorf("expected both keys generated, got %v", first.Generated)
	}
	for _, key := range []string{"ROOT_PASSWORD", "PANEL_PASSWORD"} {
		if len(first.Values[key]) != DefaultLength {
			t.Errorf("key %s has length %d, want %d", key, len(first.Values[key]), DefaultLength)
		}
	}

	second, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD", "PANEL_PASSWORD"})
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if len(second.Generated) != 0 {
		t.Errorf("second call generated keys: %v", second.Generated)
	}
	for key, value := range first.Values {
		if second.Values[key] != value {
			t.Errorf("key %s changed between calls", key)
		}
	}
}

// TestGetOrCreateMergesNewKeys verifies that requesting an additional key
// later generates only that key and preserves the rest.
func TestGetOrCreateMergesNewKeys(t *testing.T) {
	v := NewVault(t.TempDir())

	first, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	second, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD", "BACKUP_PASSWORD"})
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if len(second.Generated) != 1 || second.Generated[0] != "BACKUP_PASSWORD" {
		t.Errorf("expected only BACKUP_PASSWORD generated, got %v", second.Generated)
	}
	if second.Values["ROOT_PASSWORD"] != first.Values["ROOT_PASSWORD"] {
		t.Error("existing key was regenerated")
	}
	if second.Values["BACKUP_PASSWORD"] == "" {
		t.Error("new key was not generated")
	}
}

// TestGetOrCreatePreservesExternalValues verifies that values placed in the
// file outside the vault are reused verbatim.
func TestGetOrCreatePreservesExternalValues(t *testing.T) {
	dir := t.TempDir()
	v := NewVault(dir)
	path := v.Path("database")
	content := "# seeded by operator\nROOT_PASSWORD=hunter2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	set, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if set.Values["ROOT_PASSWORD"] != "hunter2" {
		t.Errorf("external value not preserved: %q", set.Values["ROOT_PASSWORD"])
	}
	if len(set.Generated) != 0 {
		t.Errorf("unexpected generation: %v", set.Generated)
	}
}

// TestFileModeOwnerOnly verifies the persisted file is readable by its
// owner only.
func TestFileModeOwnerOnly(t *testing.T) {
	v := NewVault(t.TempDir())

	set, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	info, err := os.Stat(set.Path)
	if err != nil {
		t.Fatalf("credential file missing: %v", err)
	}
	if info.Mode().Perm() != FileMode {
		t.Errorf("expected mode %o, got %o", FileMode, info.Mode().Perm())
	}
}

// TestGeneratedValuesAreSafe verifies that generated values only use
// characters that need no quoting in shell, SQL, or config contexts.
func TestGeneratedValuesAreSafe(t *testing.T) {
	v := NewVault(t.TempDir())

	set, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	for _, r := range set.Values["ROOT_PASSWORD"] {
		if !strings.ContainsRune(charset, r) {
			t.Errorf("generated value contains unexpected character %q", r)
		}
	}
}

// TestRotateChangesOnlyNamedKeys verifies rotation replaces the named keys
// and nothing else.
func TestRotateChangesOnlyNamedKeys(t *testing.T) {
	v := NewVault(t.TempDir())

	before, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD", "PANEL_PASSWORD"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	after, err := v.Rotate("database", []string{"PANEL_PASSWORD"})
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if after.Values["PANEL_PASSWORD"] == before.Values["PANEL_PASSWORD"] {
		t.Error("rotated key kept its old value")
	}
	if after.Values["ROOT_PASSWORD"] != before.Values["ROOT_PASSWORD"] {
		t.Error("unrotated key was changed")
	}

	// The rotated file is what later runs load
	reloaded, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD", "PANEL_PASSWORD"})
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Values["PANEL_PASSWORD"] != after.Values["PANEL_PASSWORD"] {
		t.Error("rotation was not persisted")
	}
}

// TestRotateRequiresKeys verifies that rotation without explicit keys is
// rejected.
func TestRotateRequiresKeys(t *testing.T) {
	v := NewVault(t.TempDir())
	if _, err := v.Rotate("database", nil); err == nil {
		t.Fatal("expected error for rotate without keys")
	}
}

// TestMalformedFileRejected verifies that an unparseable credential file is
// an error instead of being silently overwritten.
func TestMalformedFileRejected(t *testing.T) {
	dir := t.TempDir()
	v := NewVault(dir)
	path := v.Path("database")
	if err := os.WriteFile(path, []byte("this is not a key value pair\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD"}); err == nil {
		t.Fatal("expected parse error")
	}

	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "not a key value pair") {
		t.Error("malformed file was modified")
	}
}

// TestServicesAreIsolated verifies that each service gets its own file.
func TestServicesAreIsolated(t *testing.T) {
	dir := t.TempDir()
	v := NewVault(dir)

	db, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD"})
	if err != nil {
		t.Fatal(err)
	}
	files, err := v.GetOrCreate("files", []string{"ADMIN_PASSWORD"})
	if err != nil {
		t.Fatal(err)
	}

	if db.Path == files.Path {
		t.Error("services share a credential file")
	}
	if filepath.Dir(db.Path) != dir || filepath.Dir(files.Path) != dir {
		t.Error("credential files outside the vault directory")
	}
}

// TestCredentialEventsPublished verifies that generation and rotation show
// up on the event stream carrying key names only, never values.
func TestCredentialEventsPublished(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	v := NewVault(t.TempDir()).WithBroker(broker)

	if _, err := v.GetOrCreate("grafana", []string{"admin_password"}); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	created := awaitEvent(t, sub, events.EventCredentialCreated)
	if created.Metadata["service"] != "grafana" {
		t.Errorf("created event names service %q, want grafana", created.Metadata["service"])
	}
	if created.Message != "admin_password" {
		t.Errorf("created event message = %q, want the key name", created.Message)
	}

	set, err := v.Rotate("grafana", []string{"admin_password"})
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	rotated := awaitEvent(t, sub, events.EventCredentialRotated)
	if strings.Contains(rotated.Message, set.Values["admin_password"]) {
		t.Error("rotated event carries the credential value")
	}
}

// TestReuseIsSilentOnEventStream verifies that a re-install reading existing
// credentials publishes nothing.
func TestReuseIsSilentOnEventStream(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	v := NewVault(t.TempDir()).WithBroker(broker)
	if _, err := v.GetOrCreate("database", []string{"root_password"}); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	sub := broker.Subscribe()
	if _, err := v.GetOrCreate("database", []string{"root_password"}); err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	select {
	case event := <-sub:
		t.Errorf("unexpected event %s on reuse", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

// awaitEvent drains the subscription until the wanted type arrives
func awaitEvent(t *testing.T, sub events.Subscriber, want events.EventType) *events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sub:
			if event.Type == want {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}
