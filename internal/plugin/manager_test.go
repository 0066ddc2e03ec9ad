package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root string, m Manifest) string {
	t.Helper()
	dir := filepath.Join(root, m.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return dir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, Manifest{
		Name:        "system-control",
		Version:     "1.0.0",
		Description: "Volume control",
		Executable:  "system-control",
		Actions:     []string{ActionSetVolume, "volume-mute"},
	})
	writeManifest(t, root, Manifest{Name: "another", Executable: "another"})

	// Skipped: a plain file, a dir without manifest, bad JSON.
	os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0644)
	os.MkdirAll(filepath.Join(root, "empty"), 0755)
	os.MkdirAll(filepath.Join(root, "broken"), 0755)
	os.WriteFile(filepath.Join(root, "broken", "plugin.json"), []byte("{"), 0644)

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d plugins, want 2", len(list))
	}
	if list[0].Manifest.Name != "another" || list[1].Manifest.Name != "system-control" {
		t.Errorf("List() not sorted: %s, %s", list[0].Manifest.Name, list[1].Manifest.Name)
	}

	p, err := m.Get("system-control")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Path != dir || p.Executable != filepath.Join(dir, "system-control") {
		t.Errorf("plugin = %+v", p)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"))
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: "first", Executable: "first"})

	m := NewManager(root)
	m.Discover()

	os.RemoveAll(filepath.Join(root, "first"))
	m.Discover()

	if _, err := m.Get("first"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("removed plugin still present: %v", err)
	}
}

func TestManager_Find(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{
		Name:       "system-control",
		Executable: "system-control",
		Actions:    []string{ActionSetVolume},
	})

	m := NewManager(root)
	m.Discover()

	tests := []struct {
		name    string
		plugin  string
		action  string
		wantErr error
	}{
		{name: "supported", plugin: "system-control", action: ActionSetVolume},
		{name: "unsupported action", plugin: "system-control", action: "media-next", wantErr: ErrActionNotSupported},
		{name: "unknown plugin", plugin: "keyboard", action: ActionSetVolume, wantErr: ErrPluginNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.Find(tt.plugin, tt.action)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Find() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || p == nil {
				t.Errorf("Find() = %v, %v", p, err)
			}
		})
	}
}

func TestManager_PluginDir(t *testing.T) {
	if got := NewManager("/opt/plugins").PluginDir(); got != "/opt/plugins" {
		t.Errorf("PluginDir() = %q", got)
	}
}
