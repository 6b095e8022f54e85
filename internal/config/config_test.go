package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.AutosaveInterval != def.AutosaveInterval {
		t.Fatalf("AutosaveInterval = %d, want %d", cfg.AutosaveInterval, def.AutosaveInterval)
	}
	if cfg.StorageBackend != BackendSQLite {
		t.Fatalf("StorageBackend = %q, want %q", cfg.StorageBackend, BackendSQLite)
	}
	if cfg.DefaultParent != "/" {
		t.Fatalf("DefaultParent = %q, want /", cfg.DefaultParent)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data := `{"remote_url": "https://example.test/miniwriter", "autosave_interval": 20, "default_published": true}`
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RemoteURL != "https://example.test/miniwriter" {
		t.Errorf("RemoteURL = %q", cfg.RemoteURL)
	}
	if cfg.AutosaveInterval != 20 {
		t.Errorf("AutosaveInterval = %d, want 20", cfg.AutosaveInterval)
	}
	if !cfg.DefaultPublished {
		t.Error("DefaultPublished = false, want true")
	}
	if cfg.ConflictPrefix != "(copy)" {
		t.Errorf("ConflictPrefix = %q, want default", cfg.ConflictPrefix)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestAutosaveDuration_MinimumBound(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		want     time.Duration
	}{
		{"zero", 0, 3 * time.Second},
		{"below minimum", 1, 3 * time.Second},
		{"at minimum", 3, 3 * time.Second},
		{"default", 8, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AutosaveInterval: tt.interval}
			if got := cfg.AutosaveDuration(); got != tt.want {
				t.Errorf("AutosaveDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	siteRoot := t.TempDir()

	globalConfig := `{"remote_url": "https://global.test/mw", "disabled_tools": ["draft_discard"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	siteDir := filepath.Join(siteRoot, ".miniwriter")
	if err := os.MkdirAll(siteDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	siteConfig := `{"remote_url": "https://site.test/mw", "disabled_tools": ["queue_flush"]}`
	if err := os.WriteFile(filepath.Join(siteDir, "config.json"), []byte(siteConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	nested := filepath.Join(siteRoot, "pages", "blog")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, nested)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.RemoteURL != "https://site.test/mw" {
		t.Errorf("RemoteURL = %q, want site override", cfg.RemoteURL)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want merged list of 2", cfg.DisabledTools)
	}
	if cfg.AutosaveInterval != 8 {
		t.Errorf("AutosaveInterval = %d, want default 8", cfg.AutosaveInterval)
	}
}

func TestLoadWithRepo_NoSiteConfig(t *testing.T) {
	globalDir := t.TempDir()

	cfg, err := LoadWithRepo(globalDir, t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.RemoteURL != "" {
		t.Errorf("RemoteURL = %q, want empty", cfg.RemoteURL)
	}
}

func TestMerge_StringSliceDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"a", " b "}}
	overlay := &Config{DisabledTools: []string{"b", "c", ""}}

	got := Merge(base, overlay).DisabledTools
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
