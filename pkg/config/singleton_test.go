package config

import (
	"path/filepath"
	"testing"
)

func TestSetConfig_GetConfig(t *testing.T) {
	prev := GetConfig()
	t.Cleanup(func() { SetConfig(prev) })

	cfg := NewDefaultConfig()
	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Error("GetConfig() did not return the config passed to SetConfig")
	}
	if MustGetConfig() != cfg {
		t.Error("MustGetConfig() did not return the config passed to SetConfig")
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	prev := GetConfig()
	t.Cleanup(func() { SetConfig(prev) })
	SetConfig(nil)

	defer func() {
		if recover() == nil {
			t.Error("MustGetConfig() did not panic")
		}
	}()
	MustGetConfig()
}

func TestReloadConfig_KeepsCurrentOnFailure(t *testing.T) {
	prev := GetConfig()
	t.Cleanup(func() { SetConfig(prev) })

	cfg := NewDefaultConfig()
	SetConfig(cfg)

	if err := ReloadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("ReloadConfig() error = nil, want error")
	}
	if GetConfig() != cfg {
		t.Error("failed reload replaced the configuration")
	}

	path := writeConfig(t, "rules:\n  deploy_retries: 7\n")
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if GetConfig().Rules.DeployRetries != 7 {
		t.Errorf("DeployRetries = %d, want 7", GetConfig().Rules.DeployRetries)
	}
}
