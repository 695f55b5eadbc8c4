package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig_Thresholds verifies the decision thresholds carry defaults
func TestDefaultConfig_Thresholds(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Intents.FuzzyAccept == 0 {
		t.Error("FuzzyAccept should have a default value")
	}
	if cfg.Intents.ConfHigh <= cfg.Intents.ConfMid {
		t.Error("ConfHigh should sit above ConfMid")
	}
	if cfg.Intents.PairWindowMinutes == 0 {
		t.Error("PairWindowMinutes should not be zero")
	}
	if cfg.Intents.ClarifyWindowMinutes == 0 {
		t.Error("ClarifyWindowMinutes should not be zero")
	}
}

// TestDefaultConfig_WakeWords verifies the bot answers to at least one name
func TestDefaultConfig_WakeWords(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Bot.WakeWords) == 0 {
		t.Error("WakeWords should not be empty")
	}
	if cfg.Bot.Timezone == "" {
		t.Error("Timezone should have a default value")
	}
}

// TestDefaultConfig_Channels verifies all connectors are disabled by default
func TestDefaultConfig_Channels(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Channels.Discord.Enabled {
		t.Error("Discord should be disabled by default")
	}
	if cfg.Channels.Telegram.Enabled {
		t.Error("Telegram should be disabled by default")
	}
	if cfg.Channels.Console.Enabled {
		t.Error("Console should be disabled by default")
	}
}

// TestDefaultConfig_Spam verifies the spam engine defaults
func TestDefaultConfig_Spam(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Spam.Enabled {
		t.Error("Spam engine should be enabled by default")
	}
	if cfg.Spam.MinAccountDays == 0 {
		t.Error("MinAccountDays should not be zero")
	}
	if len(cfg.Spam.Phrases) == 0 {
		t.Error("Phrase list should not be empty")
	}
}

// TestDefaultConfig_Registry verifies the registry ships with entities
func TestDefaultConfig_Registry(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Registry.Cats) == 0 {
		t.Error("Registry should carry default cats")
	}
	if len(cfg.Registry.Stations) == 0 {
		t.Error("Registry should carry default stations")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Bot.Name != "tomcat" {
		t.Fatalf("expected default bot name, got %q", cfg.Bot.Name)
	}
}

func TestLoadConfigOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"bot": {"name": "whiskers"}, "intents": {"conf_mid": 0.6}}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Bot.Name != "whiskers" {
		t.Fatalf("expected file override, got %q", cfg.Bot.Name)
	}
	if cfg.Intents.ConfMid != 0.6 {
		t.Fatalf("expected conf_mid 0.6, got %v", cfg.Intents.ConfMid)
	}
	if cfg.Intents.FuzzyAccept != 0.88 {
		t.Fatalf("untouched fields should keep defaults, got %v", cfg.Intents.FuzzyAccept)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TOMCAT_BOT_TIMEZONE", "America/New_York")
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Bot.Timezone != "America/New_York" {
		t.Fatalf("expected env override, got %q", cfg.Bot.Timezone)
	}
}

func TestResolveSecretEnvRefs(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("TOMCAT_TEST_DISCORD_TOKEN", "token-from-env")
	cfg.Channels.Discord.Token = "${TOMCAT_TEST_DISCORD_TOKEN}"

	resolveSecretEnvRefs(cfg)

	if cfg.Channels.Discord.Token != "token-from-env" {
		t.Fatalf("expected env ref to resolve, got %q", cfg.Channels.Discord.Token)
	}
}

func TestResolveEnvRefKeepsOriginalWhenUnset(t *testing.T) {
	_ = os.Unsetenv("TOMCAT_TEST_UNSET_TOKEN")
	raw := "${TOMCAT_TEST_UNSET_TOKEN}"
	if got := resolveEnvRef(raw); got != raw {
		t.Fatalf("expected unresolved ref to stay unchanged, got %q", got)
	}
}

func TestValidateRejectsEmptyRegistry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Registry.Cats = nil
	cfg.Registry.Stations = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("empty registry should not validate")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := ExpandHome("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Fatalf("expected %s, got %s", filepath.Join(home, "x.db"), got)
	}
	if got := ExpandHome("/abs/x.db"); got != "/abs/x.db" {
		t.Fatalf("absolute path should pass through, got %s", got)
	}
}
