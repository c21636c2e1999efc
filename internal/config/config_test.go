package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults should not fail: %v", err)
	}

	if cfg.Monitor.HighActivityThreshold != 5 {
		t.Fatalf("unexpected high activity threshold: %d", cfg.Monitor.HighActivityThreshold)
	}
	if cfg.Monitor.BidHistorySize != 20 {
		t.Fatalf("unexpected history size: %d", cfg.Monitor.BidHistorySize)
	}
	if cfg.Monitor.UpdateInterval != 10*time.Second {
		t.Fatalf("unexpected update interval: %s", cfg.Monitor.UpdateInterval)
	}
	if cfg.Monitor.Cooldowns.EndingSoon != 30*time.Second {
		t.Fatalf("unexpected ending-soon cooldown: %s", cfg.Monitor.Cooldowns.EndingSoon)
	}
	if cfg.Monitor.Cooldowns.NoActivity != 10*time.Minute {
		t.Fatalf("unexpected no-activity cooldown: %s", cfg.Monitor.Cooldowns.NoActivity)
	}
}

func TestMonitorSettingsConversion(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults should not fail: %v", err)
	}

	settings := cfg.MonitorSettings()
	if !settings.MinHighPriceThreshold.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("unexpected price floor: %s", settings.MinHighPriceThreshold)
	}
	if settings.Cooldowns.HighActivity != 3*time.Minute {
		t.Fatalf("unexpected high-activity cooldown: %s", settings.Cooldowns.HighActivity)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("loading defaults should not fail: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Monitor.BidHistorySize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero history size must be rejected")
	}

	cfg = base()
	cfg.Monitor.UpdateInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero update interval must be rejected")
	}

	cfg = base()
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled telegram without credentials must be rejected")
	}
}
