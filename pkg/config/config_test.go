package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/netsweep/netsweep/pkg/util"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.DeviceTimeout.Std() != DefaultDeviceTimeout {
		t.Errorf("DeviceTimeout = %v, want %v", cfg.DeviceTimeout, DefaultDeviceTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsweep.yaml")
	content := `
concurrency: 12
device_timeout: 2m
retries: 1
neighbor_exclude: "_AP"
mail:
  host: smtp.example.net
  port: 587
  from: reports@example.net
  recipients: [noc@example.net]
file_server:
  host: files.example.net
  port: 22
  user: uploads
  base_dir: /mnt/reports
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != 12 {
		t.Errorf("Concurrency = %d, want 12", cfg.Concurrency)
	}
	if cfg.DeviceTimeout.Std() != 2*time.Minute {
		t.Errorf("DeviceTimeout = %v, want 2m", cfg.DeviceTimeout)
	}
	if cfg.Mail.Host != "smtp.example.net" {
		t.Errorf("Mail.Host = %q, want smtp.example.net", cfg.Mail.Host)
	}
	if cfg.FileServer.BaseDir != "/mnt/reports" {
		t.Errorf("FileServer.BaseDir = %q", cfg.FileServer.BaseDir)
	}
	// Unset fields keep defaults.
	if cfg.ModemUserEnv != "USER1" {
		t.Errorf("ModemUserEnv = %q, want USER1", cfg.ModemUserEnv)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want default", cfg.Concurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative retries", func(c *Config) { c.Retries = -1 }},
		{"zero timeout", func(c *Config) { c.DeviceTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if cfg.Validate() == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# credentials\nUSER9=admin\nexport PW9=\"s3cret pass\"\nbroken line\n\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("USER9", "")
	os.Unsetenv("USER9")
	os.Unsetenv("PW9")
	defer os.Unsetenv("USER9")
	defer os.Unsetenv("PW9")

	keys, err := LoadEnvFile(path)
	if err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("LoadEnvFile() set %d keys, want 2", len(keys))
	}
	if got := os.Getenv("USER9"); got != "admin" {
		t.Errorf("USER9 = %q, want %q", got, "admin")
	}
	if got := os.Getenv("PW9"); got != "s3cret pass" {
		t.Errorf("PW9 = %q, want %q", got, "s3cret pass")
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("USER8=fromfile\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("USER8", "fromenv")

	if _, err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("USER8"); got != "fromenv" {
		t.Errorf("USER8 = %q, existing environment should win", got)
	}
}

func TestResolve(t *testing.T) {
	t.Setenv("PW_TEST", "hunter2")

	t.Run("normalizes key", func(t *testing.T) {
		got, err := Resolve(" pw_test \n")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != "hunter2" {
			t.Errorf("Resolve() = %q, want %q", got, "hunter2")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := Resolve("PW_NOPE")
		if !errors.Is(err, util.ErrMissingCredential) {
			t.Errorf("Resolve() error = %v, want ErrMissingCredential", err)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		if _, err := Resolve("  "); err == nil {
			t.Error("Resolve(blank) should fail")
		}
	})
}
