package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mickamy/engine-tap/config"
)

// Precedence tests mutate the process environment, so none of them
// run in parallel.

func resolve(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := config.Register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return f.Resolve()
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := resolve(t)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	def := config.Default()
	if cfg != def {
		t.Fatalf("got %+v, want defaults %+v", cfg, def)
	}
	if cfg.EngineAddr() != "127.0.0.1:9000" {
		t.Fatalf("engine addr %s", cfg.EngineAddr())
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `{"engine_host":"engine.internal","ws_port":9999}`)
	cfg, err := resolve(t, "-config", path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.EngineHost != "engine.internal" || cfg.WSPort != 9999 {
		t.Fatalf("file layer not applied: %+v", cfg)
	}
	// Keys absent from the file keep their defaults.
	if cfg.EnginePort != config.Default().EnginePort {
		t.Fatalf("absent key overwritten: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, `{"engine_host":"from-file"}`)
	t.Setenv("ENGINE_HOST", "from-env")
	cfg, err := resolve(t, "-config", path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.EngineHost != "from-env" {
		t.Fatalf("got %q, want from-env", cfg.EngineHost)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ENGINE_HOST", "from-env")
	t.Setenv("ENGINE_PORT", "9100")
	cfg, err := resolve(t, "-engine-host", "from-flag")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.EngineHost != "from-flag" {
		t.Fatalf("got %q, want from-flag", cfg.EngineHost)
	}
	// Env still wins where no flag was set.
	if cfg.EnginePort != 9100 {
		t.Fatalf("got port %d, want 9100", cfg.EnginePort)
	}
}

func TestValidation(t *testing.T) {
	if _, err := resolve(t, "-transport", "carrier-pigeon"); err == nil {
		t.Fatal("bad transport accepted")
	}
	if _, err := resolve(t, "-transport", "multicast"); err == nil {
		t.Fatal("multicast without group accepted")
	}
	if _, err := resolve(t, "-transport", "multicast", "-multicast-group", "239.0.0.1:9100"); err != nil {
		t.Fatalf("valid multicast rejected: %v", err)
	}
	if _, err := resolve(t, "-ws-port", "70000"); err == nil {
		t.Fatal("out-of-range port accepted")
	}
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv("ENGINE_PORT", "lots")
	if _, err := resolve(t); err == nil {
		t.Fatal("non-numeric ENGINE_PORT accepted")
	}
}
