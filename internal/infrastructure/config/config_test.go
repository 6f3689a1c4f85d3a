package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV_TYPE", "LOCAL")
	t.Setenv("LOCAL_DB_DRIVER", "sqlite")
	t.Setenv("LOCAL_DB_NAME", "attendance.db")
	t.Setenv("DEFAULT_ADMIN_PASSWORD", "Admin@123")

	cfg := LoadConfig()
	if cfg.DBDriver != "sqlite" || cfg.GetDSN() != "attendance.db" {
		t.Fatalf("sqlite dsn = %q (driver %q)", cfg.GetDSN(), cfg.DBDriver)
	}
	if cfg.CommandTimeout != 30*time.Minute || cfg.PullTimeout != 5*time.Second {
		t.Fatalf("timeouts = %s / %s", cfg.CommandTimeout, cfg.PullTimeout)
	}
	if cfg.ADMSDelay != 10 || cfg.DefaultScope != "default" {
		t.Fatalf("adms delay %d scope %q", cfg.ADMSDelay, cfg.DefaultScope)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV_TYPE", "SERVER")
	t.Setenv("SERVER_DB_DRIVER", "postgres")
	t.Setenv("SERVER_DB_HOST", "db")
	t.Setenv("SERVER_DB_USER", "hrm")
	t.Setenv("SERVER_DB_PASSWORD", "pw")
	t.Setenv("SERVER_DB_NAME", "hrm")
	t.Setenv("DEFAULT_ADMIN_PASSWORD", "Admin@123")
	t.Setenv("COMMAND_TIMEOUT", "90")
	t.Setenv("BATCH_LOCK_TTL", "2m")
	t.Setenv("REDIS_ENABLED", "false")

	cfg := LoadConfig()
	if cfg.DBPort != "5432" || !strings.Contains(cfg.GetDSN(), "host=db") {
		t.Fatalf("postgres dsn = %q", cfg.GetDSN())
	}
	if cfg.CommandTimeout != 90*time.Second {
		t.Fatalf("plain seconds not parsed: %s", cfg.CommandTimeout)
	}
	if cfg.BatchLockTTL != 2*time.Minute {
		t.Fatalf("duration not parsed: %s", cfg.BatchLockTTL)
	}
	if cfg.RedisEnabled {
		t.Fatal("redis should be disabled")
	}
}

func TestLoadConfigRequiresAdminPassword(t *testing.T) {
	t.Setenv("ENV_TYPE", "LOCAL")
	t.Setenv("LOCAL_DB_DRIVER", "sqlite")
	t.Setenv("LOCAL_DB_NAME", "attendance.db")
	t.Setenv("DEFAULT_ADMIN_PASSWORD", "")

	defer func() {
		if recover() == nil {
			t.Fatal("missing DEFAULT_ADMIN_PASSWORD should panic")
		}
	}()
	LoadConfig()
}

func TestLocation(t *testing.T) {
	if loc := (&Config{}).Location(); loc != time.UTC {
		t.Fatalf("empty timezone = %v", loc)
	}
	if loc := (&Config{Timezone: "Not/AZone"}).Location(); loc != time.UTC {
		t.Fatalf("bad timezone = %v", loc)
	}
	loc := (&Config{Timezone: "Asia/Dhaka"}).Location()
	if loc.String() != "Asia/Dhaka" {
		t.Skipf("tzdata unavailable: %v", loc)
	}
}
