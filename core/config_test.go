package core

import (
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_DATABASE_PATH", "/tmp/tamkeen/test.db")
	t.Setenv("TEST_SESSION_TTL", "2h")
	t.Setenv("TEST_SERVER_REQUIREAUTH", "false")
	t.Setenv("TEST_SYNC_BATCHSIZE", "0")

	conf := NewConfig()

	if conf.Env != "TEST" {
		t.Errorf("Env = %s; want TEST", conf.Env)
	}
	if !conf.TestMode || !conf.Debug {
		t.Errorf("TestMode, Debug = %v, %v; want true, true", conf.TestMode, conf.Debug)
	}
	if conf.Database.Path != "/tmp/tamkeen/test.db" {
		t.Errorf("Database.Path = %s; want the environment value", conf.Database.Path)
	}
	if conf.Session.TTL != 2*time.Hour {
		t.Errorf("Session.TTL = %s; want 2h", conf.Session.TTL)
	}
	if conf.Server.RequireAuth {
		t.Error("Server.RequireAuth = true; want the environment value")
	}
	if conf.Sync.BatchSize != 50 {
		t.Errorf("Sync.BatchSize = %d; want the default", conf.Sync.BatchSize)
	}
	if conf.Admin.Email != "admin@tamkeen.local" || conf.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("defaults not applied: %+v", conf)
	}
}
