package server

import (
	"context"
	"testing"
	"time"

	"github.com/GoCodeAlone/docket/catalog"
	"github.com/GoCodeAlone/docket/comms"
	"github.com/GoCodeAlone/docket/config"
	"github.com/GoCodeAlone/docket/engine"
	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/policy"
	"github.com/GoCodeAlone/docket/task"
)

const testSecret = "test-secret-key-1234567890"

var (
	testAdmin   = policy.Actor{ID: "root", Name: "Office", Role: task.RoleAdmin}
	testManager = policy.Actor{ID: "cm-1", Name: "Dana", Role: task.RoleCaseManager}
)

// newTestServer wires a server over an in-memory store, the default catalog
// and a single intake case.
func newTestServer(t *testing.T) (*Server, *comms.InMemoryBus) {
	t.Helper()
	bus := comms.NewInMemoryBus()
	store := task.Open(context.Background(), task.NewMemoryRepository(), task.WithPublisher(bus))
	cases := lawcase.StaticSource{{ID: "c1", Name: "Rivera v. Acme", Stage: lawcase.StageIntake}}

	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Auth:   config.AuthConfig{JWTSecret: testSecret},
	}
	s := New(cfg, "test", nil)
	s.SetService(engine.NewService(store, catalog.Default(), cases))
	s.SetBus(bus)
	return s, bus
}

func mustToken(t *testing.T, actor policy.Actor) string {
	t.Helper()
	token, err := SignActorToken(testSecret, actor, time.Hour)
	if err != nil {
		t.Fatalf("SignActorToken: %v", err)
	}
	return token
}
