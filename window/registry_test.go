package window

import (
	"bytes"
	"log"
	"testing"
	"time"

	"deskport/models"
)

func TestRegistryRoutesToWindow(t *testing.T) {
	registry := NewRegistry(nil)

	hostA := newFakeHost()
	coordinatorA := newTestCoordinator(t, hostA, nil)
	coordinatorA.Start()
	defer coordinatorA.Stop()

	if err := registry.Register(coordinatorA); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := registry.Register(coordinatorA); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	msg, err := NewPortForwardMessage(models.Session{ID: "Y"})
	if err != nil {
		t.Fatalf("NewPortForwardMessage failed: %v", err)
	}
	registry.Post(coordinatorA.WindowID(), msg)

	waitForCondition(t, time.Second, func() bool {
		return coordinatorA.HasTab("Y")
	})
}

func TestRegistryDropsMessageForUnknownWindow(t *testing.T) {
	var logBuf bytes.Buffer
	registry := NewRegistry(log.New(&logBuf, "", 0))

	registry.Post(99, DestroyMessage())

	if logBuf.Len() == 0 {
		t.Fatalf("expected a log line for the dropped message")
	}
}

func TestRegistryBroadcast(t *testing.T) {
	registry := NewRegistry(nil)

	coordinators := make([]*Coordinator, 0, 2)
	for i := 0; i < 2; i++ {
		coordinator, err := NewCoordinator(Options{
			WindowID: i + 1,
			Role:     "port-forward",
			Host:     newFakeHost(),
			Initial:  models.Session{ID: "X"},
		})
		if err != nil {
			t.Fatalf("NewCoordinator failed: %v", err)
		}
		coordinator.Start()
		defer coordinator.Stop()
		if err := registry.Register(coordinator); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		coordinators = append(coordinators, coordinator)
	}

	registry.Broadcast(DestroyMessage())

	waitForCondition(t, time.Second, func() bool {
		for _, coordinator := range coordinators {
			if len(coordinator.Tabs()) != 0 {
				return false
			}
		}
		return true
	})

	registry.Unregister(1)
	if registry.Get(1) != nil {
		t.Fatalf("expected window 1 to be unregistered")
	}
	if registry.Get(2) == nil {
		t.Fatalf("expected window 2 to remain registered")
	}
}
