package window

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"deskport/models"
)

type fakeHost struct {
	mu           sync.Mutex
	frontCalls   int
	closeCalls   int
	reloadCalls  int
	titles       []string
	geometries   []models.Geometry
	geometrySet  chan struct{}
	geometryOnce sync.Once
}

func newFakeHost() *fakeHost {
	return &fakeHost{geometrySet: make(chan struct{})}
}

func (h *fakeHost) BringToFront() {
	h.mu.Lock()
	h.frontCalls++
	h.mu.Unlock()
}

func (h *fakeHost) SetTitle(title string) {
	h.mu.Lock()
	h.titles = append(h.titles, title)
	h.mu.Unlock()
}

func (h *fakeHost) SetGeometry(geometry models.Geometry) {
	h.mu.Lock()
	h.geometries = append(h.geometries, geometry)
	h.mu.Unlock()
	h.geometryOnce.Do(func() { close(h.geometrySet) })
}

func (h *fakeHost) Reload() {
	h.mu.Lock()
	h.reloadCalls++
	h.mu.Unlock()
}

func (h *fakeHost) Close() {
	h.mu.Lock()
	h.closeCalls++
	h.mu.Unlock()
}

func (h *fakeHost) counts() (front, closed, reload int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frontCalls, h.closeCalls, h.reloadCalls
}

type fakeGeometryStore struct {
	geometry models.Geometry
	err      error
	calls    int
}

func (s *fakeGeometryStore) GetGeometry(role string, windowID int) (models.Geometry, error) {
	s.calls++
	if s.err != nil {
		return models.Geometry{}, s.err
	}
	return s.geometry, nil
}

func newTestCoordinator(t *testing.T, host Host, geometry GeometryStore) *Coordinator {
	t.Helper()

	coordinator, err := NewCoordinator(Options{
		WindowID: 7,
		Role:     "port-forward",
		Host:     host,
		Geometry: geometry,
		Initial:  models.Session{ID: "X", Password: "pw"},
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	return coordinator
}

func TestNewCoordinatorSynthesizesInitialTab(t *testing.T) {
	coordinator := newTestCoordinator(t, newFakeHost(), nil)

	tabs := coordinator.Tabs()
	if len(tabs) != 1 {
		t.Fatalf("expected one initial tab, got %d", len(tabs))
	}
	if tabs[0].Key != "X" {
		t.Fatalf("expected initial tab key X, got %q", tabs[0].Key)
	}
	if tabs[0].Session.ConnToken == "" {
		t.Fatalf("expected a generated conn token for the initial session")
	}
}

func TestNewCoordinatorValidatesOptions(t *testing.T) {
	cases := []struct {
		name    string
		options Options
	}{
		{"missing host", Options{Role: "port-forward", Initial: models.Session{ID: "X"}}},
		{"missing role", Options{Host: newFakeHost(), Initial: models.Session{ID: "X"}}},
		{"missing session id", Options{Host: newFakeHost(), Role: "port-forward"}},
		{"negative window id", Options{WindowID: -1, Host: newFakeHost(), Role: "port-forward", Initial: models.Session{ID: "X"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCoordinator(tc.options); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestAddTabIsIdempotentButStillForegrounds(t *testing.T) {
	host := newFakeHost()
	coordinator := newTestCoordinator(t, host, nil)

	if added := coordinator.AddTab(models.Session{ID: "X", Password: "other"}); added {
		t.Fatalf("expected duplicate add to be a no-op")
	}
	if len(coordinator.Tabs()) != 1 {
		t.Fatalf("expected collection size 1 after duplicate add, got %d", len(coordinator.Tabs()))
	}

	front, _, _ := host.counts()
	if front != 1 {
		t.Fatalf("expected foreground action on duplicate add, got %d calls", front)
	}
}

func TestAddTabAppendsNewSession(t *testing.T) {
	host := newFakeHost()
	coordinator := newTestCoordinator(t, host, nil)

	if added := coordinator.AddTab(models.Session{ID: "Y", IsRDP: true}); !added {
		t.Fatalf("expected new session to be added")
	}

	tabs := coordinator.Tabs()
	if len(tabs) != 2 || tabs[1].Key != "Y" {
		t.Fatalf("unexpected tabs after add: %+v", tabs)
	}

	host.mu.Lock()
	titles := append([]string(nil), host.titles...)
	host.mu.Unlock()
	if len(titles) != 1 || titles[0] != "RDP - Y" {
		t.Fatalf("unexpected titles: %v", titles)
	}
}

func TestRemoveLastTabClosesWindowExactlyOnce(t *testing.T) {
	host := newFakeHost()
	coordinator := newTestCoordinator(t, host, nil)
	coordinator.AddTab(models.Session{ID: "Y"})

	if removed := coordinator.RemoveTab("X"); !removed {
		t.Fatalf("expected X to be removed")
	}
	if _, closed, _ := host.counts(); closed != 0 {
		t.Fatalf("expected no close while a tab remains, got %d", closed)
	}
	if tabs := coordinator.Tabs(); len(tabs) != 1 || tabs[0].Key != "Y" {
		t.Fatalf("unexpected tabs after first removal: %+v", tabs)
	}

	if removed := coordinator.RemoveTab("Y"); !removed {
		t.Fatalf("expected Y to be removed")
	}
	if _, closed, _ := host.counts(); closed != 1 {
		t.Fatalf("expected exactly one close, got %d", closed)
	}

	// The coordinator is closing; nothing further closes or reopens it.
	if removed := coordinator.RemoveTab("Y"); removed {
		t.Fatalf("expected removal of missing tab to be a no-op")
	}
	if added := coordinator.AddTab(models.Session{ID: "Z"}); added {
		t.Fatalf("expected add to be rejected while closing")
	}
	if _, closed, _ := host.counts(); closed != 1 {
		t.Fatalf("expected close count to stay at one, got %d", closed)
	}
}

func TestDestroyClearsTabsWithoutClosing(t *testing.T) {
	host := newFakeHost()
	coordinator := newTestCoordinator(t, host, nil)
	coordinator.AddTab(models.Session{ID: "Y"})

	coordinator.Handle(DestroyMessage())

	if tabs := coordinator.Tabs(); len(tabs) != 0 {
		t.Fatalf("expected empty collection after destroy, got %+v", tabs)
	}
	if _, closed, _ := host.counts(); closed != 0 {
		t.Fatalf("destroy must not close the window, got %d close calls", closed)
	}

	// The window stays usable for later sessions.
	if added := coordinator.AddTab(models.Session{ID: "Z"}); !added {
		t.Fatalf("expected add to succeed after destroy")
	}
}

func TestRebuildAsksHostToReload(t *testing.T) {
	host := newFakeHost()
	coordinator := newTestCoordinator(t, host, nil)

	coordinator.Handle(RebuildMessage())

	if _, _, reload := host.counts(); reload != 1 {
		t.Fatalf("expected one reload, got %d", reload)
	}
	if len(coordinator.Tabs()) != 1 {
		t.Fatalf("rebuild must preserve tabs")
	}
}

func TestHandleNewPortForwardMessage(t *testing.T) {
	host := newFakeHost()
	coordinator := newTestCoordinator(t, host, nil)

	msg, err := NewPortForwardMessage(models.Session{ID: "Y", ForceRelay: true, ConnToken: "token-1"})
	if err != nil {
		t.Fatalf("NewPortForwardMessage failed: %v", err)
	}
	coordinator.Handle(msg)

	tabs := coordinator.Tabs()
	if len(tabs) != 2 {
		t.Fatalf("expected two tabs, got %d", len(tabs))
	}
	session := tabs[1].Session
	if !session.ForceRelay || session.ConnToken != "token-1" {
		t.Fatalf("unexpected session payload: %+v", session)
	}
}

func TestHandleIgnoresMalformedArgs(t *testing.T) {
	coordinator := newTestCoordinator(t, newFakeHost(), nil)

	coordinator.Handle(Message{Method: MethodNewPortForward, Args: json.RawMessage(`{"id":`)})
	coordinator.Handle(Message{Method: MethodNewPortForward, Args: json.RawMessage(`{"isRDP":true}`)})

	if len(coordinator.Tabs()) != 1 {
		t.Fatalf("malformed messages must not change the collection")
	}
}

func TestCloseRequestedClearsSessionState(t *testing.T) {
	host := newFakeHost()
	coordinator := newTestCoordinator(t, host, nil)
	coordinator.AddTab(models.Session{ID: "Y"})

	coordinator.CloseRequested()

	if len(coordinator.Tabs()) != 0 {
		t.Fatalf("expected no tabs after user close")
	}
	if _, closed, _ := host.counts(); closed != 0 {
		t.Fatalf("user close proceeds via the host, not the coordinator")
	}
}

func TestStartRestoresGeometryOnce(t *testing.T) {
	host := newFakeHost()
	store := &fakeGeometryStore{geometry: models.Geometry{X: 10, Y: 20, Width: 800, Height: 600}}
	coordinator := newTestCoordinator(t, host, store)

	coordinator.Start()
	defer coordinator.Stop()

	select {
	case <-host.geometrySet:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for geometry restore")
	}

	host.mu.Lock()
	geometries := append([]models.Geometry(nil), host.geometries...)
	host.mu.Unlock()
	if len(geometries) != 1 || geometries[0] != store.geometry {
		t.Fatalf("unexpected restored geometries: %+v", geometries)
	}

	// Start is idempotent; no second restore fires.
	coordinator.Start()
	time.Sleep(20 * time.Millisecond)
	if store.calls != 1 {
		t.Fatalf("expected one geometry read, got %d", store.calls)
	}
}

func TestStartToleratesMissingGeometry(t *testing.T) {
	host := newFakeHost()
	store := &fakeGeometryStore{err: errors.New("window_geometry: no row")}
	coordinator := newTestCoordinator(t, host, store)

	coordinator.Start()
	defer coordinator.Stop()

	time.Sleep(20 * time.Millisecond)
	host.mu.Lock()
	count := len(host.geometries)
	host.mu.Unlock()
	if count != 0 {
		t.Fatalf("expected no geometry application on restore failure")
	}
}

func TestPostedMessagesAreHandledSequentially(t *testing.T) {
	host := newFakeHost()
	coordinator := newTestCoordinator(t, host, nil)
	coordinator.Start()
	defer coordinator.Stop()

	for i := 0; i < 10; i++ {
		msg, err := NewPortForwardMessage(models.Session{ID: "X"})
		if err != nil {
			t.Fatalf("NewPortForwardMessage failed: %v", err)
		}
		coordinator.Post(msg)
	}

	waitForCondition(t, time.Second, func() bool {
		front, _, _ := host.counts()
		return front == 10
	})

	if len(coordinator.Tabs()) != 1 {
		t.Fatalf("duplicate posts must stay idempotent, got %d tabs", len(coordinator.Tabs()))
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
