package window

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"deskport/models"
	"deskport/storage"
)

const (
	stateRunning = "running"
	stateClosing = "closing"

	defaultQueueSize = 64
)

// Host is the OS-level window behind a coordinator. Calls are one way: the
// coordinator observes no return values from its host.
type Host interface {
	BringToFront()
	SetTitle(title string)
	SetGeometry(geometry models.Geometry)
	Reload()
	Close()
}

// GeometryStore reads persisted window geometry. *storage.Store satisfies it.
type GeometryStore interface {
	GetGeometry(role string, windowID int) (models.Geometry, error)
}

// TabEntry is one port-forward session tab. The key doubles as the tab label
// and is the session id.
type TabEntry struct {
	Key     string
	Session models.Session
}

// Options configures a window coordinator.
type Options struct {
	WindowID int
	Role     string
	Host     Host
	Geometry GeometryStore
	Initial  models.Session

	QueueSize int
	Logger    *log.Logger
}

// Coordinator owns the tab collection of one OS-level window and applies
// inbound cross-window control messages to it sequentially.
type Coordinator struct {
	windowID int
	role     string
	host     Host
	geometry GeometryStore
	logger   *log.Logger

	mu    sync.Mutex
	tabs  []TabEntry
	state string

	inbound chan Message

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewCoordinator creates a coordinator with one initial tab synthesized from
// the launch session parameters.
func NewCoordinator(options Options) (*Coordinator, error) {
	if options.Host == nil {
		return nil, errors.New("window host is required")
	}
	if options.Role == "" {
		return nil, errors.New("window role is required")
	}
	if options.WindowID < 0 {
		return nil, errors.New("window id must be >= 0")
	}
	if options.Initial.ID == "" {
		return nil, errors.New("initial session id is required")
	}
	if options.QueueSize <= 0 {
		options.QueueSize = defaultQueueSize
	}
	if options.Logger == nil {
		options.Logger = log.New(io.Discard, "", 0)
	}

	initial := options.Initial
	if initial.ConnToken == "" {
		initial.ConnToken = uuid.NewString()
	}

	return &Coordinator{
		windowID: options.WindowID,
		role:     options.Role,
		host:     options.Host,
		geometry: options.Geometry,
		logger:   options.Logger,
		tabs:     []TabEntry{{Key: initial.ID, Session: initial}},
		state:    stateRunning,
		inbound:  make(chan Message, options.QueueSize),
	}, nil
}

// Start installs the inbound-message consumer and schedules the one-shot
// deferred geometry restore.
func (c *Coordinator) Start() {
	c.startOnce.Do(func() {
		c.ctx, c.cancel = context.WithCancel(context.Background())

		c.wg.Add(1)
		go c.run()

		c.wg.Add(1)
		go c.restoreGeometry()
	})
}

// Stop stops the inbound consumer. Queued but unhandled messages are dropped.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
	})
}

// WindowID returns the stable numeric id of the owning window.
func (c *Coordinator) WindowID() int {
	return c.windowID
}

// Role returns the window-role identifier used for geometry persistence.
func (c *Coordinator) Role() string {
	return c.role
}

// Post enqueues an inbound message, fire and forget. A full queue drops the
// message with a log line; there is no backpressure.
func (c *Coordinator) Post(msg Message) {
	select {
	case c.inbound <- msg:
	default:
		c.logger.Printf("window %d: inbound queue full, dropping %q", c.windowID, msg.Method)
	}
}

// Handle applies one inbound message. The consumer goroutine is the only
// caller at runtime, which keeps message handling sequential per window.
func (c *Coordinator) Handle(msg Message) {
	switch msg.Method {
	case MethodNewPortForward:
		var args NewPortForwardArgs
		if err := json.Unmarshal(msg.Args, &args); err != nil {
			c.logger.Printf("window %d: bad new-port-forward args: %v", c.windowID, err)
			return
		}
		if args.ID == "" {
			c.logger.Printf("window %d: new-port-forward without session id", c.windowID)
			return
		}
		c.AddTab(args.Session())
	case MethodDestroy:
		c.ClearTabs()
	case MethodRebuild:
		c.host.Reload()
	default:
		c.logger.Printf("window %d: unknown method %q", c.windowID, msg.Method)
	}
}

// AddTab appends a session tab and surfaces the window. Adding a session id
// that is already open is an idempotent no-op on the collection, but the
// window is still brought to the foreground. Reports whether a tab was added.
func (c *Coordinator) AddTab(session models.Session) bool {
	c.mu.Lock()
	if c.state == stateClosing {
		c.mu.Unlock()
		return false
	}
	if c.indexOfLocked(session.ID) >= 0 {
		c.mu.Unlock()
		c.host.BringToFront()
		return false
	}
	if session.ConnToken == "" {
		session.ConnToken = uuid.NewString()
	}
	c.tabs = append(c.tabs, TabEntry{Key: session.ID, Session: session})
	c.mu.Unlock()

	c.host.BringToFront()
	c.host.SetTitle(windowTitle(session))
	return true
}

// RemoveTab removes one session tab. Removing the last tab closes the owning
// window; removing a tab while others remain leaves the window open. Reports
// whether a tab was removed.
func (c *Coordinator) RemoveTab(key string) bool {
	c.mu.Lock()
	index := c.indexOfLocked(key)
	if index < 0 {
		c.mu.Unlock()
		return false
	}
	c.tabs = append(c.tabs[:index], c.tabs[index+1:]...)
	shouldClose := len(c.tabs) == 0 && c.state != stateClosing
	if shouldClose {
		c.state = stateClosing
	}
	c.mu.Unlock()

	if shouldClose {
		c.host.Close()
	}
	return true
}

// ClearTabs drops every tab without closing the window.
func (c *Coordinator) ClearTabs() {
	c.mu.Lock()
	c.tabs = c.tabs[:0]
	c.mu.Unlock()
}

// CloseRequested clears all tabs so a user-initiated window close leaves no
// dangling session state, then marks the coordinator closing.
func (c *Coordinator) CloseRequested() {
	c.mu.Lock()
	c.tabs = c.tabs[:0]
	c.state = stateClosing
	c.mu.Unlock()
}

// Tabs returns a snapshot of the current tab collection.
func (c *Coordinator) Tabs() []TabEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TabEntry(nil), c.tabs...)
}

// HasTab reports whether a session tab with the given key is open.
func (c *Coordinator) HasTab(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOfLocked(key) >= 0
}

func (c *Coordinator) indexOfLocked(key string) int {
	for i, tab := range c.tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}

func (c *Coordinator) run() {
	defer c.wg.Done()
	for {
		select {
		case msg := <-c.inbound:
			c.Handle(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// restoreGeometry runs once after startup; a restore failure is logged and
// never retried.
func (c *Coordinator) restoreGeometry() {
	defer c.wg.Done()
	if c.geometry == nil {
		return
	}

	geometry, err := c.geometry.GetGeometry(c.role, c.windowID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Printf("window %d: restore geometry: %v", c.windowID, err)
		}
		return
	}
	c.host.SetGeometry(geometry)
}

func windowTitle(session models.Session) string {
	if session.IsRDP {
		return fmt.Sprintf("RDP - %s", session.ID)
	}
	return fmt.Sprintf("Port Forward - %s", session.ID)
}
