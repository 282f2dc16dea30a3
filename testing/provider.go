package testing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/korospace/BE-WA-blaster/types"
)

// FakeProvider is a scriptable in-memory types.SessionProvider.
//
// Each Open call produces a fresh FakeSession whose events are injected
// by the test. All sessions ever opened are retained, so tests can
// assert on re-initialization behavior (self-heal, sweeper
// resurrection) by counting sessions per instance.
type FakeProvider struct {
	mu       sync.Mutex
	sessions map[string][]*FakeSession

	// OpenErr, when set, fails every Open call with this error.
	OpenErr error

	// InitErr, when set, is returned by Initialize on sessions opened
	// afterwards.
	InitErr error

	// InitBlocks, when true, makes Initialize block until its context
	// expires. Used to exercise the bounded-startup timeout.
	InitBlocks bool

	opens atomic.Int64
}

var _ types.SessionProvider = (*FakeProvider)(nil)

// NewFakeProvider creates an empty fake provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{sessions: make(map[string][]*FakeSession)}
}

// Open creates a new FakeSession for the instance.
func (p *FakeProvider) Open(_ context.Context, instanceID string) (types.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.opens.Add(1)

	if p.OpenErr != nil {
		return nil, p.OpenErr
	}

	s := &FakeSession{
		instanceID: instanceID,
		events:     make(chan types.Event, 16),
		initErr:    p.InitErr,
		initBlocks: p.InitBlocks,
	}
	p.sessions[instanceID] = append(p.sessions[instanceID], s)

	return s, nil
}

// OpenCount returns the total number of Open calls, failed ones included.
func (p *FakeProvider) OpenCount() int {
	return int(p.opens.Load())
}

// SessionCount returns how many sessions were opened for the instance.
func (p *FakeProvider) SessionCount(instanceID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.sessions[instanceID])
}

// Session returns the most recently opened session for the instance, or
// nil if none was opened.
func (p *FakeProvider) Session(instanceID string) *FakeSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := p.sessions[instanceID]
	if len(all) == 0 {
		return nil
	}

	return all[len(all)-1]
}

// WaitForSession waits until at least n sessions were opened for the
// instance and returns the latest one. Fails the test on timeout.
func (p *FakeProvider) WaitForSession(t *testing.T, instanceID string, n int) *FakeSession {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p.SessionCount(instanceID) >= n {
			return p.Session(instanceID)
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("no session %d opened for instance %s within timeout", n, instanceID)

	return nil
}

// SentMessage is one message recorded by a FakeSession.
type SentMessage struct {
	Recipient string
	Text      string
}

// FakeSession is the scriptable types.SessionHandle produced by
// FakeProvider.
type FakeSession struct {
	instanceID string
	events     chan types.Event
	closeOnce  sync.Once

	initErr    error
	initBlocks bool

	state atomic.Int32 // types.ConnState

	mu      sync.Mutex
	sent    []SentMessage
	sendErr error

	logouts  atomic.Int64
	destroys atomic.Int64
}

var _ types.SessionHandle = (*FakeSession)(nil)

// Initialize honors the provider's scripted init behavior and marks the
// session connecting.
func (s *FakeSession) Initialize(ctx context.Context) error {
	if s.initBlocks {
		<-ctx.Done()
		return ctx.Err()
	}

	if s.initErr != nil {
		return s.initErr
	}

	s.state.Store(int32(types.ConnStateConnecting))

	return nil
}

// State returns the scripted connection state.
func (s *FakeSession) State(_ context.Context) (types.ConnState, error) {
	return types.ConnState(s.state.Load()), nil
}

// SetState scripts the connection state reported by State.
func (s *FakeSession) SetState(state types.ConnState) {
	s.state.Store(int32(state))
}

// SendMessage records the message, or fails with the scripted send error.
func (s *FakeSession) SendMessage(_ context.Context, recipient, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sendErr != nil {
		return s.sendErr
	}

	s.sent = append(s.sent, SentMessage{Recipient: recipient, Text: text})

	return nil
}

// SetSendErr scripts a failure for subsequent SendMessage calls.
func (s *FakeSession) SetSendErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sendErr = err
}

// Sent returns a copy of all recorded messages.
func (s *FakeSession) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)

	return out
}

// Logout counts the call and marks the session disconnected.
func (s *FakeSession) Logout(_ context.Context) error {
	s.logouts.Add(1)
	s.state.Store(int32(types.ConnStateDisconnected))

	return nil
}

// LogoutCount returns how many times Logout was called.
func (s *FakeSession) LogoutCount() int {
	return int(s.logouts.Load())
}

// Destroy counts the call, marks the session disconnected and closes the
// event stream.
func (s *FakeSession) Destroy(_ context.Context) error {
	s.destroys.Add(1)
	s.state.Store(int32(types.ConnStateDisconnected))
	s.closeOnce.Do(func() { close(s.events) })

	return nil
}

// DestroyCount returns how many times Destroy was called.
func (s *FakeSession) DestroyCount() int {
	return int(s.destroys.Load())
}

// Events returns the injectable event stream.
func (s *FakeSession) Events() <-chan types.Event {
	return s.events
}

// Emit injects one event into the stream.
func (s *FakeSession) Emit(ev types.Event) {
	s.events <- ev
}

// EmitReadyFlow injects the happy-path pairing sequence: qr,
// authenticated, then ready with the given phone number. The connection
// state is marked connected.
func (s *FakeSession) EmitReadyFlow(qr, phone string) {
	s.Emit(types.Event{Type: types.EventQR, QR: qr})
	s.Emit(types.Event{Type: types.EventAuthenticated})
	s.SetState(types.ConnStateConnected)
	s.Emit(types.Event{Type: types.EventReady, Phone: phone})
}

// CloseEvents closes the event stream without a Destroy call, simulating
// a provider that drops the session.
func (s *FakeSession) CloseEvents() {
	s.closeOnce.Do(func() { close(s.events) })
}
