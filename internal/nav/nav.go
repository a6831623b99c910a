// Package nav maps the back signal onto screen transitions.
//
// The machine mirrors a linear history: every OpenDetail and OpenOverlay
// pushes one synthetic entry, and every Back, CloseOverlay or GoHome retires
// entries through the same consume path. Depth always equals the number of
// pushed entries not yet consumed.
//
// States:
//
//	Home ──OpenDetail──▶ Detail(id)
//	  │                     │
//	  └─OpenOverlay─▶ +overlay ◀─OpenOverlay─┘
//
// Back priority: close the overlay, else Detail → Home, else Exit.
package nav

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/khata/internal/ledger"
)

// Screen is the primary view.
type Screen int

const (
	Home Screen = iota
	Detail
)

func (s Screen) String() string {
	if s == Detail {
		return "Detail"
	}
	return "Home"
}

// Overlay is a transient modal drawn over the current screen.
type Overlay int

const (
	NoOverlay Overlay = iota
	AddOrEditCustomer
	AddTransaction
)

func (o Overlay) String() string {
	switch o {
	case AddOrEditCustomer:
		return "AddOrEditCustomer"
	case AddTransaction:
		return "AddTransaction"
	default:
		return "None"
	}
}

// ParseOverlay accepts the overlay names used in scenarios and the shell.
func ParseOverlay(s string) (Overlay, error) {
	switch s {
	case "customer", "AddOrEditCustomer":
		return AddOrEditCustomer, nil
	case "transaction", "AddTransaction":
		return AddTransaction, nil
	default:
		return NoOverlay, fmt.Errorf("unknown overlay %q", s)
	}
}

// State is a snapshot of the machine.
type State struct {
	Screen     Screen
	CustomerID string
	Overlay    Overlay
	Depth      int
}

// String renders "Home", "Detail(c-1)" or "Detail(c-1)+AddTransaction".
func (s State) String() string {
	out := s.Screen.String()
	if s.Screen == Detail {
		out = fmt.Sprintf("Detail(%s)", s.CustomerID)
	}
	if s.Overlay != NoOverlay {
		out += "+" + s.Overlay.String()
	}
	return out
}

// Outcome reports what a consumed back signal did.
type Outcome int

const (
	// Exit: nothing to consume. The signal should propagate to the host.
	Exit Outcome = iota
	ClosedOverlay
	ReturnedHome
)

func (o Outcome) String() string {
	switch o {
	case ClosedOverlay:
		return "closed overlay"
	case ReturnedHome:
		return "returned home"
	default:
		return "exit"
	}
}

// ErrOverlayOpen is the cause when a second overlay is requested.
var ErrOverlayOpen = errors.New("an overlay is already open")

// Directory answers whether a customer is still present. *ledger.Store
// satisfies it.
type Directory interface {
	Has(id string) bool
}

// Transition is delivered to listeners after every state change.
type Transition struct {
	From  State
	To    State
	Cause string
	Epoch uint64
}

// Listener observes transitions. Listeners run outside the machine's lock
// and may call back into it.
type Listener func(Transition)

// Machine is the navigation state machine.
//
// Thread-safety: all methods are safe for concurrent use.
//
// INVARIANTS:
//   - depth == entries pushed and not yet consumed
//   - depth == 0 implies Home with no overlay
//   - epoch grows on every screen change
type Machine struct {
	mu        sync.Mutex
	dir       Directory
	state     State
	epoch     uint64
	listeners map[int]Listener
	nextID    int
}

// NewMachine starts at Home with no overlay and depth 0.
func NewMachine(dir Directory) *Machine {
	return &Machine{dir: dir, listeners: make(map[int]Listener)}
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Depth returns the number of unconsumed synthetic entries.
func (m *Machine) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Depth
}

// Epoch identifies the current screen visit. It changes whenever the screen
// changes, so a detail refetch started under one epoch is stale once the
// epoch has moved on, even if the same customer was reopened.
func (m *Machine) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Subscribe registers fn and returns a function that removes it.
func (m *Machine) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// OpenDetail pushes one entry and shows the customer.
//
// Allowed only from Home with no overlay. A customer missing from the
// directory leaves the machine at Home and returns a NOT_FOUND error.
func (m *Machine) OpenDetail(customerID string) error {
	m.mu.Lock()
	if m.state.Overlay != NoOverlay {
		m.mu.Unlock()
		return ledger.Navigation("open detail", "close the "+m.state.Overlay.String()+" overlay first")
	}
	if m.state.Screen != Home {
		m.mu.Unlock()
		return ledger.Navigation("open detail", "already showing "+m.state.String())
	}
	if m.dir != nil && !m.dir.Has(customerID) {
		m.mu.Unlock()
		return ledger.NotFound("open detail", customerID)
	}

	from := m.state
	m.state.Screen = Detail
	m.state.CustomerID = customerID
	m.state.Depth++
	t := m.transitionLocked(from, "open detail")
	m.mu.Unlock()

	m.notify(t)
	return nil
}

// OpenOverlay pushes one entry and raises the overlay. The screen underneath
// is unchanged. AddTransaction needs an open detail.
func (m *Machine) OpenOverlay(kind Overlay) error {
	m.mu.Lock()
	if kind == NoOverlay {
		m.mu.Unlock()
		return ledger.Navigation("open overlay", "no overlay kind given")
	}
	if m.state.Overlay != NoOverlay {
		m.mu.Unlock()
		return &ledger.Error{Code: ledger.CodeNavigation, Op: "open overlay", Message: kind.String(), Err: ErrOverlayOpen}
	}
	if kind == AddTransaction && m.state.Screen != Detail {
		m.mu.Unlock()
		return ledger.Navigation("open overlay", "transactions need an open customer")
	}

	from := m.state
	m.state.Overlay = kind
	m.state.Depth++
	t := m.transitionLocked(from, "open overlay")
	m.mu.Unlock()

	m.notify(t)
	return nil
}

// Back handles the platform back signal. It consumes one entry, or returns
// Exit when there is nothing left to consume.
func (m *Machine) Back() Outcome {
	m.mu.Lock()
	out, t, ok := m.consumeLocked("back")
	m.mu.Unlock()
	if ok {
		m.notify(t)
	}
	return out
}

// CloseOverlay is the in-app close control. It retires the overlay's entry.
func (m *Machine) CloseOverlay() error {
	m.mu.Lock()
	if m.state.Overlay == NoOverlay {
		m.mu.Unlock()
		return ledger.Navigation("close overlay", "no overlay is open")
	}
	_, t, _ := m.consumeLocked("close overlay")
	m.mu.Unlock()

	m.notify(t)
	return nil
}

// GoHome is the in-app home control. It retires every entry above Home.
func (m *Machine) GoHome() {
	m.retireWhile("go home", func(State) bool { return true })
}

// Invalidate retires entries until no view references customerID.
// Returns true if anything changed.
func (m *Machine) Invalidate(customerID string) bool {
	return m.retireWhile("invalidate", func(s State) bool {
		return s.Screen == Detail && s.CustomerID == customerID
	})
}

// Reset returns to Home with depth 0. Used on lock; the host must drop its
// own history as well.
func (m *Machine) Reset() {
	m.mu.Lock()
	from := m.state
	m.state = State{}
	t := m.transitionLocked(from, "reset")
	m.mu.Unlock()

	m.notify(t)
}

// retireWhile consumes entries one by one while cond holds and depth > 0.
func (m *Machine) retireWhile(cause string, cond func(State) bool) bool {
	var fired []Transition
	m.mu.Lock()
	for m.state.Depth > 0 && cond(m.state) {
		_, t, ok := m.consumeLocked(cause)
		if !ok {
			break
		}
		fired = append(fired, t)
	}
	m.mu.Unlock()

	for _, t := range fired {
		m.notify(t)
	}
	return len(fired) > 0
}

// consumeLocked retires one entry. All back-like controls go through here.
func (m *Machine) consumeLocked(cause string) (Outcome, Transition, bool) {
	if m.state.Depth == 0 {
		return Exit, Transition{}, false
	}

	from := m.state
	var out Outcome
	switch {
	case m.state.Overlay != NoOverlay:
		m.state.Overlay = NoOverlay
		out = ClosedOverlay
	case m.state.Screen == Detail:
		m.state.Screen = Home
		m.state.CustomerID = ""
		out = ReturnedHome
	default:
		// An entry with nothing to undo. Unreachable while the invariants hold.
		slog.Warn("navigation entry without a view", "depth", m.state.Depth)
		out = Exit
	}
	m.state.Depth--
	return out, m.transitionLocked(from, cause), true
}

// transitionLocked bumps the epoch when the screen changes. Overlay
// transitions keep it.
func (m *Machine) transitionLocked(from State, cause string) Transition {
	if from.Screen != m.state.Screen || from.CustomerID != m.state.CustomerID || cause == "reset" {
		m.epoch++
	}
	slog.Debug("navigation",
		"cause", cause,
		"from", from.String(),
		"to", m.state.String(),
		"depth", m.state.Depth,
		"epoch", m.epoch)
	return Transition{From: from, To: m.state, Cause: cause, Epoch: m.epoch}
}

func (m *Machine) notify(t Transition) {
	m.mu.Lock()
	fns := make([]Listener, 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if fn, ok := m.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}
