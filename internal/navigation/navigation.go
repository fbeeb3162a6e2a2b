// Package navigation models the portal's view flow (login, dashboard,
// noticeboard) as an explicit state machine mirrored into a tagged history
// stack, so browser back/forward behaves as un-navigate and foreign history
// entries are never trusted.
package navigation

import (
	"errors"

	"github.com/statusplus/portal-api/internal/models"
)

// View identifies an app-level page.
type View string

const (
	ViewLogin       View = "login"
	ViewDashboard   View = "dashboard"
	ViewNoticeboard View = "noticeboard"
)

// AppTag marks history entries as belonging to this application. Entries
// without it are foreign and ignored on restore.
const AppTag = "status-plus"

// State is the machine's current position. UserRole is empty exactly when
// View is login.
type State struct {
	View              View            `json:"view"`
	UserRole          models.UserRole `json:"userRole,omitempty"`
	SelectedLoginRole models.UserRole `json:"selectedLoginRole,omitempty"`
}

// Entry is one serialized history record.
type Entry struct {
	App               string          `json:"app"`
	View              View            `json:"view"`
	UserRole          models.UserRole `json:"userRole,omitempty"`
	SelectedLoginRole models.UserRole `json:"selectedLoginRole,omitempty"`
}

// Snapshot is the serializable form of a Machine.
type Snapshot struct {
	Current State   `json:"current"`
	Stack   []Entry `json:"stack"`
	Cursor  int     `json:"cursor"`
}

var (
	ErrNotLoggedIn  = errors.New("navigation: no authenticated role")
	ErrNoLoginRole  = errors.New("navigation: no login role selected")
	ErrWrongView    = errors.New("navigation: transition not allowed from current view")
	ErrUnknownEvent = errors.New("navigation: unknown event")
)

// Machine owns the navigation state and its history stack. The cursor points
// at the entry the browser currently shows; pushes truncate any forward
// entries, exactly like the History API.
type Machine struct {
	current State
	stack   []Entry
	cursor  int
}

// New returns a machine at the bare login state with a single tagged entry,
// matching the replaceState the frontend performs on first load.
func New() *Machine {
	initial := State{View: ViewLogin}
	return &Machine{
		current: initial,
		stack:   []Entry{entryFor(initial)},
		cursor:  0,
	}
}

// FromSnapshot rebuilds a machine from its serialized form. Corrupt
// snapshots (empty stack, cursor out of range, violated invariant) fall back
// to a fresh login machine rather than trusting the payload.
func FromSnapshot(s Snapshot) *Machine {
	if len(s.Stack) == 0 || s.Cursor < 0 || s.Cursor >= len(s.Stack) {
		return New()
	}
	m := &Machine{current: s.Current, stack: append([]Entry(nil), s.Stack...), cursor: s.Cursor}
	if !m.invariantHolds() {
		return New()
	}
	return m
}

// Snapshot returns the serializable form of the machine.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{Current: m.current, Stack: append([]Entry(nil), m.stack...), Cursor: m.cursor}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// SelectRole shows the credential form for a role on the login screen.
func (m *Machine) SelectRole(role models.UserRole) error {
	if m.current.View != ViewLogin {
		return ErrWrongView
	}
	m.push(State{View: ViewLogin, SelectedLoginRole: role})
	return nil
}

// LoginSucceeded moves to the dashboard after the upstream accepted the
// credentials for the pending login role.
func (m *Machine) LoginSucceeded() error {
	if m.current.View != ViewLogin {
		return ErrWrongView
	}
	role := m.current.SelectedLoginRole
	if role == "" {
		return ErrNoLoginRole
	}
	m.push(State{View: ViewDashboard, UserRole: role})
	return nil
}

// Back leaves the credential form. If the current entry carries a pending
// login role the history pops; otherwise the entry is replaced with the bare
// login state.
func (m *Machine) Back() {
	if m.current.View == ViewLogin && m.current.SelectedLoginRole != "" && m.cursor > 0 {
		m.pop()
		return
	}
	m.replace(State{View: ViewLogin})
}

// Logout returns to login from any state. The transition pushes so that
// forward navigation can re-enter the dashboard, matching the original UI.
func (m *Machine) Logout() {
	m.push(State{View: ViewLogin})
}

// ForceLogout ends the session without leaving a forward entry; used by the
// inactivity timeout so the back button cannot resurrect the session.
func (m *Machine) ForceLogout() {
	m.stack = []Entry{entryFor(State{View: ViewLogin})}
	m.cursor = 0
	m.current = State{View: ViewLogin}
}

// OpenNoticeBoard switches a logged-in viewer to the full-screen display.
func (m *Machine) OpenNoticeBoard() error {
	if m.current.View != ViewDashboard {
		return ErrWrongView
	}
	if m.current.UserRole == "" {
		return ErrNotLoggedIn
	}
	m.push(State{View: ViewNoticeboard, UserRole: m.current.UserRole})
	return nil
}

// CloseNoticeBoard returns to the dashboard, popping history when the
// current entry is the noticeboard and replacing otherwise.
func (m *Machine) CloseNoticeBoard() {
	if m.current.View == ViewNoticeboard && m.cursor > 0 {
		m.pop()
		return
	}
	if m.current.UserRole != "" {
		m.replace(State{View: ViewDashboard, UserRole: m.current.UserRole})
	}
}

// Restore adopts a history entry delivered by the host's back/forward
// mechanism. Foreign or untagged entries reinitialize to bare login instead
// of being trusted.
func (m *Machine) Restore(e Entry) {
	if e.App != AppTag || !entryConsistent(e) {
		reset := New()
		*m = *reset
		return
	}
	m.current = State{View: e.View, UserRole: e.UserRole, SelectedLoginRole: e.SelectedLoginRole}
	if idx := m.indexOf(e); idx >= 0 {
		m.cursor = idx
	}
}

func (m *Machine) push(next State) {
	m.stack = append(m.stack[:m.cursor+1], entryFor(next))
	m.cursor = len(m.stack) - 1
	m.current = next
}

func (m *Machine) replace(next State) {
	m.stack[m.cursor] = entryFor(next)
	m.current = next
}

func (m *Machine) pop() {
	m.cursor--
	e := m.stack[m.cursor]
	m.current = State{View: e.View, UserRole: e.UserRole, SelectedLoginRole: e.SelectedLoginRole}
}

func (m *Machine) indexOf(e Entry) int {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i] == e {
			return i
		}
	}
	return -1
}

func (m *Machine) invariantHolds() bool {
	if !entryConsistent(entryFor(m.current)) {
		return false
	}
	for _, e := range m.stack {
		if e.App != AppTag || !entryConsistent(e) {
			return false
		}
	}
	return true
}

func entryFor(s State) Entry {
	return Entry{App: AppTag, View: s.View, UserRole: s.UserRole, SelectedLoginRole: s.SelectedLoginRole}
}

// entryConsistent checks the core invariant: a role is present exactly on
// the non-login views.
func entryConsistent(e Entry) bool {
	if e.View == ViewLogin {
		return e.UserRole == ""
	}
	return e.UserRole != "" && e.SelectedLoginRole == ""
}
