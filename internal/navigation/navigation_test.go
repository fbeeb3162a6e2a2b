package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusplus/portal-api/internal/models"
)

func TestNewStartsAtBareLogin(t *testing.T) {
	m := New()

	assert.Equal(t, State{View: ViewLogin}, m.State())
	snap := m.Snapshot()
	require.Len(t, snap.Stack, 1)
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, AppTag, snap.Stack[0].App)
}

func TestFullSessionWalkKeepsInvariant(t *testing.T) {
	m := New()

	require.NoError(t, m.SelectRole(models.RoleStudent))
	assertInvariant(t, m)
	assert.Equal(t, models.RoleStudent, m.State().SelectedLoginRole)

	require.NoError(t, m.LoginSucceeded())
	assertInvariant(t, m)
	assert.Equal(t, ViewDashboard, m.State().View)
	assert.Equal(t, models.RoleStudent, m.State().UserRole)

	require.NoError(t, m.OpenNoticeBoard())
	assertInvariant(t, m)
	assert.Equal(t, ViewNoticeboard, m.State().View)

	m.CloseNoticeBoard()
	assertInvariant(t, m)
	assert.Equal(t, ViewDashboard, m.State().View)

	m.Logout()
	assertInvariant(t, m)
	assert.Equal(t, State{View: ViewLogin}, m.State())
}

func TestSelectRoleOnlyFromLogin(t *testing.T) {
	m := loggedIn(t, models.RoleTeacher)

	assert.ErrorIs(t, m.SelectRole(models.RoleStudent), ErrWrongView)
}

func TestLoginSucceededRequiresSelectedRole(t *testing.T) {
	m := New()

	assert.ErrorIs(t, m.LoginSucceeded(), ErrNoLoginRole)

	require.NoError(t, m.SelectRole(models.RoleParent))
	require.NoError(t, m.LoginSucceeded())
	assert.ErrorIs(t, m.LoginSucceeded(), ErrWrongView)
}

func TestBackFromCredentialFormPopsToRolePicker(t *testing.T) {
	m := New()
	require.NoError(t, m.SelectRole(models.RoleStudent))

	m.Back()

	assert.Equal(t, State{View: ViewLogin}, m.State())
	assert.Equal(t, 0, m.Snapshot().Cursor)
}

func TestBackWithoutHistoryReplacesWithBareLogin(t *testing.T) {
	m := FromSnapshot(Snapshot{
		Current: State{View: ViewLogin, SelectedLoginRole: models.RoleTeacher},
		Stack:   []Entry{{App: AppTag, View: ViewLogin, SelectedLoginRole: models.RoleTeacher}},
		Cursor:  0,
	})

	m.Back()

	assert.Equal(t, State{View: ViewLogin}, m.State())
	assert.Len(t, m.Snapshot().Stack, 1)
}

func TestOpenNoticeBoardRequiresDashboard(t *testing.T) {
	m := New()

	assert.ErrorIs(t, m.OpenNoticeBoard(), ErrWrongView)
}

func TestCloseNoticeBoardWithoutHistoryReplaces(t *testing.T) {
	m := FromSnapshot(Snapshot{
		Current: State{View: ViewNoticeboard, UserRole: models.RoleParent},
		Stack:   []Entry{{App: AppTag, View: ViewNoticeboard, UserRole: models.RoleParent}},
		Cursor:  0,
	})

	m.CloseNoticeBoard()

	assert.Equal(t, State{View: ViewDashboard, UserRole: models.RoleParent}, m.State())
	assert.Len(t, m.Snapshot().Stack, 1)
}

func TestLogoutLeavesForwardEntry(t *testing.T) {
	m := loggedIn(t, models.RoleStudent)

	m.Logout()

	snap := m.Snapshot()
	assert.Equal(t, ViewLogin, m.State().View)
	assert.Equal(t, len(snap.Stack)-1, snap.Cursor)
	assert.Greater(t, len(snap.Stack), 1)
}

func TestForceLogoutDropsAllHistory(t *testing.T) {
	m := loggedIn(t, models.RoleStudent)
	require.NoError(t, m.OpenNoticeBoard())

	m.ForceLogout()

	snap := m.Snapshot()
	assert.Equal(t, State{View: ViewLogin}, m.State())
	require.Len(t, snap.Stack, 1)
	assert.Equal(t, 0, snap.Cursor)
}

func TestPushTruncatesForwardEntries(t *testing.T) {
	m := loggedIn(t, models.RoleStudent)
	require.NoError(t, m.OpenNoticeBoard())
	m.CloseNoticeBoard()

	// Closing popped back to the dashboard; opening again must overwrite the
	// stale noticeboard entry instead of appending after it.
	require.NoError(t, m.OpenNoticeBoard())

	snap := m.Snapshot()
	assert.Equal(t, len(snap.Stack)-1, snap.Cursor)
	for _, e := range snap.Stack {
		assert.Equal(t, AppTag, e.App)
	}
}

func TestRestoreAdoptsOwnEntry(t *testing.T) {
	m := loggedIn(t, models.RoleTeacher)
	require.NoError(t, m.OpenNoticeBoard())
	dashboard := m.Snapshot().Stack[m.Snapshot().Cursor-1]

	m.Restore(dashboard)

	assert.Equal(t, ViewDashboard, m.State().View)
	assert.Equal(t, models.RoleTeacher, m.State().UserRole)
}

func TestRestoreRejectsForeignEntry(t *testing.T) {
	m := loggedIn(t, models.RoleTeacher)

	m.Restore(Entry{App: "other-app", View: ViewDashboard, UserRole: models.RoleTeacher})

	assert.Equal(t, State{View: ViewLogin}, m.State())
	assert.Len(t, m.Snapshot().Stack, 1)
}

func TestRestoreRejectsInconsistentEntry(t *testing.T) {
	m := loggedIn(t, models.RoleTeacher)

	// Tagged but claims a dashboard without a role.
	m.Restore(Entry{App: AppTag, View: ViewDashboard})

	assert.Equal(t, State{View: ViewLogin}, m.State())
}

func TestFromSnapshotRejectsCorruptPayloads(t *testing.T) {
	corrupt := []Snapshot{
		{},
		{Current: State{View: ViewDashboard, UserRole: models.RoleStudent}},
		{
			Current: State{View: ViewDashboard, UserRole: models.RoleStudent},
			Stack:   []Entry{{App: AppTag, View: ViewDashboard, UserRole: models.RoleStudent}},
			Cursor:  5,
		},
		{
			Current: State{View: ViewDashboard},
			Stack:   []Entry{{App: AppTag, View: ViewDashboard}},
			Cursor:  0,
		},
		{
			Current: State{View: ViewLogin},
			Stack:   []Entry{{App: "other-app", View: ViewLogin}},
			Cursor:  0,
		},
	}
	for i, s := range corrupt {
		m := FromSnapshot(s)
		assert.Equal(t, State{View: ViewLogin}, m.State(), "snapshot %d", i)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := loggedIn(t, models.RoleParent)
	require.NoError(t, m.OpenNoticeBoard())

	restored := FromSnapshot(m.Snapshot())

	assert.Equal(t, m.State(), restored.State())
	assert.Equal(t, m.Snapshot(), restored.Snapshot())
}

func loggedIn(t *testing.T, role models.UserRole) *Machine {
	t.Helper()
	m := New()
	require.NoError(t, m.SelectRole(role))
	require.NoError(t, m.LoginSucceeded())
	return m
}

func assertInvariant(t *testing.T, m *Machine) {
	t.Helper()
	s := m.State()
	if s.View == ViewLogin {
		assert.Empty(t, s.UserRole)
	} else {
		assert.NotEmpty(t, s.UserRole)
		assert.Empty(t, s.SelectedLoginRole)
	}
}
