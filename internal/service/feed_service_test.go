package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusplus/portal-api/internal/models"
)

type fakeLister struct {
	items []models.Announcement
	err   error
}

func (f *fakeLister) List(context.Context) ([]models.Announcement, error) {
	return f.items, f.err
}

// pinned to 2026-05-04 in Vilnius
func feedNow() time.Time {
	return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
}

func TestFeedFiltersByDateAndRecipient(t *testing.T) {
	lister := &fakeLister{items: []models.Announcement{
		{ID: "stale", Date: "2026-05-03", RecipientType: models.RecipientAll},
		{ID: "general", Date: "2026-05-04", RecipientType: models.RecipientAll},
		{ID: "for-9c", Date: "2026-05-05", RecipientType: models.RecipientStudents, RecipientClass: "9C", SendToParents: true},
		{ID: "for-9d", Date: "2026-05-05", RecipientType: models.RecipientStudents, RecipientClass: "9D"},
		{ID: "for-teachers", Date: "2026-05-05", RecipientType: models.RecipientTeachers},
		{ID: "undated", RecipientType: models.RecipientParents, RecipientClass: "9C"},
	}}
	svc := NewFeedService(lister, nil, nil, feedNow)

	tests := []struct {
		name    string
		role    models.UserRole
		profile *models.UserProfile
		want    []string
	}{
		{
			"student in 9C",
			models.RoleStudent,
			&models.UserProfile{Klase: "9C"},
			[]string{"general", "for-9c"},
		},
		{
			"student in 9D",
			models.RoleStudent,
			&models.UserProfile{Klase: "9D"},
			[]string{"general", "for-9d"},
		},
		{
			"parent of a 9C student",
			models.RoleParent,
			&models.UserProfile{VaikoKlase: "9C"},
			[]string{"general", "for-9c", "undated"},
		},
		{
			"teacher",
			models.RoleTeacher,
			&models.UserProfile{Vardas: "Ona", Pavarde: "Onaite"},
			[]string{"general", "for-teachers"},
		},
		{
			"administrator sees every current announcement",
			models.RoleAdmin,
			nil,
			[]string{"general", "for-9c", "for-9d", "for-teachers", "undated"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := svc.Feed(context.Background(), tt.role, tt.profile)
			require.NoError(t, err)

			ids := make([]string, 0, len(items))
			for _, a := range items {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestNoticeboardSkipsRecipientFiltering(t *testing.T) {
	lister := &fakeLister{items: []models.Announcement{
		{ID: "stale", Date: "2026-05-01", RecipientType: models.RecipientTeachers},
		{ID: "targeted", Date: "2026-05-04", RecipientType: models.RecipientStudents, RecipientClass: "9C"},
		{ID: "general", Date: "2026-05-04", RecipientType: models.RecipientAll},
	}}
	svc := NewFeedService(lister, nil, nil, feedNow)

	items, err := svc.Noticeboard(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"targeted", "general"}, ids)
}

func TestFeedShowsUnknownRecipientToEveryone(t *testing.T) {
	lister := &fakeLister{items: []models.Announcement{
		{ID: "odd", Date: "2026-05-04", RecipientType: "visiems"},
	}}
	svc := NewFeedService(lister, NewMetricsService(), nil, feedNow)

	for _, role := range []models.UserRole{models.RoleStudent, models.RoleParent, models.RoleTeacher} {
		items, err := svc.Feed(context.Background(), role, &models.UserProfile{})
		require.NoError(t, err)
		require.Len(t, items, 1, "role %s", role)
	}
}

func TestFeedPropagatesListError(t *testing.T) {
	lister := &fakeLister{err: assert.AnError}
	svc := NewFeedService(lister, nil, nil, feedNow)

	_, err := svc.Feed(context.Background(), models.RoleStudent, nil)
	assert.Error(t, err)

	_, err = svc.Noticeboard(context.Background())
	assert.Error(t, err)
}
