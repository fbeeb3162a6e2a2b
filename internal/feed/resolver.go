// Package feed holds the announcement visibility rules: who sees which
// announcement, which announcements are stale, and how feeds are ordered.
// Everything here is pure so the rules stay testable without any transport.
package feed

import (
	"strings"
	"unicode"

	"github.com/statusplus/portal-api/internal/models"
)

// Visible decides whether the given viewer should see the announcement.
// Administrators always see everything; they manage the feed rather than
// consume it. An unknown or empty recipient type falls back to "visi" and is
// therefore shown to everyone.
func Visible(a models.Announcement, role models.UserRole, profile *models.UserProfile) bool {
	if role == models.RoleAdmin {
		return true
	}

	recipientType := normalizeRecipientType(a.RecipientType)
	recipientClass := NormalizeClass(a.RecipientClass)
	recipientTeacher := strings.ToLower(strings.TrimSpace(a.RecipientTeacher))

	if recipientType == models.RecipientAll {
		return true
	}

	switch role {
	case models.RoleStudent:
		if recipientType != models.RecipientStudents {
			return false
		}
		studentClass := NormalizeClass(profileKlase(profile))
		return recipientClass == "" || recipientClass == studentClass

	case models.RoleParent:
		childClass := NormalizeClass(profileVaikoKlase(profile))
		if recipientType == models.RecipientParents {
			return recipientClass == "" || recipientClass == childClass
		}
		if recipientType == models.RecipientStudents && a.SendToParents {
			return recipientClass == "" || recipientClass == childClass
		}
		return false

	case models.RoleTeacher:
		if recipientType != models.RecipientTeachers {
			return false
		}
		return recipientTeacher == "" || recipientTeacher == TeacherFullName(profile)
	}

	return false
}

// FilterVisible returns the announcements the viewer is allowed to see,
// preserving input order.
func FilterVisible(items []models.Announcement, role models.UserRole, profile *models.UserProfile) []models.Announcement {
	result := make([]models.Announcement, 0, len(items))
	for _, a := range items {
		if Visible(a, role, profile) {
			result = append(result, a)
		}
	}
	return result
}

// NormalizeClass strips all whitespace, non-breaking spaces included, and
// uppercases a class label so that "10 a" and "10A" compare equal.
func NormalizeClass(value string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
	return strings.ToUpper(stripped)
}

// TeacherFullName builds the lowercase "vardas pavarde" key used to match
// teacher-targeted announcements.
func TeacherFullName(profile *models.UserProfile) string {
	if profile == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if profile.Vardas != "" {
		parts = append(parts, profile.Vardas)
	}
	if profile.Pavarde != "" {
		parts = append(parts, profile.Pavarde)
	}
	return strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
}

func normalizeRecipientType(value models.RecipientType) models.RecipientType {
	trimmed := models.RecipientType(strings.TrimSpace(string(value)))
	if models.KnownRecipientType(trimmed) {
		return trimmed
	}
	return models.RecipientAll
}

func profileKlase(profile *models.UserProfile) string {
	if profile == nil {
		return ""
	}
	return profile.Klase
}

func profileVaikoKlase(profile *models.UserProfile) string {
	if profile == nil {
		return ""
	}
	return profile.VaikoKlase
}
