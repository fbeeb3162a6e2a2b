package models

// AnnouncementType classifies an announcement. Informational only; it does
// not affect who sees the announcement.
type AnnouncementType string

const (
	AnnouncementCancelledLesson AnnouncementType = "cancelled-lesson"
	AnnouncementAbsentTeacher   AnnouncementType = "absent-teacher"
	AnnouncementClass           AnnouncementType = "class-announcement"
	AnnouncementUrgent          AnnouncementType = "urgent"
)

// RecipientType selects which audience an announcement targets.
type RecipientType string

const (
	RecipientAll      RecipientType = "visi"
	RecipientStudents RecipientType = "mokiniai"
	RecipientParents  RecipientType = "tevai"
	RecipientTeachers RecipientType = "mokytojai"
)

// KnownRecipientType reports whether value is one of the four canonical
// audiences. Anything else falls back to "visi" at evaluation time.
func KnownRecipientType(value RecipientType) bool {
	switch value {
	case RecipientAll, RecipientStudents, RecipientParents, RecipientTeachers:
		return true
	}
	return false
}

// Announcement is the normalized in-memory record. The sheets gateway folds
// the upstream's legacy aliases (class/teacher/subject) and string booleans
// into these fields once, at the ingestion boundary.
type Announcement struct {
	ID               string           `json:"id"`
	Type             AnnouncementType `json:"type"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Date             string           `json:"date"`
	RecipientType    RecipientType    `json:"recipientType"`
	RecipientClass   string           `json:"recipientClass,omitempty"`
	RecipientTeacher string           `json:"recipientTeacher,omitempty"`
	SendToParents    bool             `json:"sendToParents"`
	CreatedBy        string           `json:"createdBy"`
	CreatedAt        string           `json:"createdAt"`
}

// AnnouncementInput carries the fields an administrator sets when creating
// or editing an announcement.
type AnnouncementInput struct {
	Type             AnnouncementType `json:"type"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Date             string           `json:"date"`
	RecipientType    RecipientType    `json:"recipientType"`
	RecipientClass   string           `json:"recipientClass,omitempty"`
	RecipientTeacher string           `json:"recipientTeacher,omitempty"`
	SendToParents    bool             `json:"sendToParents"`
	CreatedBy        string           `json:"createdBy"`
}
