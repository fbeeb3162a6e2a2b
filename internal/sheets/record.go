package sheets

import (
	"encoding/json"
	"strings"

	"github.com/statusplus/portal-api/internal/models"
)

// announcementRecord mirrors a raw spreadsheet row. Older rows used the
// class/teacher/subject columns and stringly booleans; everything is folded
// into the canonical model exactly once, here.
type announcementRecord struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Date             string   `json:"date"`
	Class            string   `json:"class"`
	Teacher          string   `json:"teacher"`
	Subject          string   `json:"subject"`
	RecipientType    string   `json:"recipientType"`
	RecipientClass   string   `json:"recipientClass"`
	RecipientTeacher string   `json:"recipientTeacher"`
	SendToParents    flexBool `json:"sendToParents"`
	CreatedBy        string   `json:"createdBy"`
	CreatedAt        string   `json:"createdAt"`
}

func (r announcementRecord) toModel() models.Announcement {
	recipientClass := strings.TrimSpace(r.RecipientClass)
	if recipientClass == "" {
		recipientClass = strings.TrimSpace(r.Class)
	}

	recipientTeacher := strings.TrimSpace(r.RecipientTeacher)
	if recipientTeacher == "" {
		recipientTeacher = strings.TrimSpace(r.Teacher)
	}

	return models.Announcement{
		ID:               r.ID,
		Type:             models.AnnouncementType(strings.TrimSpace(r.Type)),
		Title:            r.Title,
		Description:      r.Description,
		Date:             strings.TrimSpace(r.Date),
		RecipientType:    models.RecipientType(strings.TrimSpace(r.RecipientType)),
		RecipientClass:   recipientClass,
		RecipientTeacher: recipientTeacher,
		SendToParents:    bool(r.SendToParents),
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
	}
}

// flexBool accepts true, "true", false, "false" and anything else as false.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		*b = flexBool(asBool)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*b = flexBool(strings.TrimSpace(asString) == "true")
		return nil
	}

	*b = false
	return nil
}
