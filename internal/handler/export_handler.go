package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/statusplus/portal-api/internal/models"
	"github.com/statusplus/portal-api/internal/service"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
	"github.com/statusplus/portal-api/pkg/export"
	"github.com/statusplus/portal-api/pkg/response"
)

// ExportHandler turns the announcement register into downloadable CSV or
// PDF files for administrators.
type ExportHandler struct {
	announcements *service.AnnouncementService
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
}

// NewExportHandler creates a new handler.
func NewExportHandler(announcements *service.AnnouncementService) *ExportHandler {
	return &ExportHandler{
		announcements: announcements,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
	}
}

var exportHeaders = []string{
	"Tipas", "Pavadinimas", "Aprašymas", "Data", "Gavėjai", "Klasė", "Mokytojas", "Siųsti tėvams", "Sukūrė", "Sukurta",
}

// Export godoc
// @Summary Export announcements
// @Description Downloads the full announcement register as CSV or PDF
// @Tags Announcements
// @Produce octet-stream
// @Param format query string false "Export format: csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /announcements/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	items, err := h.announcements.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(items))}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, exportRow(item))
	}

	format := c.DefaultQuery("format", "csv")
	stamp := time.Now().Format("2006-01-02")

	switch format {
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export"))
			return
		}
		h.send(c, payload, fmt.Sprintf("pranesimai-%s.csv", stamp), "text/csv; charset=utf-8")
	case "pdf":
		payload, err := h.pdf.Render(dataset, "Pranešimų registras")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export"))
			return
		}
		h.send(c, payload, fmt.Sprintf("pranesimai-%s.pdf", stamp), "application/pdf")
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

func (h *ExportHandler) send(c *gin.Context, payload []byte, filename, mimeType string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mimeType, payload)
}

func exportRow(a models.Announcement) map[string]string {
	sendToParents := "ne"
	if a.SendToParents {
		sendToParents = "taip"
	}
	return map[string]string{
		"Tipas":         string(a.Type),
		"Pavadinimas":   a.Title,
		"Aprašymas":     a.Description,
		"Data":          a.Date,
		"Gavėjai":       string(a.RecipientType),
		"Klasė":         a.RecipientClass,
		"Mokytojas":     a.RecipientTeacher,
		"Siųsti tėvams": sendToParents,
		"Sukūrė":        a.CreatedBy,
		"Sukurta":       a.CreatedAt,
	}
}
