// Package sheets is the gateway to the Google Apps Script web app that owns
// all durable portal state. The upstream speaks a single envelope shape
// ({ok, message, data}) over GET query actions and POSTed JSON bodies with a
// text/plain content type, a workaround for the Apps Script CORS handling.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/statusplus/portal-api/internal/models"
	"github.com/statusplus/portal-api/pkg/config"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
)

// Apps Script rejects preflighted requests, so bodies go out as plain text.
const contentType = "text/plain;charset=utf-8"

// Observer records upstream call latency and failures.
type Observer interface {
	ObserveUpstream(action string, duration time.Duration, err error)
}

// Client talks to the configured Apps Script deployment.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	metrics Observer
}

// NewClient constructs the gateway. metrics may be nil.
func NewClient(cfg config.SheetsConfig, logger *zap.Logger, metrics Observer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
	}
}

type envelope struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ListAnnouncements fetches every announcement record and normalizes it.
func (c *Client) ListAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	env, err := c.doGet(ctx, "listAnnouncements")
	if err != nil {
		return nil, err
	}

	var records []announcementRecord
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &records); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstreamDecode.Code, appErrors.ErrUpstreamDecode.Status, "Nepavyko perskaityti pranešimų atsakymo.")
		}
	}

	items := make([]models.Announcement, 0, len(records))
	for _, r := range records {
		items = append(items, r.toModel())
	}
	return items, nil
}

// AdminLogin authenticates an administrator. The upstream uses a bare
// credential body for this flow, unlike every other action.
func (c *Client) AdminLogin(ctx context.Context, email, password string) error {
	_, err := c.doPost(ctx, "adminLogin", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	return err
}

// LoginUser authenticates a student, parent or teacher account and returns
// the stored profile.
func (c *Client) LoginUser(ctx context.Context, role models.UserRole, email, password string) (*models.UserProfile, error) {
	env, err := c.doPost(ctx, "loginUser", map[string]string{
		"action":   "loginUser",
		"role":     string(role),
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return decodeProfile(env.Data)
}

// CreateUser registers a new account and returns the created profile.
func (c *Client) CreateUser(ctx context.Context, role models.UserRole, email, password string, registration map[string]string) (*models.UserProfile, error) {
	body := map[string]string{
		"action":   "createUser",
		"role":     string(role),
		"email":    strings.TrimSpace(email),
		"password": password,
	}
	for k, v := range registration {
		if _, reserved := body[k]; !reserved {
			body[k] = v
		}
	}

	env, err := c.doPost(ctx, "createUser", body)
	if err != nil {
		return nil, err
	}
	return decodeProfile(env.Data)
}

// CreateAnnouncement persists a new announcement upstream and returns the
// stored record with its assigned ID.
func (c *Client) CreateAnnouncement(ctx context.Context, input models.AnnouncementInput) (*models.Announcement, error) {
	body := announcementBody(input)
	body["action"] = "createAnnouncement"

	env, err := c.doPost(ctx, "createAnnouncement", body)
	if err != nil {
		return nil, err
	}
	return decodeAnnouncement(env.Data, true)
}

// UpdateAnnouncement edits an existing announcement.
func (c *Client) UpdateAnnouncement(ctx context.Context, id string, input models.AnnouncementInput) (*models.Announcement, error) {
	body := announcementBody(input)
	body["action"] = "updateAnnouncement"
	body["id"] = id

	env, err := c.doPost(ctx, "updateAnnouncement", body)
	if err != nil {
		return nil, err
	}
	return decodeAnnouncement(env.Data, true)
}

// DeleteAnnouncement removes an announcement.
func (c *Client) DeleteAnnouncement(ctx context.Context, id string) error {
	_, err := c.doPost(ctx, "deleteAnnouncement", map[string]string{
		"action": "deleteAnnouncement",
		"id":     id,
	})
	return err
}

func (c *Client) doGet(ctx context.Context, action string) (*envelope, error) {
	url := fmt.Sprintf("%s?action=%s", c.baseURL, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upstream request")
	}
	return c.send(req, action)
}

func (c *Client) doPost(ctx context.Context, action string, body interface{}) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode upstream request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upstream request")
	}
	req.Header.Set("Content-Type", contentType)
	return c.send(req, action)
}

// send performs the request and applies the shared response policy: read the
// body as text first, then decode; surface ok:false messages verbatim; never
// retry.
func (c *Client) send(req *http.Request, action string) (*envelope, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.ObserveUpstream(action, time.Since(start), err)
	}
	if err != nil {
		c.logger.Warn("sheets request failed", zap.String("action", action), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}

	c.logger.Debug("sheets request",
		zap.String("action", action),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamDecode.Code, appErrors.ErrUpstreamDecode.Status, appErrors.ErrUpstreamDecode.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.OK {
		message := strings.TrimSpace(env.Message)
		if message == "" {
			message = appErrors.ErrUpstreamRejected.Message
		}
		return nil, appErrors.Clone(appErrors.ErrUpstreamRejected, message)
	}

	return &env, nil
}

func decodeProfile(data json.RawMessage) (*models.UserProfile, error) {
	if len(data) == 0 || string(data) == "null" {
		return &models.UserProfile{}, nil
	}
	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamDecode.Code, appErrors.ErrUpstreamDecode.Status, appErrors.ErrUpstreamDecode.Message)
	}
	return &profile, nil
}

func decodeAnnouncement(data json.RawMessage, required bool) (*models.Announcement, error) {
	if len(data) == 0 || string(data) == "null" {
		if required {
			return nil, appErrors.Clone(appErrors.ErrUpstreamDecode, appErrors.ErrUpstreamDecode.Message)
		}
		return nil, nil
	}
	var record announcementRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamDecode.Code, appErrors.ErrUpstreamDecode.Status, appErrors.ErrUpstreamDecode.Message)
	}
	a := record.toModel()
	return &a, nil
}

// announcementBody serializes an input the way the spreadsheet stores it:
// sendToParents travels as the string "true"/"false".
func announcementBody(input models.AnnouncementInput) map[string]string {
	return map[string]string{
		"type":             string(input.Type),
		"title":            input.Title,
		"description":      input.Description,
		"date":             input.Date,
		"recipientType":    string(input.RecipientType),
		"recipientClass":   input.RecipientClass,
		"recipientTeacher": input.RecipientTeacher,
		"sendToParents":    fmt.Sprintf("%t", input.SendToParents),
		"createdBy":        input.CreatedBy,
	}
}
