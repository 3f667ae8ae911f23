package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"empty-jar/internal/domain"
)

const (
	DefaultTimeout = 10 * time.Second
	DeviceIDHeader = "X-Device-ID"
)

type CloudConfig struct {
	BaseURL   string
	Token     string
	AccountID string
	// Timeout bounds every round-trip so a hung request surfaces as a
	// transient error instead of never reaching the queue.
	Timeout time.Duration
	// Online reports the connectivity collaborator's view. Nil means always online.
	Online     func() bool
	HTTPClient *http.Client
	// DeviceID is sent as X-Device-ID so the server skips this device when
	// broadcasting the change.
	DeviceID string
}

// Cloud talks to the account-scoped notes and settings API.
type Cloud struct {
	baseURL   string
	token     string
	accountID string
	timeout   time.Duration
	online    func() bool
	client    *http.Client
	deviceID  string
}

var _ Backend = (*Cloud)(nil)

func NewCloud(cfg CloudConfig) *Cloud {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Cloud{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		accountID: cfg.AccountID,
		timeout:   timeout,
		online:    cfg.Online,
		client:    client,
		deviceID:  cfg.DeviceID,
	}
}

func (c *Cloud) Kind() Kind { return KindCloud }

// AccountID is the account every call is scoped to.
func (c *Cloud) AccountID() string { return c.accountID }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (c *Cloud) do(ctx context.Context, method, path string, body, out any) error {
	if c.online != nil && !c.online() {
		return ErrOffline
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceID != "" {
		req.Header.Set(DeviceIDHeader, c.deviceID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if decodeErr != nil && ctx.Err() != nil {
		return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, ErrConflict)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode >= 400:
		return &StatusError{Status: resp.StatusCode, Message: env.Error}
	}
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func notePath(weekKey string) string {
	return "/api/v1/notes/" + url.PathEscape(weekKey)
}

func (c *Cloud) LoadNotes(ctx context.Context) ([]domain.Note, error) {
	var notes []domain.Note
	if err := c.do(ctx, http.MethodGet, "/api/v1/notes", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Cloud) CreateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	createdAt := note.CreatedAt
	req := domain.CreateNoteRequest{
		WeekKey:    note.WeekKey,
		Title:      note.Title,
		Body:       note.Body,
		Mood:       note.Mood,
		MomentType: note.MomentType,
		Tags:       note.Tags,
		IsBackfill: note.IsBackfill,
	}
	if !createdAt.IsZero() {
		req.CreatedAt = &createdAt
	}

	var created domain.Note
	if err := c.do(ctx, http.MethodPost, "/api/v1/notes", req, &created); err != nil {
		return domain.Note{}, err
	}
	return created, nil
}

func (c *Cloud) UpdateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	tags := note.Tags
	req := domain.UpdateNoteRequest{
		Title:      &note.Title,
		Body:       &note.Body,
		Mood:       &note.Mood,
		MomentType: &note.MomentType,
		Tags:       &tags,
	}

	var updated domain.Note
	if err := c.do(ctx, http.MethodPut, notePath(note.WeekKey), req, &updated); err != nil {
		return domain.Note{}, err
	}
	return updated, nil
}

func (c *Cloud) DeleteNote(ctx context.Context, weekKey string) error {
	return c.do(ctx, http.MethodDelete, notePath(weekKey), nil, nil)
}

func (c *Cloud) LoadSettings(ctx context.Context) (*domain.Settings, error) {
	s := domain.DefaultSettings()
	err := c.do(ctx, http.MethodGet, "/api/v1/settings", nil, &s)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Cloud) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	var saved domain.Settings
	if err := c.do(ctx, http.MethodPut, "/api/v1/settings", settings, &saved); err != nil {
		return domain.Settings{}, err
	}
	return saved, nil
}

// Login exchanges credentials for a token pair. It needs no token.
func (c *Cloud) Login(ctx context.Context, email, password string) (domain.LoginResponse, error) {
	var out domain.LoginResponse
	req := domain.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", req, &out); err != nil {
		return domain.LoginResponse{}, err
	}
	return out, nil
}

func (c *Cloud) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
