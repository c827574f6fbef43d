// Package drive talks to the Google Drive API: locate-or-create the
// backup document, overwrite its content, read it back. The protocol
// functions are stateless; every call carries its own bearer credential
// and failures surface as plain errors for the sync orchestrator to
// translate.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
)

// Client issues backup protocol operations against the Drive API.
type Client struct {
	fileName   string
	endpoint   string
	httpClient *http.Client
}

type Option func(*Client)

// WithEndpoint overrides the Drive API base URL. Used by tests to point
// the client at a fake server.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a backup client bound to the given document name.
func NewClient(fileName string, opts ...Option) *Client {
	c := &Client{fileName: fileName}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FileName returns the backup document name this client manages.
func (c *Client) FileName() string {
	return c.fileName
}

// service builds a Drive service authenticated with the given bearer
// token. A fresh service per operation keeps the protocol functions
// stateless with respect to credentials.
func (c *Client) service(ctx context.Context, token string) (*gdrive.Service, error) {
	opts := []goption.ClientOption{
		goption.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
	}
	if c.httpClient != nil {
		opts = []goption.ClientOption{goption.WithHTTPClient(c.httpClient)}
	}
	if c.endpoint != "" {
		opts = append(opts, goption.WithEndpoint(c.endpoint))
	}

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// EnsureFile resolves the id of the backup document. A known id is
// trusted and returned unchanged with no existence check. Otherwise the
// drive is searched for a non-trashed document with exactly the given
// name; when none exists one is created.
//
// The search-or-create step is not atomic: two first-time syncs racing
// each other can create duplicate documents with the same name. This is
// accepted for single-user, low-frequency use.
func (c *Client) EnsureFile(ctx context.Context, token, fileID, name string) (string, error) {
	if fileID != "" {
		return fileID, nil
	}

	svc, err := c.service(ctx, token)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf("name = '%s' and trashed = false", name)
	list, err := svc.Files.List().
		Q(query).
		Spaces("drive").
		Fields("files(id, name, modifiedTime)").
		Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError(err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	created, err := svc.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: "application/json",
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError(err)
	}

	return created.Id, nil
}

// Upload resolves the backup document id and overwrites its whole
// content with the serialized payload. No merge, no diff.
func (c *Client) Upload(ctx context.Context, token, fileID string, payload BackupPayload) (UploadResult, error) {
	id, err := c.EnsureFile(ctx, token, fileID, c.fileName)
	if err != nil {
		return UploadResult{}, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return UploadResult{}, fmt.Errorf("serialize backup payload: %w", err)
	}

	svc, err := c.service(ctx, token)
	if err != nil {
		return UploadResult{}, err
	}

	updated, err := svc.Files.Update(id, &gdrive.File{}).
		Media(bytes.NewReader(body), googleapi.ContentType("application/json")).
		Fields("id", "modifiedTime").
		Context(ctx).Do()
	if err != nil {
		return UploadResult{}, wrapAPIError(err)
	}

	result := UploadResult{FileID: updated.Id, ModifiedTime: updated.ModifiedTime}
	if result.FileID == "" {
		result.FileID = id
	}
	return result, nil
}

// Download fetches the backup document and parses it. A payload missing
// its entries field fails with ErrMissingEntries; a missing syncedAt or
// version is tolerated and defaulted, so older partial backups remain
// readable.
func (c *Client) Download(ctx context.Context, token, fileID string) (BackupPayload, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return BackupPayload{}, err
	}

	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return BackupPayload{}, wrapAPIError(err)
	}
	defer resp.Body.Close()

	var payload BackupPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return BackupPayload{}, fmt.Errorf("parse backup payload: %w", err)
	}
	if payload.Entries == nil {
		return BackupPayload{}, ErrMissingEntries
	}

	if payload.SyncedAt.IsZero() {
		payload.SyncedAt = time.Now().UTC()
	}
	if payload.Version == 0 {
		payload.Version = PayloadVersion
	}

	return payload, nil
}

// wrapAPIError converts a non-2xx Drive response into the single
// generic failure shape the orchestrator shows to the user: the status
// code and the response body, verbatim. Nothing is retried here.
func wrapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		body := strings.TrimSpace(apiErr.Body)
		if body == "" {
			body = apiErr.Message
		}
		return fmt.Errorf("drive request failed (%d): %s", apiErr.Code, body)
	}
	return fmt.Errorf("drive request failed: %w", err)
}
