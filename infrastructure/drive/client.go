package drive

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"time-for/domain/hosting"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const providerName = "drive"

// DriveService defines the Google Drive API calls the uploader needs
// This allows mocking the Google Drive API in tests
type DriveService interface {
	UploadFile(ctx context.Context, fileName, mimeType, folderID, localPath string) (*drive.File, error)
	CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error
}

// GoogleDriveService is the production implementation using the Google Drive API
type GoogleDriveService struct {
	service *drive.Service
}

// UploadFile creates a file in folderID with the contents of localPath
func (s *GoogleDriveService) UploadFile(ctx context.Context, fileName, mimeType, folderID, localPath string) (*drive.File, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta := &drive.File{Name: fileName, MimeType: mimeType}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	return s.service.Files.Create(meta).
		Media(f).
		Fields("id, name, mimeType, size, webViewLink, webContentLink").
		Context(ctx).
		Do()
}

// CreatePermission grants a permission on a file
func (s *GoogleDriveService) CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error {
	_, err := s.service.Permissions.Create(fileID, permission).Context(ctx).Do()
	return err
}

// Client implements hosting.Uploader by uploading into a Drive folder and sharing publicly
type Client struct {
	driveService DriveService
	folderID     string
	log          *logrus.Entry
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithDriveService sets a custom drive service (for testing)
func WithDriveService(svc DriveService) ClientOption {
	return func(c *Client) {
		c.driveService = svc
	}
}

// WithFolderID sets the destination folder
func WithFolderID(id string) ClientOption {
	return func(c *Client) {
		c.folderID = id
	}
}

// WithLogger sets the client logger
func WithLogger(log *logrus.Entry) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

func newClient(opts []ClientOption) *Client {
	c := &Client{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "drive")
	return c
}

// NewClient creates a Drive uploader authenticated with a service account key.
// If no drive service option is given, a real one is built from credentialsPath.
func NewClient(ctx context.Context, credentialsPath string, opts ...ClientOption) (*Client, error) {
	c := newClient(opts)

	if c.driveService == nil {
		svc, err := newGoogleDriveService(ctx, credentialsPath)
		if err != nil {
			return nil, err
		}
		c.driveService = svc
	}

	return c, nil
}

// newGoogleDriveService creates a Drive service from a service account key
func newGoogleDriveService(ctx context.Context, credentialsPath string) (*GoogleDriveService, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}

	return &GoogleDriveService{service: srv}, nil
}

// Upload stores the clip in the configured folder and returns a public view link
func (c *Client) Upload(ctx context.Context, path string, kind hosting.Kind) (hosting.Link, error) {
	name := filepath.Base(path)

	c.log.WithFields(logrus.Fields{"path": path, "folder": c.folderID}).Debug("uploading")

	file, err := c.driveService.UploadFile(ctx, name, mimeTypeFor(path), c.folderID, path)
	if err != nil {
		return hosting.Link{}, c.fail(fmt.Errorf("failed to upload file: %w", err))
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if err := c.driveService.CreatePermission(ctx, file.Id, perm); err != nil {
		return hosting.Link{}, c.fail(fmt.Errorf("failed to share file: %w", err))
	}

	if file.WebViewLink == "" {
		return hosting.Link{}, c.fail(hosting.ErrNoLink)
	}

	return hosting.NewLink(file.WebViewLink, kind), nil
}

func (c *Client) fail(err error) error {
	return &hosting.UploadFailure{Provider: providerName, Err: err}
}

func mimeTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".webm":
		return "video/webm"
	case ".gif":
		return "image/gif"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Ensure Client implements hosting.Uploader
var _ hosting.Uploader = (*Client)(nil)
