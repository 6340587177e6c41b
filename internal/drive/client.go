package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// listFields is requested on every listing call so responses stay small.
const listFields = "nextPageToken, files(id, name, mimeType, size, modifiedTime)"

// File is one Drive item as the rest of battdash sees it. Modified keeps
// Drive's RFC 3339 string form.
type File struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MimeType   string `json:"mime_type,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Modified   string `json:"modified,omitempty"`
	Path       string `json:"full_path,omitempty"`
	FolderPath string `json:"folder_path,omitempty"`
}

// IsFolder reports whether the item is a Drive folder.
func (f File) IsFolder() bool { return f.MimeType == folderMimeType }

// Folder is a Drive folder, optionally annotated with the CSV files it holds.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"full_path,omitempty"`
	Depth     int    `json:"depth"`
	FileCount int    `json:"file_count"`
	Files     []File `json:"csv_files,omitempty"`
}

// Client is a read-only Drive client. All methods are safe for concurrent use.
type Client struct {
	svc      *drivev3.Service
	pageSize int64
	logger   *zap.Logger
}

type options struct {
	pageSize   int64
	logger     *zap.Logger
	verbose    bool
	endpoint   string
	httpClient *http.Client
}

type Option func(*options)

// WithPageSize sets the Drive listing page size (1..1000).
func WithPageSize(n int) Option {
	return func(o *options) {
		if n >= 1 && n <= 1000 {
			o.pageSize = int64(n)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithVerboseLogging logs one debug line per Drive HTTP request and response,
// including latency.
func WithVerboseLogging(enabled bool) Option {
	return func(o *options) { o.verbose = enabled }
}

// WithEndpoint overrides the Drive API base URL. Used by tests.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithHTTPClient supplies the HTTP client directly, bypassing the OAuth
// transport. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// loggingRoundTripper wraps the transport and emits one debug line per request
// and response when verbose logging is enabled.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *zap.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("drive api request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug("drive api error", zap.Duration("elapsed", dur), zap.Error(err))
		return resp, err
	}
	t.logger.Debug("drive api response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", dur))
	return resp, err
}

// New builds a Drive client over the given token source.
func New(ctx context.Context, ts oauth2.TokenSource, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, errors.New("drive client: nil context")
	}
	o := &options{pageSize: 1000, logger: zap.NewNop()}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	hc := o.httpClient
	if hc == nil {
		if ts == nil {
			return nil, errors.New("drive client: token source is required")
		}
		base := http.DefaultTransport
		if o.verbose {
			base = &loggingRoundTripper{base: base, logger: o.logger}
		}
		hc = &http.Client{Transport: &oauth2.Transport{Source: ts, Base: base}}
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	svc, err := drivev3.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{svc: svc, pageSize: o.pageSize, logger: o.logger}, nil
}

// ListFolder returns every item directly inside folderID, following
// pagination. Folders come first, then files, each group sorted by name.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))
	items, err := c.list(ctx, query)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsFolder() != items[j].IsFolder() {
			return items[i].IsFolder()
		}
		ni, nj := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if ni != nj {
			return ni < nj
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// Search returns non-trashed files whose name contains the query, optionally
// restricted to one folder.
func (c *Client) Search(ctx context.Context, name, folderID string) ([]File, error) {
	query := fmt.Sprintf("name contains '%s' and trashed=false", escapeQuery(name))
	if folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(folderID))
	}
	return c.list(ctx, query)
}

func (c *Client) list(ctx context.Context, query string) ([]File, error) {
	var out []File
	call := c.svc.Files.List().
		Q(query).
		Fields(googleapi.Field(listFields)).
		PageSize(c.pageSize)
	err := call.Pages(ctx, func(page *drivev3.FileList) error {
		for _, df := range page.Files {
			out = append(out, fileFromDrive(df))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list drive files: %w", err)
	}
	return out, nil
}

// Subfolders returns the immediate subfolders of folderID.
func (c *Client) Subfolders(ctx context.Context, folderID string) ([]Folder, error) {
	items, err := c.ListFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	var out []Folder
	for _, item := range items {
		if item.IsFolder() {
			out = append(out, Folder{ID: item.ID, Name: item.Name})
		}
	}
	return out, nil
}

// CSVFiles returns the CSV files directly inside folderID.
func (c *Client) CSVFiles(ctx context.Context, folderID string) ([]File, error) {
	items, err := c.ListFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	var out []File
	for _, item := range items {
		if !item.IsFolder() && isCSV(item.Name) {
			out = append(out, item)
		}
	}
	return out, nil
}

// AllCSVFiles walks the tree under rootID and returns every CSV with its full
// path, sorted by folder path then name. Files at the root get folder path
// "Root".
func (c *Client) AllCSVFiles(ctx context.Context, rootID string) ([]File, error) {
	var out []File
	var walk func(folderID, path string) error
	walk = func(folderID, path string) error {
		items, err := c.ListFolder(ctx, folderID)
		if err != nil {
			return err
		}
		for _, item := range items {
			switch {
			case item.IsFolder():
				if err := walk(item.ID, joinPath(path, item.Name)); err != nil {
					return err
				}
			case isCSV(item.Name):
				f := item
				f.Path = joinPath(path, item.Name)
				f.FolderPath = path
				if f.FolderPath == "" {
					f.FolderPath = "Root"
				}
				out = append(out, f)
			}
		}
		return nil
	}
	if err := walk(rootID, ""); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FolderPath != out[j].FolderPath {
			return out[i].FolderPath < out[j].FolderPath
		}
		return out[i].Name < out[j].Name
	})
	c.logger.Debug("drive csv scan complete", zap.Int("files", len(out)))
	return out, nil
}

// BatteryTestFolders returns every folder under rootID (to maxDepth) that
// directly contains CSV files, annotated with those files.
func (c *Client) BatteryTestFolders(ctx context.Context, rootID string, maxDepth int) ([]Folder, error) {
	var out []Folder
	var walk func(folderID, path string, depth int) error
	walk = func(folderID, path string, depth int) error {
		if depth > maxDepth {
			return nil
		}
		items, err := c.ListFolder(ctx, folderID)
		if err != nil {
			return err
		}

		var csvs []File
		for _, item := range items {
			if !item.IsFolder() && isCSV(item.Name) {
				csvs = append(csvs, item)
			}
		}
		if len(csvs) > 0 {
			out = append(out, Folder{
				ID:        folderID,
				Name:      displayName(path),
				Path:      path,
				Depth:     depth,
				FileCount: len(csvs),
				Files:     csvs,
			})
		}

		for _, item := range items {
			if item.IsFolder() {
				if err := walk(item.ID, joinPath(path, item.Name), depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(rootID, "", 0); err != nil {
		return nil, err
	}
	c.logger.Debug("drive test folder scan complete", zap.Int("folders", len(out)))
	return out, nil
}

// FileMeta returns the metadata of one file.
func (c *Client) FileMeta(ctx context.Context, fileID string) (File, error) {
	df, err := c.svc.Files.Get(fileID).
		Fields("id, name, mimeType, size, modifiedTime").
		Context(ctx).
		Do()
	if err != nil {
		return File{}, fmt.Errorf("get file metadata %s: %w", fileID, err)
	}
	return fileFromDrive(df), nil
}

// Download returns the raw content of one file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return raw, nil
}

// About returns the email address of the authorized account. Used to verify
// that stored credentials actually work.
func (c *Client) About(ctx context.Context) (string, error) {
	about, err := c.svc.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive about: %w", err)
	}
	if about.User == nil {
		return "", nil
	}
	return about.User.EmailAddress, nil
}

func fileFromDrive(df *drivev3.File) File {
	return File{
		ID:       df.Id,
		Name:     df.Name,
		MimeType: df.MimeType,
		Size:     df.Size,
		Modified: df.ModifiedTime,
	}
}

func isCSV(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// displayName is the last path segment, truncated for the folder dropdown.
// The tree root shows as "Root".
func displayName(path string) string {
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	if name == "" {
		return "Root"
	}
	if r := []rune(name); len(r) > 50 {
		return string(r[:47]) + "..."
	}
	return name
}

// escapeQuery escapes backslashes and single quotes for Drive query strings.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// IsRateLimited reports whether err is a Drive quota or rate-limit response.
func IsRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	if apiErr.Code == http.StatusForbidden {
		for _, item := range apiErr.Errors {
			switch item.Reason {
			case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
				return true
			}
		}
	}
	return false
}

// IsNotFound reports whether err is a Drive 404.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
