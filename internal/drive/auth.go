// Package drive wraps read-only Google Drive access for battery test data:
// OAuth credential handling, folder browsing and CSV downloads.
package drive

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"
)

// Scope is the only Drive scope battdash ever requests. The dashboard reads
// test exports; it never writes to Drive.
const Scope = drivev3.DriveReadonlyScope

// LoadCredentials parses an OAuth client file (the credentials.json downloaded
// from the Google Cloud console) into an installed-app flow config.
func LoadCredentials(path string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("credentials file not found: %s", path)
		}
		return nil, fmt.Errorf("read credentials %s: %w", path, err)
	}
	cfg, err := google.ConfigFromJSON(raw, Scope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return cfg, nil
}

// LoadToken reads a stored OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("token file not found: %s", path)
		}
		return nil, fmt.Errorf("read token %s: %w", path, err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes the token with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write token %s: %w", path, err)
	}
	return nil
}

// TokenSource loads the stored token and returns a refreshing source that
// writes refreshed tokens back to tokenPath, so a long-running backend keeps
// its token file current.
func TokenSource(ctx context.Context, cfg *oauth2.Config, tokenPath string) (oauth2.TokenSource, error) {
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return &savingTokenSource{
		path: tokenPath,
		src:  cfg.TokenSource(ctx, tok),
		last: tok,
	}, nil
}

type savingTokenSource struct {
	path string
	src  oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		s.last = tok
		if err := SaveToken(s.path, tok); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
	}
	return tok, nil
}

// AuthorizeOptions control the interactive OAuth flow.
type AuthorizeOptions struct {
	// Manual skips the loopback callback server. The user pastes the
	// authorization code shown in the browser address bar instead. Needed on
	// headless machines where the browser runs elsewhere.
	Manual bool

	Out io.Writer
	In  io.Reader
}

// Authorize runs the installed-app OAuth consent flow and returns the granted
// token. It does not save the token; callers decide where it lands.
func Authorize(ctx context.Context, cfg *oauth2.Config, opts AuthorizeOptions) (*oauth2.Token, error) {
	if cfg == nil {
		return nil, errors.New("authorize: nil oauth config")
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Manual {
		return authorizeManual(ctx, cfg, opts)
	}
	return authorizeLoopback(ctx, cfg, opts)
}

func authorizeLoopback(ctx context.Context, cfg *oauth2.Config, opts AuthorizeOptions) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start callback listener: %w", err)
	}
	defer ln.Close()

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- errors.New("authorization state mismatch")
			return
		}
		if errStr := q.Get("error"); errStr != "" {
			http.Error(w, "authorization failed: "+errStr, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization failed: %s", errStr)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			errCh <- errors.New("authorization response missing code")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window and return to the terminal.")
		codeCh <- code
	})

	srv := &http.Server{Handler: mux}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
	}()
	defer srv.Close()

	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(opts.Out, "Open this URL in your browser to grant read-only Drive access:\n\n  %s\n\nWaiting for the browser callback...\n", authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := flowCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func authorizeManual(ctx context.Context, cfg *oauth2.Config, opts AuthorizeOptions) (*oauth2.Token, error) {
	flowCfg := *cfg
	if flowCfg.RedirectURL == "" {
		// The redirect will fail to load in the browser; the code stays
		// visible in the address bar for the user to copy.
		flowCfg.RedirectURL = "http://127.0.0.1"
	}

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(opts.Out, "Open this URL in a browser (any machine) to grant read-only Drive access:\n\n  %s\n\nAfter approving, copy the \"code\" parameter from the address bar.\n", authURL)
	fmt.Fprint(opts.Out, "Authorization code: ")

	line, err := bufio.NewReader(opts.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return nil, errors.New("no authorization code entered")
	}

	tok, err := flowCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
