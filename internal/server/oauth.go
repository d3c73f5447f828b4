package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/desertthunder/marquee/internal/shared"
)

// DefaultLoginTimeout bounds how long [CallbackServer.Wait] waits for the browser.
const DefaultLoginTimeout = 2 * time.Minute

// OAuthResult is the outcome of one authorization attempt.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>marquee: {{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

// OAuthHandler serves the authorization code callback.
type OAuthHandler struct {
	config   *oauth2.Config
	state    string
	verifier string

	resultChan chan OAuthResult
	once       sync.Once

	mu          sync.Mutex
	callbackHit bool
}

// NewOAuthHandler creates a handler expecting state. verifier is the PKCE
// verifier sent with the exchange; empty disables PKCE.
func NewOAuthHandler(config *oauth2.Config, state, verifier string) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		state:      state,
		verifier:   verifier,
		resultChan: make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates the callback, exchanges the code and publishes the result.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		renderResult(w, http.StatusBadRequest, false, "The login request did not match. Run auth login again.")
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))
		h.Send(OAuthResult{err: err})
		renderResult(w, http.StatusBadRequest, false, "Authorization was denied.")
		return
	}

	var opts []oauth2.AuthCodeOption
	if h.verifier != "" {
		opts = append(opts, oauth2.VerifierOption(h.verifier))
	}

	token, err := h.config.Exchange(r.Context(), code, opts...)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)})
		renderResult(w, http.StatusInternalServerError, false, "Token exchange failed. Check the terminal for details.")
		return
	}

	h.Send(OAuthResult{Token: token})
	renderResult(w, http.StatusOK, true, "You can close this window and return to the terminal.")
}

// Send publishes result. Only the first call has any effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

func renderResult(w http.ResponseWriter, status int, ok bool, message string) {
	data := struct{ Title, Message, Color string }{"Authorization Failed", message, "#d64545"}
	if ok {
		data.Title, data.Color = "✓ Authorization Successful", "#6c5ce7"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = resultPage.Execute(w, data)
}

// CallbackServer runs one login: it listens for the callback, hands out the
// authorization URL and waits for the token.
type CallbackServer struct {
	handler *OAuthHandler
	config  *oauth2.Config
	state   string
	verify  string
	logger  *log.Logger

	srv      *http.Server
	listener net.Listener
	errs     chan error
}

// NewCallbackServer prepares a login against cfg, listening on addr.
func NewCallbackServer(cfg *oauth2.Config, addr string, logger *log.Logger) *CallbackServer {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	logger = logger.With("component", "oauth")

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	handler := NewOAuthHandler(cfg, state, verifier)

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(handler)

	return &CallbackServer{
		handler: handler,
		config:  cfg,
		state:   state,
		verify:  verifier,
		logger:  logger,
		srv:     &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:    make(chan error, 1),
	}
}

// OAuthConfig builds the client config for `auth login` from the [auth] section.
func OAuthConfig(auth shared.AuthConfig) (*oauth2.Config, error) {
	if auth.ClientID == "" || auth.AuthURL == "" || auth.TokenURL == "" {
		return nil, fmt.Errorf("%w: auth.client_id, auth.auth_url and auth.token_url must be set", shared.ErrMissingCredentials)
	}
	return &oauth2.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		RedirectURL:  auth.RedirectURI,
		Scopes:       auth.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  auth.AuthURL,
			TokenURL: auth.TokenURL,
		},
	}, nil
}

// Start binds the listener and serves in the background.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.listener = ln
	s.logger.Info("waiting for callback", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *CallbackServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// AuthURL is the page the user opens to approve the login.
func (s *CallbackServer) AuthURL() string {
	return s.config.AuthCodeURL(s.state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(s.verify))
}

// Wait blocks until the callback delivers a token, the server fails, ctx ends
// or timeout elapses. The listener is always shut down before returning.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	defer s.shutdown()

	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result OAuthResult
	select {
	case result = <-s.handler.Result():
	case err := <-s.errs:
		return nil, fmt.Errorf("%w: callback server: %v", shared.ErrServiceUnavailable, err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := result.Error(); err != nil {
		return nil, err
	}
	if result.Token == nil || result.Token.AccessToken == "" {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

func (s *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down callback server", "error", err)
	}
}
