package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/marquee/internal/server"
	"github.com/desertthunder/marquee/internal/shared"
)

// useConfigPath points token persistence at path when the file exists.
func (r *Runner) useConfigPath(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err == nil {
		r.configPath = path
		return
	}
	r.logger.Warn("config file not found, token is kept for this run only", "path", path)
	r.configPath = ""
}

// AuthLogin performs the OAuth2 authorization code flow with PKCE.
//
// Starts a local HTTP server, opens the browser for user authorization and
// stores the exchanged bearer token in the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.useConfigPath(cmd.String("config"))

	oauthConfig, err := server.OAuthConfig(r.config.Auth)
	if err != nil {
		return err
	}

	addr := r.config.Server.Addr()
	if oauthConfig.RedirectURL == "" {
		oauthConfig.RedirectURL = "http://" + addr + "/callback"
	}

	srv := server.NewCallbackServer(oauthConfig, addr, r.logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	authURL := srv.AuthURL()
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	token, err := srv.Wait(ctx, timeout)
	if err != nil {
		return err
	}

	if err := r.saveToken(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.reportTokenSaved()
	return nil
}

// AuthToken stores a bearer token given directly or copied from a browser request.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	r.useConfigPath(cmd.String("config"))

	raw := strings.TrimSpace(cmd.String("token"))
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	given := 0
	for _, v := range []string{raw, curlCmd, curlFile} {
		if v != "" {
			given++
		}
	}
	switch {
	case given == 0:
		return fmt.Errorf("%w: one of --token, --curl or --curl-file must be provided", shared.ErrMissingArgument)
	case given > 1:
		return fmt.Errorf("%w: --token, --curl and --curl-file are mutually exclusive", shared.ErrInvalidArgument)
	}

	if raw == "" {
		var (
			headers *shared.CurlHeaders
			err     error
		)
		if curlFile != "" {
			if headers, err = shared.ParseCurlFile(curlFile); err != nil {
				return fmt.Errorf("failed to parse cURL file: %w", err)
			}
			r.logger.Info("parsed cURL from file", "file", curlFile)
		} else {
			if headers, err = shared.ParseCurlCommand(curlCmd); err != nil {
				return fmt.Errorf("failed to parse cURL command: %w", err)
			}
			r.logger.Info("parsed cURL command")
		}
		if raw, err = headers.BearerToken(); err != nil {
			return err
		}
	}

	if err := r.saveToken(&oauth2.Token{AccessToken: raw, TokenType: "Bearer"}); err != nil {
		return err
	}

	r.writePlain("✓ Token stored\n")
	r.reportTokenSaved()
	return nil
}

func (r *Runner) reportTokenSaved() {
	if r.configPath != "" {
		r.writePlain("✓ Token saved to %s\n\n", r.configPath)
	} else {
		r.writePlain("Run 'marquee setup config' first to keep the token between runs.\n\n")
	}
	r.writePlain("You can now use: marquee auth status\n")
}

// AuthStatus shows the account the configured token belongs to.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.config.API.Token == "" {
		return fmt.Errorf("%w: run 'marquee auth login' first", shared.ErrNotAuthenticated)
	}
	if r.api == nil {
		return fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("checking auth status", "api", r.api.BaseURL())

	user, err := r.api.Me(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("✓ Authenticated\n")
	r.writePlain("Account: %s", user.Name)
	if user.Email != "" {
		r.writePlain(" <%s>", user.Email)
	}
	r.writePlain("\n")
	if user.Role != "" {
		r.writePlain("Role: %s\n", user.Role)
	}
	return r.writePlain("API: %s\n", r.api.BaseURL())
}
