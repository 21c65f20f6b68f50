package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dcheno/flickrup/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the out-of-band OAuth flow and persists the access tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.flickr == nil {
		return fmt.Errorf("%w: set api_key and api_secret in %s first", shared.ErrMissingCredentials, r.configPath)
	}

	authURL, requestToken, requestSecret, err := r.flickr.AuthorizationURL()
	if err != nil {
		return err
	}

	r.writePlain("Open this URL in a browser and authorize the application:\n\n")
	r.writePlain("  %s\n\n", authURL)
	r.writePlain("Enter the verification code shown after authorizing: ")

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil {
		return fmt.Errorf("%w: failed to read verification code: %v", shared.ErrAuthFailed, err)
	}
	verifier := strings.TrimSpace(line)
	if verifier == "" {
		return fmt.Errorf("%w: verification code is required", shared.ErrMissingArgument)
	}

	token, secret, err := r.flickr.ExchangeVerifier(requestToken, requestSecret, verifier)
	if err != nil {
		return err
	}

	r.config.Credentials.Flickr.OAuthToken = token
	r.config.Credentials.Flickr.OAuthTokenSecret = secret

	if r.configPath != "" {
		if err := shared.SaveConfig(r.configPath, r.config); err != nil {
			return fmt.Errorf("failed to save tokens: %w", err)
		}
		r.logger.Info("tokens saved", "path", r.configPath)
	}

	return r.writePlain("\n✓ Authentication successful\n")
}

// AuthStatus verifies the stored tokens against the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	r.logger.Info("checking auth status")

	if err := r.service.Authenticate(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrAuthFailed) {
			r.writePlain("✗ Not authenticated: %v\n", err)
			r.writePlain("Run 'flickrup auth login' to authorize.\n")
			return nil
		}
		return err
	}

	return r.writePlain("✓ Authenticated with %s\n", r.service.Name())
}

// authCommand handles authentication against the photo host
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Flickr",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize this application and store OAuth tokens",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check whether the stored tokens are valid",
				Action: r.AuthStatus,
			},
		},
	}
}
