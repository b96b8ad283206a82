package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnkhanh/vocasync/utils"
)

type TokenOptions struct {
	*RootOptions
	TTL   time.Duration
	Email string
}

type tokenResult struct {
	Subject   string `json:"subject"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// NewTokenCommand mints a session token, mostly for local testing.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a session token for a subject",
		Long: `Issue a session token signed with JWT_SECRET.

Example:
  vocasync token google:1234 --ttl 1h`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (default TOKEN_TTL)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email claim")
	return cmd
}

func runToken(opts *TokenOptions, subject string, out io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	ttl := cfg.TokenTTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	issuer, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, ttl)
	if err != nil {
		return err
	}
	token, err := issuer.GenerateToken(subject, utils.Claims{Email: opts.Email, Provider: "cli"})
	if err != nil {
		return err
	}

	res := tokenResult{
		Subject:   subject,
		Token:     token,
		ExpiresAt: time.Now().Add(ttl).UTC().Format(time.RFC3339),
	}
	return writeOutput(out, opts.Format, res, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, token)
		return err
	})
}
