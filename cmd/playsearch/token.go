package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	catalogrepo "github.com/kailas-cloud/playsearch/internal/repository/catalog"
	identityuc "github.com/kailas-cloud/playsearch/internal/usecase/identity"
)

func newTokenCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(g))
	return cmd
}

func newTokenIssueCmd(g *globals) *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint an access token for an active user",
		Long: `Mint an access token for an active user without a password.

Examples:
  playsearch token issue --user u_123
  playsearch token issue --user u_123 --ttl 1h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			tok, err := issueToken(cmd.Context(), cfg.Catalog.Path, identityuc.Config{
				Secret:   cfg.Auth.JWTSecret,
				TokenTTL: ttlOr(ttl, time.Duration(cfg.Auth.TokenTTLMin)*time.Minute),
			}, userID, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: auth.token_ttl_min from config)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func issueToken(
	ctx context.Context, catalogPath string, cfg identityuc.Config, userID string, logger *zap.Logger,
) (identityuc.Token, error) {
	store, err := catalogrepo.Open(catalogPath)
	if err != nil {
		return identityuc.Token{}, err
	}
	defer store.Close()

	holder := catalogrepo.NewHolder(store, logger)
	if _, err := holder.Reload(ctx); err != nil {
		return identityuc.Token{}, err
	}

	svc, err := identityuc.New(cfg, holder, logger)
	if err != nil {
		return identityuc.Token{}, err
	}
	tok, err := svc.Issue(userID)
	if err != nil {
		return identityuc.Token{}, fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}

func ttlOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
