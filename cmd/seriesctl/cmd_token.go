package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/usage-forecaster/internal/domain/auth"
	"github.com/yanqian/usage-forecaster/internal/infra/config"
	"github.com/yanqian/usage-forecaster/pkg/logger"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API using http.auth.jwtSecret",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject, usually the calling dashboard or team")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if !cfg.HTTP.Auth.Enabled() {
		return errors.New("http.auth.jwtSecret is not configured")
	}
	svc := auth.NewService(auth.Config{
		Secret:   cfg.HTTP.Auth.JWTSecret,
		Issuer:   cfg.HTTP.Auth.Issuer,
		TokenTTL: tokenTTL,
	}, logger.NewWithWriter(cmd.ErrOrStderr(), logLevel))

	token, err := svc.IssueToken(cmd.Context(), tokenSubject)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
