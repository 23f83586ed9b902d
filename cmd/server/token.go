package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "amlguard/internal/jwt_token"
	"amlguard/internal/platform/config"
	"amlguard/pkg/domain"
)

const (
	tokenIssuer   = "amlguard"
	tokenAudience = "amlguard-api"
)

var tokenFlags struct {
	id   string
	name string
	role string
	ttl  time.Duration
}

// tokenCmd mints a bearer token for local testing against the configured
// signing key.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for an actor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		role, err := domain.ParseRole(tokenFlags.role)
		if err != nil {
			return err
		}
		jwts := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)
		token, err := jwts.GenerateAccessToken(domain.Actor{
			ID:   tokenFlags.id,
			Name: tokenFlags.name,
			Role: role,
		}, tokenFlags.ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenFlags.id, "id", "", "actor ID (token subject)")
	f.StringVar(&tokenFlags.name, "name", "", "actor display name")
	f.StringVar(&tokenFlags.role, "role", string(domain.RoleViewer), "actor role")
	f.DurationVar(&tokenFlags.ttl, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("id")
}
