// seed creates local development data: a project with its pipeline secret, a chat workspace
// installation, and operator tokens for the admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"otp-relay/internal/config"
	"otp-relay/internal/db"
	projectdomain "otp-relay/internal/project/domain"
	projectrepo "otp-relay/internal/project/repository"
	responderdomain "otp-relay/internal/responder/domain"
	responderrepo "otp-relay/internal/responder/repository"
	"otp-relay/internal/security"
	"otp-relay/internal/server/middleware"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "seed",
		Short:        "Create development projects, installations and operator tokens",
		SilenceUsage: true,
	}
	root.AddCommand(projectCmd(), installationCmd(), tokenCmd())
	return root
}

func projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project OWNER/NAME",
		Short: "Register a project and print its pipeline secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, ok := strings.Cut(args[0], "/")
			if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
				return fmt.Errorf("expected OWNER/NAME, got %q", args[0])
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx := cmd.Context()
			conn, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}
			defer conn.Close()

			secret, err := security.NewProjectSecret()
			if err != nil {
				return err
			}
			hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(secret))
			if err != nil {
				return err
			}
			p := &projectdomain.Project{ID: uuid.NewString(), RepoOwner: owner, RepoName: name, SecretHash: hash, CreatedAt: time.Now().UTC()}
			if err := projectrepo.NewPostgresRepository(conn).Create(ctx, p); err != nil {
				if errors.Is(err, projectrepo.ErrDuplicateRepo) {
					return fmt.Errorf("%s is already registered", p.FullName())
				}
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "project id: %s\n", p.ID)
			fmt.Fprintf(out, "secret:     %s\n", secret)
			return nil
		},
	}
}

func installationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "installation PLATFORM WORKSPACE_ID ACCESS_TOKEN",
		Short: "Store the bot credential for a chat workspace (slack team id or feishu tenant key)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := responderdomain.ParsePlatform(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx := cmd.Context()
			conn, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}
			defer conn.Close()

			return responderrepo.NewPostgresRepository(conn).SaveInstallation(ctx, &responderdomain.Installation{
				Platform:    platform,
				WorkspaceID: args[1],
				AccessToken: args[2],
				UpdatedAt:   time.Now().UTC(),
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Mint an operator bearer token for the admin API (needs JWT_PRIVATE_KEY)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != middleware.RoleAdmin && role != middleware.RoleViewer {
				return fmt.Errorf("role must be %s or %s", middleware.RoleAdmin, middleware.RoleViewer)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.JWTPrivateKey == "" {
				return errors.New("JWT_PRIVATE_KEY is not set")
			}
			priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.AccessTTL()
			}
			tokens := security.NewTokenProvider(priv, priv.Public(), cfg.JWTIssuer, cfg.JWTAudience, ttl)
			token, exp, err := tokens.IssueOperator(args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", middleware.RoleAdmin, "operator role (admin or viewer)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_ACCESS_TTL)")
	return cmd
}
