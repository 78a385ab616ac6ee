package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	commonredis "incapacity-claims/common/redis"
	"incapacity-claims/internal/auth"
	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/store"
)

var (
	sessionUserID int64
	sessionRole   string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage bearer session tokens",
}

var sessionIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer token for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		actor := domain.Actor{ID: sessionUserID, Role: domain.Role(sessionRole)}
		if actor.ID <= 0 || !actor.Role.Valid() {
			return fmt.Errorf("--user-id must be positive and --role one of employee, admin")
		}
		sessions, closeFn, err := openSessions(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		token, err := sessions.Issue(cmd.Context(), actor)
		if err != nil {
			return fmt.Errorf("failed to issue session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var sessionRevokeCmd = &cobra.Command{
	Use:   "revoke <token>",
	Short: "Revoke a bearer token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, closeFn, err := openSessions(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		if err := sessions.Revoke(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "revoked")
		return nil
	},
}

func openSessions(ctx context.Context) (*auth.SessionAuthenticator, func(), error) {
	client := commonredis.NewRedisClient(redisConfig())
	if err := commonredis.Available(ctx, client, 3*time.Second); err != nil {
		_ = commonredis.Close(client)
		return nil, nil, fmt.Errorf("session store unavailable at %s: %w", viper.GetString("redis.addr"), err)
	}
	closeFn := func() { _ = commonredis.Close(client) }
	return auth.NewSessionAuthenticator(store.NewRedisKV(client), viper.GetDuration("auth.session_ttl")), closeFn, nil
}

func init() {
	sessionIssueCmd.Flags().Int64Var(&sessionUserID, "user-id", 0, "user id")
	sessionIssueCmd.Flags().StringVar(&sessionRole, "role", string(domain.RoleEmployee), "employee or admin")
	sessionCmd.AddCommand(sessionIssueCmd, sessionRevokeCmd)
	rootCmd.AddCommand(sessionCmd)
}
