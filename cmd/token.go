package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/fcv-2025.net/grader/internal/adapter/crypto"
	"gitlab.com/fcv-2025.net/grader/internal/config"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

var (
	tokenRole string
	tokenTTL  time.Duration
)

// tokenCmd mints a bearer token signed with JWT_SECRET for local testing
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a development bearer token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := domain.Role(tokenRole)
		switch role {
		case domain.RoleStudent, domain.RoleInstructor, domain.RoleAdmin:
		default:
			return fmt.Errorf("unknown role %q", tokenRole)
		}

		jwtService, err := crypto.NewJWTService(config.NewJwtConfig())
		if err != nil {
			return err
		}
		token, err := jwtService.GenerateTokenHMAC(domain.Principal{UserID: args[0], Role: role}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleStudent), "student, instructor or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
