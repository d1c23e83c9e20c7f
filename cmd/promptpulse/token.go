package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neboloop/promptpulse/internal/keyring"
	"github.com/neboloop/promptpulse/internal/middleware"
)

// TokenCmd creates the token command
func TokenCmd() *cobra.Command {
	var (
		rotate  bool
		ttl     time.Duration
		subject string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for the local API",
		Long: `Print a bearer token signed with the secret in the OS keychain.

Use it as "Authorization: Bearer <token>" for /api/v1 and /mcp, or as
?token=<token> for /ws.

--rotate replaces the secret first, invalidating every token issued before.
A running daemon keeps the old secret until it restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				secret string
				err    error
			)
			if rotate {
				secret, err = keyring.Rotate()
			} else {
				secret, err = keyring.Resolve()
			}
			if err != nil {
				return fmt.Errorf("signing secret: %w", err)
			}

			token, err := middleware.IssueToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rotate, "rotate", false, "generate a new signing secret first")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (0 = no expiry)")
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	return cmd
}
