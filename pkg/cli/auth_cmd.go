package cli

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}
	cmd.AddCommand(newAuthTokenCmd())
	return cmd
}

func newAuthTokenCmd() *cobra.Command {
	var (
		subject string
		secret  string
		admin   bool
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a dev-mode HS256 JWT token",
		Example: `  # Generate an admin token
  rulegate auth token --subject alice --admin --secret dev-secret

  # Custom expiry
  rulegate auth token --subject alice --secret dev-secret --expires 48h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			claims := jwt.MapClaims{
				"sub": subject,
				"iat": now.Unix(),
				"exp": now.Add(expires).Unix(),
			}
			if admin {
				claims["admin"] = true
			}
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			cmd.Println(signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "subject identity for the token")
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 shared secret")
	cmd.Flags().BoolVar(&admin, "admin", false, "include the admin claim")
	cmd.Flags().DurationVar(&expires, "expires", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}
