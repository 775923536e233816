package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/maheshrc27/reelflow/pkg/utils"
	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	var operator string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token from SECRET_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("SECRET_KEY")
			if secret == "" {
				return errors.New("SECRET_KEY is not set")
			}
			token, err := utils.GenerateToken(secret, operator, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "reelctl", "Name recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "Token lifetime")
	return cmd
}
