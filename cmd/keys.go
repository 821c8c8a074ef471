package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shuaiyuancn/2026-better-booking/internal/vault"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate a FERNET_KEY value for encrypting stored credentials",
		Long: `Generate a FERNET_KEY value. The worker and the dashboard must share the key:
tokens written with one key cannot be read with another.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := vault.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export FERNET_KEY=%s\n", key)
			return nil
		},
	}
}
