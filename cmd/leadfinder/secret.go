package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/FranksOps/leadfinder/internal/secrets"
	"github.com/spf13/cobra"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the Brave Search API key in the OS keychain",
		// The keychain needs no config; skip loading it.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Read a key from stdin and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), "Brave API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(line) == "" {
				return fmt.Errorf("read key: %w", err)
			}
			if err := secrets.SetBraveAPIKey(line); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Key stored.")
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := secrets.DeleteBraveAPIKey(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Key removed.")
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
