package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/secret"
)

func newCredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the completion backend API key in the OS keyring",
		Long: `Store the completion backend API key in the operating system keyring so
it does not have to live in the config file or the environment. A key set in
backend.api_key or STOCKMASTER_BACKEND_API_KEY takes precedence.`,
	}

	cmd.AddCommand(newCredentialSetCmd())
	cmd.AddCommand(newCredentialShowCmd())
	cmd.AddCommand(newCredentialDeleteCmd())

	return cmd
}

func newCredentialSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store the backend API key",
		Long:  "Prompt for the backend API key, or read it from stdin when input is piped.",
		Example: `  stockmaster credential set
  echo "$GEMINI_API_KEY" | stockmaster credential set`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readCredential()
			if err != nil {
				return err
			}
			store, err := secret.Open(resolveDataDir())
			if err != nil {
				return err
			}
			if err := store.Set(secret.KeyBackendAPIKey, key); err != nil {
				return err
			}
			pterm.Success.Printf("Stored backend API key %s\n", secret.Mask(key))
			return nil
		},
	}
}

func readCredential() (string, error) {
	fd := int(os.Stdin.Fd())
	var key string
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Backend API key: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		key = string(b)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read key from stdin: %w", err)
		}
		key = line
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("empty API key")
	}
	return key, nil
}

func newCredentialShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored backend API key, masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := secret.Open(resolveDataDir())
			if err != nil {
				return err
			}
			key, err := store.Get(secret.KeyBackendAPIKey)
			if errors.Is(err, secret.ErrNotFound) {
				fmt.Println("No backend API key stored. Use 'stockmaster credential set' to add one.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(secret.Mask(key))
			return nil
		},
	}
}

func newCredentialDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Remove the stored backend API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := secret.Open(resolveDataDir())
			if err != nil {
				return err
			}
			if err := store.Delete(secret.KeyBackendAPIKey); err != nil {
				return err
			}
			pterm.Success.Println("Backend API key removed.")
			return nil
		},
	}
}
