package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke API keys used to authenticate against the StockMaster API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		label   string
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key. The raw key is shown once and cannot be retrieved again.",
		Example: `  stockmaster key create --label "warehouse dashboard"
  stockmaster key create --label "contractor" --expires 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(cmd.Context(), label, expires)
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for the key")
	cmd.Flags().DurationVar(&expires, "expires", 0, "Expire the key after this long (default: never)")

	return cmd
}

func runKeyCreate(ctx context.Context, label string, expires time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if expires < 0 {
		return errors.New("--expires must be positive")
	}
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	var expiresAt *time.Time
	if expires > 0 {
		t := time.Now().Add(expires).UTC()
		expiresAt = &t
	}

	// Key creation never signs tokens, so no secret is needed here.
	authSvc := service.NewAuthService(store, "")
	rawKey, key, err := authSvc.GenerateAPIKey(ctx, label, expiresAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:     %s\n", rawKey)
	fmt.Printf("  Prefix:  %s\n", key.KeyPrefix)
	if label != "" {
		fmt.Printf("  Label:   %s\n", label)
	}
	if expiresAt != nil {
		fmt.Printf("  Expires: %s\n", expiresAt.Local().Format(time.RFC1123))
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(ctx context.Context, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	keys, err := store.ListAPIKeys(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if keys == nil {
			keys = []model.APIKey{}
		}
		return printJSON(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys configured. Use 'stockmaster key create' to create one.")
		return nil
	}

	now := time.Now()
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k.KeyPrefix, k.Label, keyState(&k, now), formatOptionalTime(k.ExpiresAt), formatOptionalTime(k.LastUsed)}
	}
	return printTable([]string{"Prefix", "Label", "State", "Expires", "Last used"}, rows)
}

func keyState(k *model.APIKey, now time.Time) string {
	switch {
	case !k.IsActive:
		return "revoked"
	case k.Expired(now):
		return "expired"
	default:
		return "active"
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <prefix>",
		Short: "Revoke an API key by its prefix",
		Long:  "Deactivate an API key, preventing any further authenticated requests using that key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(cmd.Context(), args[0])
		},
	}

	return cmd
}

func runKeyRevoke(ctx context.Context, prefix string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	keys, err := store.ListAPIKeys(ctx)
	if err != nil {
		return err
	}

	// Accept any unambiguous leading part of the stored prefix.
	var matches []string
	for _, k := range keys {
		if k.IsActive && strings.HasPrefix(k.KeyPrefix, prefix) {
			matches = append(matches, k.KeyPrefix)
		}
	}
	switch len(matches) {
	case 0:
		return fmt.Errorf("no active API key found with prefix %q", prefix)
	case 1:
	default:
		return fmt.Errorf("prefix %q matches %d keys: %s", prefix, len(matches), strings.Join(matches, ", "))
	}

	if err := store.RevokeAPIKeyByPrefix(ctx, matches[0]); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("no active API key found with prefix %q", prefix)
		}
		return err
	}

	fmt.Printf("Revoked API key with prefix %q\n", matches[0])
	return nil
}
