package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/store"
	"github.com/mtzanidakis/feescope/internal/vault"
)

func runVault(args []string) error {
	if len(args) == 0 {
		printVaultUsage()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Vault.Passphrase == "" {
		return fmt.Errorf("vault passphrase is required (FEESCOPE_VAULT_PASSPHRASE)")
	}

	v := vault.New(cfg.Vault.Passphrase)

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	switch args[0] {
	case "list":
		return vaultList(db)
	case "set":
		return vaultSet(db, v, args[1:])
	case "get":
		return vaultGet(db, v, args[1:])
	case "delete":
		return vaultDelete(db, args[1:])
	default:
		printVaultUsage()
		return fmt.Errorf("unknown vault command: %s", args[0])
	}
}

func printVaultUsage() {
	fmt.Fprintf(os.Stderr, `Usage: feescope vault <command>

Commands:
  list                                             List secrets (metadata only)
  set <name> --value <str> [--description <text>]  Store or update a secret
  get <name>                                       Print a decrypted secret value
  delete <name>                                    Delete a secret
`)
}

func vaultList(db *store.Store) error {
	secrets, err := db.ListSecrets()
	if err != nil {
		return err
	}
	if len(secrets) == 0 {
		fmt.Println("No secrets stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tUPDATED")
	for _, sec := range secrets {
		fmt.Fprintf(w, "%s\t%s\t%s\n", sec.Name, sec.Description, sec.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func vaultSet(db *store.Store, v *vault.Vault, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing secret name")
	}
	name := args[0]

	var value, description string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--value":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for --value")
			}
			i++
			value = args[i]
		case "--description":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for --description")
			}
			i++
			description = args[i]
		}
	}
	if value == "" {
		return fmt.Errorf("--value is required")
	}

	ciphertext, nonce, err := v.SealString(value)
	if err != nil {
		return fmt.Errorf("seal secret: %w", err)
	}

	sec, err := db.GetSecretByName(name)
	if err != nil {
		return err
	}
	if sec == nil {
		sec = &store.Secret{ID: uuid.NewString(), Name: name}
	}
	sec.Value = ciphertext
	sec.Nonce = nonce
	if description != "" {
		sec.Description = description
	}

	if err := db.SaveSecret(sec); err != nil {
		return err
	}
	fmt.Printf("Secret %s stored.\n", name)
	return nil
}

func vaultGet(db *store.Store, v *vault.Vault, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing secret name")
	}

	sec, err := db.GetSecretByName(args[0])
	if err != nil {
		return err
	}
	if sec == nil {
		return fmt.Errorf("secret not found: %s", args[0])
	}

	value, err := v.OpenString(sec.Value, sec.Nonce)
	if err != nil {
		return fmt.Errorf("open secret: %w", err)
	}
	fmt.Println(value)
	return nil
}

func vaultDelete(db *store.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing secret name")
	}

	sec, err := db.GetSecretByName(args[0])
	if err != nil {
		return err
	}
	if sec == nil {
		return fmt.Errorf("secret not found: %s", args[0])
	}

	if err := db.DeleteSecret(sec.ID); err != nil {
		return err
	}
	fmt.Printf("Secret %s deleted.\n", args[0])
	return nil
}
