package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"profilescout/pkg/auth"
	"profilescout/pkg/ui"
)

var accountName string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage LinkedIn sessions",
	Long: `Manage stored LinkedIn session cookies.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (PROFILESCOUT_LI_AT, read only)

profilescout never logs in by itself. Never share your li_at cookie!`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store LinkedIn session cookies",
	Long: `Store the li_at and JSESSIONID cookies of a logged-in browser session.

You will be prompted for:
  - li_at cookie (required, input hidden)
  - JSESSIONID cookie (optional, input hidden)
  - User Agent (optional, press Enter for the browser default)

Run 'profilescout auth guide' for where to find the cookies.`,
	Example: `  profilescout auth login --name work`,
	Args:    cobra.NoArgs,
	RunE:    runLogin,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the LinkedIn session of a local browser",
	Long: `Read the LinkedIn session cookies from the cookie stores of locally
installed browsers and store them as an account.`,
	Example: `  profilescout auth import --name work`,
	Args:    cobra.NoArgs,
	RunE:    runImport,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with masked cookie values, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var defaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Make an account the default",
	Long: `Make an account the default. Without --account, runs use the most
recently stored account; this command marks <name> as the most recent one.`,
	Args: cobra.ExactArgs(1),
	RunE: runDefault,
}

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to copy the session cookies",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		auth.WriteCookieGuide(ui.Out)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(importCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(removeCmd)
	authCmd.AddCommand(defaultCmd)
	authCmd.AddCommand(guideCmd)

	loginCmd.Flags().StringVarP(&accountName, "name", "n", "default", "account name")
	importCmd.Flags().StringVarP(&accountName, "name", "n", "default", "account name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(ui.Out, "li_at cookie value: ")
	liAt, err := readSecret(reader)
	if err != nil {
		ui.PrintError("Failed to read li_at", err.Error())
		return err
	}
	if err := validateLiAt(liAt); err != nil {
		ui.PrintError("Invalid li_at", err.Error())
		return err
	}

	fmt.Fprint(ui.Out, "\nJSESSIONID cookie value (optional): ")
	jsessionID, err := readSecret(reader)
	if err != nil {
		ui.PrintError("Failed to read JSESSIONID", err.Error())
		return err
	}

	fmt.Fprint(ui.Out, "\nUser Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Name:       accountName,
		LiAt:       liAt,
		JSessionID: strings.Trim(jsessionID, `"`),
		UserAgent:  strings.TrimSpace(userAgent),
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store account", err.Error())
		return err
	}

	ui.PrintSuccess("Account stored: " + account.Name)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	account, err := auth.NewBrowserCookieSource().Account(ctx, accountName)
	if err != nil {
		ui.PrintError("No LinkedIn session found in local browsers", err.Error())
		return err
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store account", err.Error())
		return err
	}

	sanitized := auth.SanitizeAccount(account)
	ui.PrintSuccess("Account imported: " + account.Name)
	ui.PrintInfo("li_at", sanitized.LiAt)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		return err
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'profilescout auth login' to add an account")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(ui.Out)

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		marker := ""
		if i == 0 {
			marker = " (default)"
		}
		fmt.Fprintf(ui.Out, "%d. Name: %s%s\n", i+1, sanitized.Name, marker)
		fmt.Fprintf(ui.Out, "   li_at: %s\n", sanitized.LiAt)
		if sanitized.JSessionID != "" {
			fmt.Fprintf(ui.Out, "   JSESSIONID: %s\n", sanitized.JSessionID)
		}
		if sanitized.UserAgent != "" {
			fmt.Fprintf(ui.Out, "   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(ui.Out, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(ui.Out)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	name := strings.TrimSpace(args[0])
	if err := manager.Delete(name); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintError("No stored account named", name)
		} else {
			ui.PrintError("Failed to remove account", err.Error())
		}
		return err
	}

	ui.PrintSuccess("Account removed: " + name)
	return nil
}

func runDefault(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}
	return makeDefault(manager, strings.TrimSpace(args[0]))
}

// makeDefault stores the account again so it becomes the most recent one
func makeDefault(manager *auth.Manager, name string) error {
	account, err := manager.Retrieve(name)
	if err != nil {
		ui.PrintError("No stored account named", name)
		return err
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to update account", err.Error())
		return err
	}
	ui.PrintSuccess("Default account: " + name)
	return nil
}

// validateLiAt rejects values that cannot be a li_at cookie
func validateLiAt(v string) error {
	switch {
	case v == "":
		return errors.New("li_at is required")
	case strings.ContainsAny(v, " \t;"):
		return errors.New("li_at must be the bare cookie value, without name or separators")
	case len(v) < 20:
		return fmt.Errorf("li_at is too short (%d characters)", len(v))
	}
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
