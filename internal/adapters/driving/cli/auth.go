package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ledgersync/internal/adapters/driving/oauth"
	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the API credential",
	Long: `Authorise ledgersync against the accounting API and inspect or
refresh the stored credential.

The credential is kept in ~/.ledgersync/token.json (0600) unless
credentials.path is set.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorise in the browser and store the credential",
	Long: `Opens the consent page in your browser and waits for the redirect on the
configured redirect URI (default http://localhost:5000/callback).

The client secret is read from the settings file, CLIENT_SECRET, or
prompted for without echo.`,
	RunE: runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential state",
	RunE:  runAuthStatus,
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the access token now",
	RunE:  runAuthRefresh,
}

// Flags for auth login.
var (
	authLoginNoBrowser bool
	authLoginTimeout   time.Duration
)

func init() {
	authLoginCmd.Flags().BoolVar(
		&authLoginNoBrowser, "no-browser", false, "Print the consent URL instead of opening a browser")
	authLoginCmd.Flags().DurationVar(
		&authLoginTimeout, "timeout", 5*time.Minute, "How long to wait for the redirect")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	req, err := s.Token.BeginAuthorization()
	if err != nil {
		return err
	}

	server, err := oauth.NewCallbackServer(s.RedirectURI, req.State)
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop() //nolint:errcheck // best effort on exit

	cmd.Println("Open this URL to authorise ledgersync:")
	cmd.Printf("\n  %s\n\n", req.URL)
	if !authLoginNoBrowser {
		if err := oauth.OpenBrowser(req.URL); err != nil {
			logger.Warn("could not open browser: %v", err)
		}
	}
	cmd.Printf("Waiting for the redirect on %s ...\n", server.RedirectURI())

	code, err := server.WaitForCode(ctx, authLoginTimeout)
	if err != nil {
		return fmt.Errorf("authorisation failed: %w", err)
	}

	cred, err := s.Token.Authorize(ctx, code, req.Verifier)
	if err != nil {
		return fmt.Errorf("authorisation failed: %w", err)
	}

	cmd.Printf("Authorised. Access token valid until %s.\n", cred.Expiry().Local().Format(time.RFC1123))
	if !cred.HasRefreshToken() {
		cmd.Println("Warning: no refresh token granted; include the offline_access scope to stay signed in.")
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cred, ok, err := s.Token.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		cmd.Println("Not authorised. Run 'ledgersync auth login'.")
		return nil
	}

	cmd.Printf("State:          %s\n", s.Token.State(ctx))
	cmd.Printf("Token type:     %s\n", cred.TokenType)
	cmd.Printf("Obtained:       %s\n", cred.ObtainedAt.Local().Format(time.RFC1123))
	cmd.Printf("Expires:        %s\n", cred.Expiry().Local().Format(time.RFC1123))
	cmd.Printf("Refresh token:  %s\n", yesNo(cred.HasRefreshToken()))
	if cred.Scope != "" {
		cmd.Printf("Scope:          %s\n", cred.Scope)
	}
	return nil
}

func runAuthRefresh(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cred, ok, err := s.Token.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoCredential
	}

	refreshed, err := s.Token.Refresh(ctx, cred)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	cmd.Printf("Refreshed. Access token valid until %s.\n", refreshed.Expiry().Local().Format(time.RFC1123))
	return nil
}

// promptSecret returns a reader for the client secret on cmd's streams.
func promptSecret(cmd *cobra.Command) func() (string, error) {
	return func() (string, error) {
		cmd.Print("Client secret (empty for a PKCE-only app): ")
		secret := readPassword()
		cmd.Println()
		return secret, nil
	}
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
