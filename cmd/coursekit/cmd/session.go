package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xu2799/it-platform-frontend/internal/domain/session"
)

var (
	loginUsername string
	loginPassword string
)

// errLoginFailed is returned after a failed login has been reported.
var errLoginFailed = errors.New("login failed")

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Long: `Exchange a username and password for a token and store the session.

The password is read from the first line of standard input when
--password is not given.

Examples:
  coursekit login -u alice
  echo "$PW" | coursekit login -u alice`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (default: read from stdin)")
	_ = loginCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

type loginOutput struct {
	Success  bool   `json:"success"`
	Failure  string `json:"failure,omitempty"`
	Message  string `json:"message,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = line
	}

	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res := rt.Login(cmd.Context(), loginUsername, password)
	out := loginOutput{Success: res.Success, Message: res.Message}
	if !res.Success {
		out.Failure = res.Failure.String()
	} else if p := rt.Session.Profile(); p != nil {
		out.Username = p.Username
		out.Role = string(p.Role)
	}

	if err := render(cmd.OutOrStdout(), out, func(w io.Writer) {
		if !out.Success {
			fmt.Fprintf(w, "Login failed: %s\n", out.Message)
			return
		}
		fmt.Fprintf(w, "Logged in as %s (%s)\n", out.Username, out.Role)
	}); err != nil {
		return err
	}
	if !res.Success {
		return errLoginFailed
	}
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rt.Logout(cmd.Context())
	return render(cmd.OutOrStdout(), map[string]string{"state": rt.Session.State().String()}, func(w io.Writer) {
		fmt.Fprintln(w, "Logged out")
	})
}

type whoamiOutput struct {
	State   string               `json:"state"`
	Profile *session.UserProfile `json:"profile,omitempty"`
}

func runWhoami(cmd *cobra.Command, args []string) error {
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := whoamiOutput{State: rt.Session.State().String(), Profile: rt.Session.Profile()}
	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		p := out.Profile
		if p == nil {
			fmt.Fprintln(w, "Not logged in")
			return
		}
		fmt.Fprintf(w, "%s (id %d, %s)\n", p.Username, p.ID, p.Role)
		if len(p.FavoritedCourses) > 0 {
			fmt.Fprintf(w, "Favorites: %s\n", joinInts(p.FavoritedCourses))
		}
	})
}
