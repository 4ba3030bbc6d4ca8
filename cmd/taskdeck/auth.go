package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/naveenspark/taskdeck/internal/guard"
	"github.com/naveenspark/taskdeck/pkg/client"
)

// errMissingFields matches the validation message of the auth page.
var errMissingFields = errors.New("Please fill in all fields") //nolint:staticcheck // shown to the user as is

// displayError turns a backend error into the message the user sees.
func displayError(err error) error {
	return errors.New(client.UserMessage(err))
}

// readLine returns the next line of r without its newline.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptIfEmpty asks for a value on cmd's input when the flag was not set.
func promptIfEmpty(cmd *cobra.Command, in *bufio.Reader, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	line, err := readLine(in)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return line, nil
}

// terminalFd returns the descriptor of in when it is an interactive terminal.
var terminalFd = func(in io.Reader) (int, bool) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	return int(f.Fd()), true
}

var readPassword = term.ReadPassword

// promptPassword is promptIfEmpty without echo when input is a terminal.
func promptPassword(cmd *cobra.Command, in *bufio.Reader, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fd, ok := terminalFd(cmd.InOrStdin())
	if !ok {
		return promptIfEmpty(cmd, in, "password", value)
	}
	fmt.Fprint(cmd.OutOrStdout(), "password: ")
	pw, err := readPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func (c *cli) registerCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username, err = promptIfEmpty(cmd, in, "username", username); err != nil {
				return err
			}
			if email, err = promptIfEmpty(cmd, in, "email", email); err != nil {
				return err
			}
			if password, err = promptPassword(cmd, in, password); err != nil {
				return err
			}
			username, email = strings.TrimSpace(username), strings.TrimSpace(email)
			if username == "" || email == "" || password == "" {
				return errMissingFields
			}

			if err := c.deps.session.Register(cmd.Context(), username, email, password); err != nil {
				return displayError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, okStyle.Render("Account created for "+username+"."))
			fmt.Fprintln(out, dimStyle.Render("Sign in with: taskdeck login --email "+email))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if email, err = promptIfEmpty(cmd, in, "email", email); err != nil {
				return err
			}
			if password, err = promptPassword(cmd, in, password); err != nil {
				return err
			}
			email = strings.TrimSpace(email)
			if email == "" || password == "" {
				return errMissingFields
			}

			if err := c.deps.session.LogIn(cmd.Context(), email, password); err != nil {
				return displayError(err)
			}
			sess := c.deps.session.Get()
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Welcome, "+sess.User.Username))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.deps.session.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Already logged out.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			}
			// Also clears a half-written session left by a crash.
			c.deps.session.LogOut()
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.deps.requireSignedIn(guard.ProjectsPath); err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), *c.deps.session.Get().User)
			return nil
		},
	}
}
