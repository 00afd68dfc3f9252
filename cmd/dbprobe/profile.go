package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joacominatel/dbprobe/internal/config"
	"github.com/joacominatel/dbprobe/internal/secret"
	"github.com/joacominatel/dbprobe/internal/tui/theme"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved connection profiles",
	}
	cmd.AddCommand(newProfileAddCmd(), newProfileListCmd(), newProfileRemoveCmd())
	return cmd
}

func newProfileAddCmd() *cobra.Command {
	var (
		passwordStdin bool
		makeDefault   bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Save the connection given by flags and environment as a profile",
		Long: `Save the connection given by flags and environment as a profile.

The password is never written to the config file. With --password-stdin it is
read from the first line of standard input and stored in the OS keyring.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			conn, err := config.Resolve(&config.Config{}, "", cmd.Flags())
			if err != nil {
				return err
			}
			conn.Name = args[0]
			if err := conn.Validate(); err != nil {
				return err
			}

			if passwordStdin {
				pw, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				if err := secret.Set(conn.KeyringAccount(), pw); err != nil {
					return err
				}
			}

			cfg.AddConnection(conn)
			if makeDefault {
				cfg.Preferences.DefaultConnection = conn.Name
			}
			if err := config.Save(configPath, cfg); err != nil {
				return err
			}

			logger.Info().Str("profile", conn.Name).Str("target", conn.DisplayString()).Msg("Profile saved")
			fmt.Fprintln(cmd.OutOrStdout(), theme.StyleSuccess.Render("Saved profile "+conn.Name))
			return nil
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from standard input into the keyring")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "make this the default profile")
	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(cfg.Connections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), theme.StyleMuted.Render("No saved profiles."))
				return nil
			}

			def := config.DefaultConnection(cfg)
			for _, c := range cfg.Connections {
				marker := " "
				if def != nil && def.Name == c.Name {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %-10s %s\n", marker, c.Name, c.Driver, c.DisplayString())
			}
			return nil
		},
	}
}

func newProfileRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Delete a saved profile and its keyring entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			conn, ok := cfg.RemoveConnection(args[0])
			if !ok {
				return fmt.Errorf("no connection profile named %q", args[0])
			}
			if err := secret.Delete(conn.KeyringAccount()); err != nil {
				logger.Warn().Err(err).Msg("Could not remove password from keyring")
			}
			if err := config.Save(configPath, cfg); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.StyleSuccess.Render("Removed profile "+conn.Name))
			return nil
		},
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("read password: empty input")
	}
	return pw, nil
}
