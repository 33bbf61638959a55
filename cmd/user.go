package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
	"github.com/ellavondegurechaff/materialpool/materialpool/logger"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var newUser struct {
	email       string
	username    string
	displayName string
	role        string
	password    string
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		role, ok := users.ParseRole(newUser.role)
		if !ok {
			return fmt.Errorf("unknown role %q, expected admin or user", newUser.role)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := openStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := st.services().users.Create(cmd.Context(), users.NewUser{
			Email:       newUser.email,
			Username:    newUser.username,
			DisplayName: newUser.displayName,
			Role:        role,
			Password:    newUser.password,
		})
		if errors.Is(err, users.ErrUserExists) {
			err = fmt.Errorf("%s or %s is already taken: %w", newUser.username, newUser.email, err)
		}
		logger.LogCommand("user create", time.Since(start), err)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (id %d)\n", user.Role, user.Username, user.ID)
		return nil
	},
}

var resetPassword struct {
	username string
	password string
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Reset the password of a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := openStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		userService := st.services().users
		user, err := userService.GetByUsername(cmd.Context(), resetPassword.username)
		if err == nil {
			err = userService.UpdatePassword(cmd.Context(), user.ID, resetPassword.password)
		}
		logger.LogCommand("user passwd", time.Since(start), err)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s\n", user.Username)
		return nil
	},
}

func init() {
	flags := userCreateCmd.Flags()
	flags.StringVar(&newUser.email, "email", "", "login email")
	flags.StringVar(&newUser.username, "username", "", "unique username, used as material holder")
	flags.StringVar(&newUser.displayName, "display-name", "", "name shown in listings")
	flags.StringVar(&newUser.role, "role", string(users.RoleUser), "admin or user")
	flags.StringVar(&newUser.password, "password", "", "initial password")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	flags = userPasswdCmd.Flags()
	flags.StringVar(&resetPassword.username, "username", "", "account to reset")
	flags.StringVar(&resetPassword.password, "password", "", "new password")
	_ = userPasswdCmd.MarkFlagRequired("username")
	_ = userPasswdCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd, userPasswdCmd)
	rootCmd.AddCommand(userCmd)
}
