package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/findme/internal/auth"
	"github.com/erazemk/findme/internal/db"
	"github.com/erazemk/findme/internal/model"
	"github.com/erazemk/findme/internal/store"
)

const generatedPasswordLength = 16

func newInitCmd(a *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and the administrator account",
		Long: `init creates the database schema and an administrator account with the
configured name and email. The generated password is printed once.

With --reset-password an existing administrator gets a new password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if reset {
				password, err := resetAdminPassword(ctx, database, a.cfg.AdminEmail)
				if err != nil {
					return err
				}
				printCredentials(out, "Password reset", a.cfg.AdminName, a.cfg.AdminEmail, password)
				return nil
			}

			password, err := provisionAdmin(ctx, database, a.cfg.AdminName, a.cfg.AdminEmail)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Database ready: %s\n\n", a.cfg.DBPath)
			printCredentials(out, "Admin account created", a.cfg.AdminName, a.cfg.AdminEmail, password)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset-password", false, "generate a new password for the existing administrator")
	return cmd
}

func newCheckAdminCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-admin",
		Short: "Report whether the configured administrator exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.cfg.DBPath); err != nil {
				return fmt.Errorf("database %s: %w", a.cfg.DBPath, err)
			}
			database, err := openDatabase(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			return checkAdmin(cmd.Context(), database, a.cfg.AdminEmail, cmd.OutOrStdout())
		},
	}
}

func openDatabase(path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

// provisionAdmin creates an administrator with a generated password and
// returns the password.
func provisionAdmin(ctx context.Context, database *sql.DB, name, email string) (string, error) {
	password, hash, err := newPassword()
	if err != nil {
		return "", err
	}
	_, err = store.CreateUser(ctx, database, store.NewUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	})
	if errors.Is(err, store.ErrEmailTaken) {
		return "", emailTakenError(ctx, database, email)
	}
	if err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// emailTakenError explains what to do when the admin email is already
// registered. It wraps store.ErrEmailTaken.
func emailTakenError(ctx context.Context, database *sql.DB, email string) error {
	user, err := store.GetUserByEmail(ctx, database, email)
	if err == nil && user.Role != model.RoleAdmin {
		return fmt.Errorf("%w: account %s exists with role %s; set ADMIN_EMAIL to an unused address or promote that account",
			store.ErrEmailTaken, email, user.Role)
	}
	return fmt.Errorf("%w: account %s already exists; use init --reset-password to replace its password",
		store.ErrEmailTaken, email)
}

// ensureAdmin provisions the configured administrator unless some
// administrator already exists. It returns the generated password, or ""
// when nothing was created.
func ensureAdmin(ctx context.Context, database *sql.DB, name, email string) (string, error) {
	_, err := store.FindAdmin(ctx, database)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, store.ErrNoAdmin) {
		return "", err
	}
	return provisionAdmin(ctx, database, name, email)
}

func resetAdminPassword(ctx context.Context, database *sql.DB, email string) (string, error) {
	user, err := store.GetUserByEmail(ctx, database, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("no account with email %s", email)
	}
	if err != nil {
		return "", err
	}
	if user.Role != model.RoleAdmin {
		return "", fmt.Errorf("account %s is not an administrator", email)
	}

	password, hash, err := newPassword()
	if err != nil {
		return "", err
	}
	if err := store.UpdateUserPassword(ctx, database, user.ID, hash); err != nil {
		return "", err
	}
	return password, nil
}

func checkAdmin(ctx context.Context, database *sql.DB, email string, out io.Writer) error {
	user, err := store.GetUserByEmail(ctx, database, email)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(out, "No account with email %s.\n", email)
		if admin, err := store.FindAdmin(ctx, database); err == nil {
			fmt.Fprintf(out, "Other administrator: %s <%s>\n", admin.Name, admin.Email)
			return nil
		}
		return store.ErrNoAdmin
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Account %s <%s>: role %s, verified %t, created %s\n",
		user.Name, user.Email, user.Role, user.IsVerified, user.CreatedAt.Format("2006-01-02"))
	if user.Role != model.RoleAdmin {
		return fmt.Errorf("account %s is not an administrator", email)
	}
	return nil
}

func newPassword() (password, hash string, err error) {
	password, err = auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		return "", "", fmt.Errorf("generating password: %w", err)
	}
	hash, err = auth.HashPassword(password)
	if err != nil {
		return "", "", fmt.Errorf("hashing password: %w", err)
	}
	return password, hash, nil
}

func printCredentials(out io.Writer, title, name, email, password string) {
	fmt.Fprintf(out, "%s:\n", title)
	fmt.Fprintf(out, "  Name:     %s\n", name)
	fmt.Fprintf(out, "  Email:    %s\n", email)
	fmt.Fprintf(out, "  Password: %s\n\n", password)
	fmt.Fprintln(out, "Save this password, it cannot be recovered.")
}
