package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hongminglow/fieldops-dashboard/internal/gateway"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/models/dto"
	"github.com/hongminglow/fieldops-dashboard/internal/server"
)

const passwordEnv = "FIELDOPS_PASSWORD"

func newLoginCmd(app func() *App) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		Long: `Signs in against the field-data API. When a different user than the
previous one signs in, every cached record on this device is purged first.

If the API cannot be reached, the password is checked against the
credentials saved at the last successful sign-in instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return fmt.Errorf("--username and --password (or %s) are required", passwordEnv)
			}
			if err := a.Session.CheckLocked(ctx); err != nil {
				return err
			}

			resp, err := a.API.Login(ctx, username, password)
			if err != nil {
				return handleLoginError(ctx, cmd, a, username, password, err)
			}
			id, err := a.Session.SignIn(ctx, resp.Token, username, password)
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", id.Username, id.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (defaults to $"+passwordEnv+")")
	return cmd
}

func handleLoginError(ctx context.Context, cmd *cobra.Command, a *App, username, password string, err error) error {
	var reqErr *gateway.RequestError
	if errors.As(err, &reqErr) && reqErr.Status == http.StatusUnauthorized {
		n, recErr := a.Session.RecordFailedAttempt(ctx)
		if recErr != nil {
			return recErr
		}
		return fmt.Errorf("invalid credentials (%d of %d attempts used)", n, a.Config.MaxLoginAttempts)
	}
	if errors.As(err, &reqErr) && reqErr.Status == 0 {
		ok, verr := a.Session.VerifyOffline(ctx, username, password)
		if verr != nil {
			return verr
		}
		if ok {
			if _, cerr := a.Session.Current(ctx); cerr == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "API unreachable; unlocked the saved session offline")
				return nil
			}
		}
	}
	return fmt.Errorf("login: %w", err)
}

func newLogoutCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and purge every cached record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app().Session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out; local cache cleared")
			return nil
		},
	}
}

func newLoadCmd(app func() *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the dashboard, from cache unless --force is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.State.LoadDashboardData(cmd.Context(), force); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.State.View())
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the cache and fetch from the API")
	return cmd
}

func newCachedCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cached",
		Short: "Show the cached dashboard without touching the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, ok := a.State.LoadCachedDashboardData(cmd.Context()); !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no cached dashboard")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), a.State.View())
		},
	}
}

func newAddUserCmd(app func() *App) *cobra.Command {
	var req dto.RegisterRequest
	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Create a user through the API and add it to the cached dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			if req.Password == "" {
				req.Password = os.Getenv(passwordEnv)
			}
			if models.ParseRole(req.Role) == models.RoleUnknown {
				return fmt.Errorf("unknown role %q", req.Role)
			}
			who, err := a.Session.Current(ctx)
			if err != nil {
				return err
			}
			// Patch on top of a real snapshot. Seeding happens before the
			// create so the fetched lists do not already hold the new user.
			if _, ok := a.State.LoadCachedDashboardData(ctx); !ok {
				if _, err := a.State.LoadDashboardData(ctx, false); err != nil {
					return fmt.Errorf("load dashboard before adding user: %w", err)
				}
			}
			created, err := a.API.CreateUser(ctx, who.Token, req)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			if err := a.State.AddNewUser(ctx, created); err != nil {
				return fmt.Errorf("user %s created but not cached: %w", created.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", created.Role, created.Username, created.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "login name")
	f.StringVar(&req.FullName, "full-name", "", "display name")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Phone, "phone", "", "phone number")
	f.StringVar(&req.Password, "password", "", "initial password (defaults to $"+passwordEnv+")")
	f.StringVar(&req.Role, "role", string(models.RoleBoothBoy), "admin or booth_boy")
	f.StringSliceVar(&req.AssignedBoothIDs, "booth", nil, "assigned booth id (repeatable)")
	f.StringVar(&req.StateID, "state-id", "", "state id")
	f.StringVar(&req.DistrictID, "district-id", "", "district id")
	f.StringVar(&req.AssemblyID, "assembly-id", "", "assembly id")
	return cmd
}

func newClearCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop the cached dashboard snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app().State.ClearDashboardData(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "dashboard cache cleared")
			return nil
		},
	}
}

func newSwitchIdentityCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "switch-identity <user-id>",
		Short: "Record a user id as the cache owner, purging if it changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			prev, _, err := a.Guard.CurrentIdentity(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Guard.OnIdentitySwitch(cmd.Context(), args[0]); err != nil {
				return err
			}
			if prev != "" && prev != args[0] {
				fmt.Fprintf(cmd.OutOrStdout(), "identity changed from %s to %s; cache purged\n", prev, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "identity %s recorded\n", args[0])
			return nil
		},
	}
}

func newServeCmd(app func() *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard view and metrics over local HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if addr == "" {
				addr = a.Config.DashboardAddr
			}
			a.State.LoadCachedDashboardData(cmd.Context())
			srv := server.NewDashboard(addr, a.State, a.Logger)

			errCh := make(chan error, 1)
			go func() {
				a.Logger.Info("dashboard view listening", slog.String("addr", addr))
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to $DASHBOARD_ADDR)")
	return cmd
}
