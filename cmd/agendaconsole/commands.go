package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"agendaconsole/internal/api"
	"agendaconsole/internal/branding"
	"agendaconsole/internal/calendar"
	"agendaconsole/internal/config"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
	"agendaconsole/internal/session"
	"agendaconsole/internal/spreadsheet"
	"agendaconsole/internal/termview"
	"agendaconsole/internal/web"
)

const settingsTTL = 5 * time.Minute

type rootFlags struct {
	configPath string
	envPath    string
	listen     string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:           "agendaconsole",
		Short:         "Admin console for the booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "./agendaconsole.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flags.envPath, "env", ".env", "Optional dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&flags.listen, "listen", "", "HTTP listen address (overrides config if set)")

	rootCmd.AddCommand(
		newServeCmd(&flags),
		newCalendarCmd(&flags),
		newThemeCmd(),
		newSnapshotCmd(&flags),
		newImportClientsCmd(&flags),
	)
	return rootCmd
}

// loadConfig reads dotenv, then the YAML config, and applies CLI overrides
// and the log level.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	if err := config.LoadDotEnv(flags.envPath); err != nil {
		return nil, fmt.Errorf("load %s: %w", flags.envPath, err)
	}
	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		appLog.Warn("could not write default config; continuing with defaults", "config_path", flags.configPath, "error", err)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	return conf, nil
}

func newServer(conf *config.Config) (*web.Server, error) {
	client := api.New(conf.APIBaseURL, conf.RequestTimeoutDuration())
	sessions := session.NewStore(conf.IdleTimeoutDuration())
	cache := api.NewSettingsCache(conf.CacheDir, settingsTTL)
	return web.NewServer(conf, client, sessions, cache)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin console web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			appLog.Info("effective config",
				"listen", conf.Listen,
				"api", conf.APIBaseURL,
				"timezone", conf.Timezone,
				"week_start", conf.WeekStart,
				"idle_timeout", conf.IdleTimeout,
				"refresh", conf.Refresh,
				"snapshot_cron", conf.SnapshotCron,
			)

			srv, err := newServer(conf)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			c := cron.New(cron.WithLocation(conf.Location()))
			if _, err := c.AddFunc(conf.Refresh, func() { srv.RefreshSettings(ctx) }); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", conf.Refresh, err)
			}
			if _, err := c.AddFunc("@every 1m", srv.SweepSessions); err != nil {
				return err
			}
			if conf.SnapshotCron != "" {
				_, err := c.AddFunc(conf.SnapshotCron, func() {
					month := calendar.ParseMonthParam("", conf.Location(), time.Now())
					if err := srv.Snapshot(ctx, month); err != nil {
						appLog.Error("scheduled snapshot failed", err)
					}
				})
				if err != nil {
					return fmt.Errorf("invalid snapshot schedule %q: %w", conf.SnapshotCron, err)
				}
			}
			c.Start()
			defer func() {
				<-c.Stop().Done()
			}()

			return web.Start(ctx, srv)
		},
	}
}

// credentials returns the account used by the non-interactive commands:
// --email or snapshot_email, with the password from AGENDA_PASSWORD or
// AGENDA_SNAPSHOT_PASSWORD.
func credentials(conf *config.Config, email string) (string, string, error) {
	if email == "" {
		email = conf.SnapshotEmail
	}
	password := os.Getenv("AGENDA_PASSWORD")
	if password == "" {
		password = conf.SnapshotPassword
	}
	if email == "" || password == "" {
		return "", "", errors.New("set --email (or snapshot_email) and AGENDA_PASSWORD")
	}
	return email, password, nil
}

func login(ctx context.Context, conf *config.Config, email string) (*api.Client, model.User, error) {
	email, password, err := credentials(conf, email)
	if err != nil {
		return nil, model.User{}, err
	}
	base := api.New(conf.APIBaseURL, conf.RequestTimeoutDuration())
	res, err := base.Login(ctx, email, password)
	if err != nil {
		return nil, model.User{}, fmt.Errorf("login: %w", err)
	}
	return base.WithAuth(res.Auth), res.User, nil
}

func newCalendarCmd(flags *rootFlags) *cobra.Command {
	var (
		month string
		email string
		width int
	)
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print a month of appointments in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			client, user, err := login(ctx, conf, email)
			if err != nil {
				return err
			}
			items, err := calendarItems(ctx, client, user.CompanyID())
			if err != nil {
				return err
			}

			var theme branding.Theme
			if settings, err := client.Settings(ctx); err != nil {
				appLog.Warn("settings unavailable; using default colors", "error", err)
				theme = branding.Apply(nil)
			} else {
				theme = branding.Apply(&settings)
			}

			loc := conf.Location()
			m := calendar.BuildMonth(calendar.ParseMonthParam(month, loc, time.Now()), items, calendar.Options{
				Location:   loc,
				WeekStart:  calendar.ParseWeekStart(conf.WeekStart),
				MaxVisible: conf.MaxVisiblePerDay,
			})
			fmt.Fprintln(cmd.OutOrStdout(), termview.Render(m, theme.WithFallback(conf.Branding.BrandName, ""), width))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to show, YYYY-MM (default: current)")
	cmd.Flags().StringVar(&email, "email", "", "Account e-mail (default: snapshot_email)")
	cmd.Flags().IntVar(&width, "width", 16, "Cell width in columns")
	return cmd
}

// calendarItems fetches the company's active appointments titled
// "client · service".
func calendarItems(ctx context.Context, client *api.Client, companyID int64) ([]model.CalendarAppointment, error) {
	appts, err := client.AppointmentsByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	clients, err := client.Clients(ctx)
	if err != nil {
		return nil, err
	}
	services, err := client.ServicesByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	serviceNames := make(map[int64]string, len(services))
	for _, s := range services {
		serviceNames[s.ID] = s.Name
	}

	items := make([]model.CalendarAppointment, 0, len(appts))
	for _, a := range appts {
		if a.Active != nil && !*a.Active {
			continue
		}
		parts := make([]string, 0, 2)
		for _, n := range []string{names[a.ClientID], serviceNames[a.ServiceID]} {
			if n != "" {
				parts = append(parts, n)
			}
		}
		title := strings.Join(parts, " · ")
		if title == "" {
			title = fmt.Sprintf("Agendamento #%d", a.ID)
		}
		id := a.ID
		items = append(items, model.CalendarAppointment{ID: &id, StartAt: a.StartAt, Title: title})
	}
	return items, nil
}

func newThemeCmd() *cobra.Command {
	var primary, secondary, brand string
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Derive the branding CSS variables and report contrast",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := model.Settings{}
			if primary != "" {
				s.PrimaryColor = &primary
			}
			if secondary != "" {
				s.SecondaryColor = &secondary
			}
			if brand != "" {
				s.BrandName = &brand
			}
			for _, c := range []string{primary, secondary} {
				if c == "" {
					continue
				}
				if _, ok := branding.NormalizeHex(c); !ok {
					return fmt.Errorf("invalid color %q", c)
				}
			}

			theme := branding.Apply(&s)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.CSS())
			for _, pair := range [][2]string{
				{"--primary", "--primary-foreground"},
				{"--secondary", "--secondary-foreground"},
				{"--accent", "--accent-foreground"},
			} {
				bg, fg := theme.Var(pair[0], ""), theme.Var(pair[1], "")
				if bg == "" {
					continue
				}
				ratio, _ := branding.ContrastRatio(bg, fg)
				fmt.Fprintf(out, "%-12s %s on %s  %.2f:1\n", strings.TrimPrefix(pair[0], "--"), fg, bg, ratio)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&primary, "primary", "", "Primary color (#RRGGBB)")
	cmd.Flags().StringVar(&secondary, "secondary", "", "Secondary color (#RRGGBB)")
	cmd.Flags().StringVar(&brand, "brand", "", "Brand name")
	return cmd
}

func newSnapshotCmd(flags *rootFlags) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the printable month agenda to PNG with headless Chromium",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			srv, err := newServer(conf)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return srv.Snapshot(ctx, calendar.ParseMonthParam(month, conf.Location(), time.Now()))
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to capture, YYYY-MM (default: current)")
	return cmd
}

func newImportClientsCmd(flags *rootFlags) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "import-clients [file.xlsx|file.xls]",
		Short: "Create clients from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			clients, rowErrs, err := spreadsheet.ParseClients(f, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, re := range rowErrs {
				fmt.Fprintf(out, "linha %d: %s\n", re.Line, re.Reason)
			}

			ctx, cancel := signalContext()
			defer cancel()
			client, _, err := login(ctx, conf, email)
			if err != nil {
				return err
			}

			created := 0
			for _, c := range clients {
				if _, err := client.CreateClient(ctx, c); err != nil {
					fmt.Fprintf(out, "%s <%s>: %s\n", c.Name, c.Email, api.Message(err, "recusado"))
					continue
				}
				created++
			}
			fmt.Fprintf(out, "%d criado(s), %d recusado(s), %d linha(s) inválida(s)\n", created, len(clients)-created, len(rowErrs))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account e-mail (default: snapshot_email)")
	return cmd
}
