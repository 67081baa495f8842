package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/MrEthical07/dealAuth"
	"github.com/MrEthical07/dealAuth/remote"
	"github.com/MrEthical07/dealAuth/session"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app carries what every subcommand shares once flags are parsed.
type app struct {
	configPath string
	envFile    string
	lookupEnv  func(string) (string, bool)

	config cliConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithEnv(os.LookupEnv)
}

func newRootCmdWithEnv(lookup func(string) (string, bool)) *cobra.Command {
	a := &app{lookupEnv: lookup}

	root := &cobra.Command{
		Use:   "dealauth",
		Short: "Meal-deal account and session tool",
		Long: `dealauth signs customers and partners in and out against the auth backend,
keeping the session token on disk between invocations. "dealauth serve" runs
the reference backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newServeCmd(a),
		newCheckEmailCmd(a),
		newSignInCmd(a),
		newSignUpCmd(a),
		newSignOutCmd(a),
		newResetPasswordCmd(a),
		newWhoAmICmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	cfg, err := loadConfig(a.configPath, a.lookupEnv)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.config = cfg
	a.logger = logger
	return nil
}

// manager builds a Manager talking to the configured backend. The returned
// cleanup closes it along with any Redis client it opened.
func (a *app) manager(cmd *cobra.Command) (*dealAuth.Manager, func(), error) {
	if err := a.config.validateClient(); err != nil {
		return nil, nil, err
	}

	rc := remote.DefaultConfig(a.config.Remote.BaseURL)
	rc.APIKey = a.config.Remote.APIKey
	rc.Timeout = a.config.Remote.Timeout
	rc.RetryMax = a.config.Remote.RetryMax
	rc.Store = session.NewFileStore(a.config.Session.File)
	rc.Logger = a.logger
	client, err := remote.NewClient(rc)
	if err != nil {
		return nil, nil, err
	}

	b := dealAuth.New().WithRemote(client).WithLogger(a.logger)
	cleanups := []func(){}

	if a.config.Manager.ResetThrottle {
		cfg := dealAuth.DefaultConfig()
		cfg.PasswordReset.ThrottleEnabled = true
		cfg.PasswordReset.MaxRequests = a.config.Manager.ResetMaxRequests
		cfg.PasswordReset.Cooldown = a.config.Manager.ResetCooldown
		rdb := a.redisClient()
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		b.WithConfig(cfg).WithRedis(rdb)
	}
	if a.config.Manager.AuditLog {
		b.WithAuditSink(dealAuth.NewJSONWriterSink(cmd.ErrOrStderr()))
	}

	m, err := b.Build()
	if err != nil {
		for _, fn := range cleanups {
			fn()
		}
		return nil, nil, err
	}
	return m, func() {
		m.Close()
		for _, fn := range cleanups {
			fn()
		}
	}, nil
}

func (a *app) redisClient() redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{a.config.Redis.Addr},
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
	})
}

// userError prints the message shown to users and returns err for the exit
// status.
func userError(cmd *cobra.Command, err error) error {
	if kind := dealAuth.KindOf(err); kind != dealAuth.KindUnknown {
		fmt.Fprintln(cmd.ErrOrStderr(), dealAuth.Message(err))
	}
	return err
}

func printState(cmd *cobra.Command, st dealAuth.State) {
	out := cmd.OutOrStdout()
	if !st.Authenticated {
		fmt.Fprintln(out, "not signed in")
	} else {
		u := st.CurrentUser
		fmt.Fprintf(out, "signed in as %s (%s)\n", u.Email, st.Role)
		fmt.Fprintf(out, "user id: %s\n", u.ID)
		if !u.CreatedAt.IsZero() {
			fmt.Fprintf(out, "member since: %s\n", u.CreatedAt.Format("2006-01-02"))
		}
	}
	if st.Notice != "" {
		fmt.Fprintln(out, st.Notice)
	}
}

func run(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
