// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/steambot/bot"
	"github.com/bvk/steambot/ctxutil"
	"github.com/bvk/steambot/daemonize"
	"github.com/bvk/steambot/httputil"
	"github.com/bvk/steambot/logdir"
	"github.com/bvk/steambot/server"
	"github.com/bvk/steambot/subcmds/cmdutil"
	"github.com/bvk/steambot/trade"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
)

type Run struct {
	cmdutil.ServerFlags
	cmdutil.DataFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof    bool
	noLogin    bool
	noTelegram bool

	logDir string

	botOpts   bot.Options
	tradeOpts struct {
		retries    int
		retryDelay time.Duration
	}
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	c.DataFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.noLogin, "no-login", false, "when true, saved session is not used to login at startup")
	fset.BoolVar(&c.noTelegram, "no-telegram", false, "when true, telegram bot is not started even if configured")
	fset.StringVar(&c.logDir, "log-dir", "", "path to the log directory in background mode (default logs in the data directory)")
	fset.DurationVar(&c.botOpts.LoginCooldown, "login-cooldown", 30*time.Second, "minimum wait between two login attempts")
	fset.DurationVar(&c.botOpts.RenewInterval, "renew-interval", 20*time.Minute, "web session renewal period")
	fset.DurationVar(&c.botOpts.HeartbeatInterval, "heartbeat-interval", time.Minute, "web session liveness check period")
	fset.DurationVar(&c.botOpts.ReconnectCeiling, "reconnect-ceiling", 15*time.Minute, "max time spent reconnecting before giving up")
	fset.DurationVar(&c.botOpts.ConfirmationInterval, "confirmation-interval", 30*time.Second, "polling period for trade offer confirmations")
	fset.IntVar(&c.tradeOpts.retries, "trade-retries", trade.DefaultMaxRetries, "number of retries for transient trade offer failures")
	fset.DurationVar(&c.tradeOpts.retryDelay, "trade-retry-delay", trade.DefaultRetryDelay, "wait between two trade offer attempts")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs steambot in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the steambot service. Service logs into the bot's Steam
account with the saved session, if any, and keeps the web session alive. When
no saved session exists, an operator must authenticate with the "login"
command or the Telegram bot's "/login" command.

SECRETS FILE

Steam account credentials and the admin password are read from the secrets
file in JSON format. A example secrets file format is given below:

    {
        "steam":{
            "account_name":"mybot",
            "password":"2222222222",
            "shared_secret":"base64...",
            "identity_secret":"base64..."
        },
        "admin_password":"3333333333"
    }

Empty fields are filled from the STEAM_USERNAME, STEAM_PASSWORD,
STEAM_SHARED_SECRET, STEAM_IDENTITY_SECRET and ADMIN_PASSWORD environment
variables, which may also be defined in a .steambot.env file in the data
directory or the home directory.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	secrets, err := c.LoadSecrets()
	if err != nil {
		return err
	}
	if err := secrets.Check(); err != nil {
		return fmt.Errorf("invalid secrets: %w", err)
	}

	if ip := net.ParseIP(c.IP); ip == nil {
		return fmt.Errorf("invalid ip address")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port number")
	}
	addr := &net.TCPAddr{
		IP:   net.ParseIP(c.IP),
		Port: c.Port,
	}

	// Health checker for the background process initialization. We need to
	// verify that responding http server is really our child and not an older
	// instance.
	check := func(ctx context.Context, child *os.Process) (bool, error) {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return true, fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, err
		}
		if pid := string(data); pid != fmt.Sprintf("%d", child.Pid) {
			return c.restart, fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
		}
		return false, nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, "STEAMBOT_DAEMONIZE", check); err != nil {
			return err
		}

		logDir := c.logDir
		if len(logDir) == 0 {
			logDir = filepath.Join(dataDir, "logs")
		}
		backend, err := logdir.New(logDir, "steambot")
		if err != nil {
			return fmt.Errorf("could not create log backend: %w", err)
		}
		defer backend.Close()

		slog.SetDefault(slog.New(slog.NewTextHandler(backend, &slog.HandlerOptions{AddSource: true})))
	}

	slog.Info("using data directory", "dir", dataDir, "account", secrets.Steam.AccountName)

	lockPath := filepath.Join(dataDir, "steambot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	sopts := &server.Options{
		DataDir:    dataDir,
		NoTelegram: c.noTelegram,
		Bot:        c.botOpts,
	}
	sopts.Trade.MaxRetries = c.tradeOpts.retries
	sopts.Trade.RetryDelay = c.tradeOpts.retryDelay
	bs, err := server.New(ctx, secrets, sopts)
	if err != nil {
		return err
	}
	defer bs.Close()

	// Add bot api handlers
	botAPIs := bs.HandlerMap()
	for k, v := range botAPIs {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range botAPIs {
			s.RemoveHandler(k)
		}
	}()

	slog.Info("started steambot server", "addr", addr)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	if !c.noLogin {
		if err := bs.Login(ctx); err != nil {
			if errors.Is(err, bot.ErrCodeRequired) {
				slog.Warn("no saved session; waiting for an operator to login")
			} else {
				slog.Error("could not login with the saved session", "err", err)
			}
		}
	}

	// Wait for the signals

	<-ctx.Done()
	slog.Info("steambot server is shutting down")
	return nil
}
