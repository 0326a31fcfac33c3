// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/ctxutil"
	"github.com/bvk/autotrader/daemonize"
	"github.com/bvk/autotrader/dbutil"
	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/exchange/paper"
	"github.com/bvk/autotrader/httputil"
	"github.com/bvk/autotrader/logdir"
	"github.com/bvk/autotrader/server"
	"github.com/bvk/autotrader/sglog"
	"github.com/bvk/autotrader/subcmds/cmdutil"
	"github.com/bvk/autotrader/subcmds/defaults"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/shopspring/decimal"
)

type Run struct {
	cmdutil.ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof  bool
	noResume bool
	debug    bool

	secretsPath string
	dataDir     string
	logDir      string

	maxRequestsPerSecond int

	paperBalances string
	paperPrices   string
}

func (c *Run) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.noResume, "no-resume", false, "when true a previously running session is not resumed")
	fset.BoolVar(&c.debug, "debug", false, "when true debug level messages are also logged")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.logDir, "log-dir", "", "path to the log directory")
	fset.IntVar(&c.maxRequestsPerSecond, "max-requests-per-second", 10, "client-side exchange request rate limit")
	fset.StringVar(&c.paperBalances, "paper-balances", "EUR=10000", "comma-separated currency=amount deposits for the paper exchange")
	fset.StringVar(&c.paperPrices, "paper-prices", "BTC-EUR=50000", "comma-separated market=price seeds for the paper exchange")
	return fset, cli.CmdFunc(c.run)
}

func (c *Run) Synopsis() string {
	return "Runs the trading service in foreground or background"
}

func (c *Run) CommandHelp() string {
	return `

Command "run" starts the trading service. The service resumes the trading
session that was active when the previous instance shut down.

SECRETS FILE

Notification services require API keys. Users are expected to create a
secrets file with the keys in JSON format. An example secrets file is
given below:

    {
        "telegram":{
            "token":"111111111",
            "owner":"username"
        }
    }

The secrets file is optional; without it the service runs with
notifications written to the log.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(c.dataDir) == 0 {
		c.dataDir = defaults.DataDir()
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	secrets, err := server.SecretsFromFile(c.secretsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		secrets = nil
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

	// Health checker for the background process initialization. The parent
	// waits till the child http server starts responding on the /pid
	// endpoint.
	check := func(ctx context.Context) error {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status: %d", resp.StatusCode)
		}
		if _, err := io.ReadAll(resp.Body); err != nil {
			return err
		}
		return nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, check); err != nil {
			return err
		}
	}

	if len(c.logDir) == 0 {
		c.logDir = defaults.LogDir()
	}
	if err := os.MkdirAll(c.logDir, 0700); err != nil {
		return fmt.Errorf("could not create log directory %q: %w", c.logDir, err)
	}
	logBackend := sglog.NewBackend(&sglog.Options{
		LogDirs:       []string{c.logDir},
		LogFileHeader: true,
	})
	defer logBackend.Close()
	slog.SetDefault(slog.New(logBackend.Handler()))
	if c.debug {
		logBackend.EnableDebugLog()
	}

	log.SetFlags(log.Flags() | log.Lmicroseconds)
	if c.background {
		// The daemonized child has no terminal, so the standard logger output
		// also goes to a size-limited file in the log directory.
		lb, err := logdir.New(c.logDir, "autotrader")
		if err != nil {
			return fmt.Errorf("could not open log file: %w", err)
		}
		defer lb.Close()
		log.SetOutput(lb)
	}
	log.Printf("using data directory %s and secrets file %s", dataDir, c.secretsPath)

	lockPath := filepath.Join(dataDir, "autotrader.lock")
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
			log.Printf("waiting for the previous instance to shutdown")
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

	// Open the database.
	bopts := badger.DefaultOptions(dataDir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, isGoodKey)

	if err := checkDataVersion(ctx, db); err != nil {
		return err
	}

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	ex, err := c.newExchange()
	if err != nil {
		return err
	}

	// Start the trading service.
	topts := &server.Options{
		NoResume: c.noResume,
	}
	svc, err := server.New(ctx, secrets, db, ex, topts)
	if err != nil {
		return err
	}
	defer svc.Close()

	svcAPIs := svc.HandlerMap()
	for k, v := range svcAPIs {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range svcAPIs {
			s.RemoveHandler(k)
		}
	}()

	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := svc.Stop(context.Background()); err != nil {
			log.Printf("could not stop the trading session (ignored): %v", err)
		}
	}()

	// Wait for the signals

	log.Printf("started autotrader server at %s", addr)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	<-ctx.Done()
	log.Printf("autotrader server is shutting down")
	return nil
}

// newExchange builds the paper exchange from the command-line seeds and
// wraps it with the client-side request rate limit.
func (c *Run) newExchange() (exchange.Exchange, error) {
	ex := paper.New(nil)

	balances, err := parsePairs(c.paperBalances)
	if err != nil {
		return nil, fmt.Errorf("invalid paper-balances value: %w", err)
	}
	for currency, amount := range balances {
		ex.Deposit(currency, amount)
	}

	prices, err := parsePairs(c.paperPrices)
	if err != nil {
		return nil, fmt.Errorf("invalid paper-prices value: %w", err)
	}
	for market, price := range prices {
		ex.SetPrice(market, price)
	}

	return exchange.Throttle(ex, c.maxRequestsPerSecond), nil
}

func parsePairs(s string) (map[string]decimal.Decimal, error) {
	m := make(map[string]decimal.Decimal)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		name, value, found := strings.Cut(item, "=")
		if !found {
			return nil, fmt.Errorf("item %q needs a name=value form", item)
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("item %q needs a decimal value: %w", item, err)
		}
		m[name] = d
	}
	return m, nil
}

func isGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}

const (
	dataVersionKey = "/autotrader/data-version"
	dataVersion    = "v1"
)

// checkDataVersion stamps new databases with the current data format version
// and refuses to open databases written by an incompatible version.
func checkDataVersion(ctx context.Context, db kv.Database) error {
	version, err := dbutil.GetString[string](ctx, db, dataVersionKey)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("could not read data format version: %w", err)
		}
		return dbutil.SetString(ctx, db, dataVersionKey, dataVersion)
	}
	if version != dataVersion {
		return fmt.Errorf("database format version %q is not supported: %w", version, os.ErrInvalid)
	}
	return nil
}
