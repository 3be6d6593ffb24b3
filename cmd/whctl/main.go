package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/auth"
	"github.com/bazrganidrwst/warehouse-client/internal/config"
	"github.com/bazrganidrwst/warehouse-client/internal/obs"
	"github.com/bazrganidrwst/warehouse-client/inventory"
	"github.com/bazrganidrwst/warehouse-client/notify"
	"github.com/bazrganidrwst/warehouse-client/router"
	"github.com/bazrganidrwst/warehouse-client/storage"
	"github.com/bazrganidrwst/warehouse-client/storage/filestore"
	"github.com/bazrganidrwst/warehouse-client/storage/memstore"
	"github.com/bazrganidrwst/warehouse-client/storage/redisstore"
)

const usage = `usage: whctl [flags] <command> [args]

commands:
  login <username>                  sign in (password from -password or WAREHOUSE_PASSWORD)
  logout                            sign out of this device
  whoami                            show the signed-in profile
  locale [code]                     show or set the request language
  devices                           list signed-in devices
  revoke <device-id>                sign a device out
  notifications list|read <id>|read-all|watch
  branches                          list branches
  items [search]                    list or search items
  customers [customer|supplier]     list customers
  cashbox <branch-id>               show a branch cashbox
  dashboard                         show dashboard counters
  open <path>                       check whether a route may be opened
`

// app holds everything a command needs.
type app struct {
	cfg      config.Config
	api      *apiclient.Client
	auth     *auth.Store
	stores   *inventory.Stores
	history  *router.History
	notifier notify.Notifier
	registry *prometheus.Registry
	metrics  *obs.ClientMetrics
	password string
	remember bool
	closers  []func() error
}

// authRef lets the router guard read a store that is created after it.
type authRef struct{ store *auth.Store }

func (a *authRef) Token() string {
	if a.store == nil {
		return ""
	}
	return a.store.Token()
}

func (a *authRef) UserType() router.UserType {
	if a.store == nil {
		return ""
	}
	return a.store.UserType()
}

func main() {
	_ = godotenv.Load()
	cfg := config.New()

	fs := flag.NewFlagSet("whctl", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage); fs.PrintDefaults() }
	password := fs.String("password", os.Getenv("WAREHOUSE_PASSWORD"), "password for login")
	remember := fs.Bool("remember", true, "keep the session after the process exits")
	plain := fs.Bool("plain", false, "disable colours")
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	obs.SetupLogger(cfg.GetEnv(), cfg.GetLogLevel())
	if err := obs.InitSentry(cfg.GetSentryDSN(), cfg.GetEnv()); err != nil {
		log.Warn().Err(err).Msg("sentry disabled")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a, err := newApp(ctx, cfg, notify.NewTerminal(os.Stdout, *plain))
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("whctl setup failed")
	}
	a.password, a.remember = *password, *remember

	err = a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	a.close()
	cancel()
	obs.FlushSentry()
	if err != nil {
		log.Error().Err(err).Str("command", fs.Arg(0)).Msg("command failed")
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg config.Config, n notify.Notifier) (*app, error) {
	a := &app{cfg: cfg, notifier: n, registry: prometheus.NewRegistry()}
	a.metrics = obs.NewClientMetrics(a.registry)

	local, err := a.openLocalStore(ctx)
	if err != nil {
		return nil, err
	}
	session := memstore.New()

	ref := &authRef{}
	a.history = router.NewHistory(router.NewGuard(ref), router.RouteRoot)
	a.history.OnNavigate(func(from, to string) {
		log.Debug().Str("from", from).Str("to", to).Msg("navigate")
	})

	a.api, err = apiclient.NewFromConfig(cfg,
		apiclient.WithStorage(local, session),
		apiclient.WithNotifier(n),
		apiclient.WithNavigator(a.history),
		apiclient.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] apiclient")
	}
	a.auth = auth.NewStoreFromConfig(a.api, local, session, cfg, auth.WithNotifier(n))
	ref.store = a.auth
	a.api.UseSession(a.auth)
	a.auth.LoadStoredAuth()

	a.stores = inventory.New(a.api, n, a.auth)
	a.stores.ResetOnLogout(a.auth)
	return a, nil
}

// openLocalStore keeps the remembered session in redis when an address is
// configured and in a file under the data folder otherwise.
func (a *app) openLocalStore(ctx context.Context) (storage.Store, error) {
	if addr := a.cfg.GetRedisAddr(); addr != "" {
		rs, err := redisstore.Dial(ctx, addr, redisstore.WithPrefix(a.cfg.GetAppName()+":"))
		if err != nil {
			return nil, errors.Wrap(err, "[app.openLocalStore] redis")
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	}
	folder := a.cfg.GetDataFolder()
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[app.openLocalStore] data folder")
	}
	fs, err := filestore.Open(filepath.Join(folder, "session.json"))
	if err != nil {
		return nil, errors.Wrap(err, "[app.openLocalStore] file store")
	}
	return fs, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}
