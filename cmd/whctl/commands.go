package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/auth"
	"github.com/bazrganidrwst/warehouse-client/internal/obs"
	"github.com/bazrganidrwst/warehouse-client/inventory"
	"github.com/bazrganidrwst/warehouse-client/notifications"
	"github.com/bazrganidrwst/warehouse-client/router"
)

var (
	errUsage          = errors.New("bad arguments, run whctl -h")
	errPollingStopped = errors.New("notification polling stopped, sign in again")
)

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.auth.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "locale":
		return a.locale(args)
	case "devices":
		return a.devices(ctx)
	case "revoke":
		if len(args) != 1 {
			return errUsage
		}
		return a.stores.Profile.RevokeDevice(ctx, inventory.FlexID(args[0]))
	case "notifications":
		return a.notifications(ctx, args)
	case "branches":
		return a.branches(ctx)
	case "items":
		return a.items(ctx, args)
	case "customers":
		return a.customers(ctx, args)
	case "cashbox":
		return a.cashbox(ctx, args)
	case "dashboard":
		return a.dashboard(ctx)
	case "open":
		return a.open(args)
	}
	return errors.Wrapf(errUsage, "unknown command %q", cmd)
}

func table() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 || a.password == "" {
		return errUsage
	}
	err := a.auth.Login(ctx, auth.LoginRequest{Username: args[0], Password: a.password, Remember: a.remember})
	if err != nil {
		return err
	}
	u := a.auth.User()
	fmt.Printf("signed in as %s (%s)\n", u.Name, u.Type)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	u, err := a.stores.Profile.Fetch(ctx)
	if err != nil {
		return err
	}
	w := table()
	fmt.Fprintf(w, "name\t%s\nusername\t%s\ntype\t%s\nrole\t%s\n", u.Name, u.Username, u.Type, u.Role)
	if u.Branch != nil {
		fmt.Fprintf(w, "branch\t%s\n", u.Branch.Name)
	}
	if exp, ok := a.auth.TokenExpiry(); ok {
		fmt.Fprintf(w, "token expires\t%s\n", exp.Local().Format(time.RFC1123))
	}
	for _, n := range u.StickyNotes {
		fmt.Fprintf(w, "note %d\t%s\n", n.ID, n.Content)
	}
	return w.Flush()
}

func (a *app) locale(args []string) error {
	if len(args) == 0 {
		fmt.Println(a.api.Locale())
		return nil
	}
	return a.api.SetLocale(args[0])
}

func (a *app) devices(ctx context.Context) error {
	devices, err := a.stores.Profile.FetchDevices(ctx)
	if err != nil {
		return err
	}
	w := table()
	fmt.Fprintln(w, "ID\tDEVICE\tIP\tLAST USED\t")
	for _, d := range devices {
		marker := ""
		if d.Current {
			marker = "(this device)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.IPAddress, d.LastUsedAtHuman, marker)
	}
	return w.Flush()
}

func (a *app) notifications(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	store := notifications.NewStore(a.api, a.notifier)
	switch args[0] {
	case "list":
		if err := store.Fetch(ctx); err != nil {
			return err
		}
		printNotifications(store.Notifications())
		return nil
	case "read":
		if len(args) != 2 {
			return errUsage
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(errUsage, "notification id must be a number")
		}
		return store.MarkAsRead(ctx, id)
	case "read-all":
		return store.MarkAllAsRead(ctx)
	case "watch":
		return a.watch(ctx, store)
	}
	return errUsage
}

func printNotifications(items []notifications.Notification) {
	w := table()
	fmt.Fprintln(w, "ID\tWHEN\tTITLE\tMESSAGE")
	for _, n := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ID, n.CreatedAt.Format("2006-01-02 15:04"), n.Title, n.Message)
	}
	_ = w.Flush()
}

// watch polls until interrupted. SIGUSR1 hides the view and pauses
// polling, SIGUSR2 shows it again.
func (a *app) watch(ctx context.Context, store *notifications.Store) error {
	if addr := a.cfg.GetMetricsAddr(); addr != "" {
		srv := &http.Server{Addr: addr, Handler: obs.Handler(a.registry), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn().Err(err).Msg("metrics listener")
			}
		}()
		defer srv.Close()
	}

	scheduler := notifications.NewCronScheduler()
	defer scheduler.Close()
	refresher := notifications.NewAutoRefresherFromConfig(store, a.cfg,
		notifications.WithScheduler(scheduler),
		notifications.WithMetrics(a.metrics),
		notifications.WithAlerter(notifications.AlerterFunc(func(n notifications.Notification) {
			fmt.Printf("[%s] %s: %s\n", n.CreatedAt.Format("15:04"), n.Title, n.Message)
		})),
	)
	a.history.OnNavigate(func(_, to string) {
		if router.IsAuthRoute(to) {
			refresher.Stop()
		}
	})

	visibility := make(chan os.Signal, 1)
	signal.Notify(visibility, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(visibility)

	refresher.Start(ctx)
	defer refresher.Stop()
	stopped := refresher.Done()
	printNotifications(store.Unread())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopped:
			return errPollingStopped
		case sig := <-visibility:
			refresher.SetVisible(sig == syscall.SIGUSR2)
		}
	}
}

func (a *app) branches(ctx context.Context) error {
	if err := a.stores.Branches.Fetch(ctx, inventory.All()); err != nil {
		return err
	}
	w := table()
	fmt.Fprintln(w, "ID\tCODE\tNAME\tPHONE\tACTIVE")
	for _, b := range a.stores.Branches.Items() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", b.ID, b.Code, b.Name, b.Phone, b.IsActive)
	}
	return w.Flush()
}

func (a *app) items(ctx context.Context, args []string) error {
	var items []inventory.Item
	if len(args) > 0 {
		found, err := a.stores.Items.Search(ctx, args[0], 0)
		if err != nil {
			return err
		}
		items = found
	} else {
		if err := a.stores.Items.Fetch(ctx, inventory.ListQuery{}, 0); err != nil {
			return err
		}
		items = a.stores.Items.Items()
	}
	w := table()
	fmt.Fprintln(w, "ID\tSKU\tNAME\tSOLO\tBULK\tQTY")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%d\n", it.ID, it.SKU, it.Name, it.SoloUnitPrice, it.BulkUnitPrice, it.TotalQuantity)
	}
	if p := a.stores.Items.Pagination(); p != nil && len(args) == 0 {
		fmt.Fprintf(w, "\npage %d of %d, %d items\n", p.CurrentPage, p.LastPage, p.Total)
	}
	return w.Flush()
}

func (a *app) customers(ctx context.Context, args []string) error {
	var kind inventory.CustomerType
	if len(args) > 0 {
		kind = inventory.CustomerType(args[0])
	}
	if err := a.stores.Customers.Fetch(ctx, inventory.All(), kind); err != nil {
		return err
	}
	w := table()
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tPHONE\tPLACE")
	for _, c := range a.stores.Customers.Items() {
		fmt.Fprintf(w, "%d\t%s %s\t%s\t%s\t%s\n", c.ID, c.FName, c.SName, c.Type, c.FPhone, c.Place)
	}
	return w.Flush()
}

func (a *app) cashbox(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	branch, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.Wrap(errUsage, "branch id must be a number")
	}
	box, err := a.stores.Cashbox.Fetch(ctx, branch)
	if err != nil {
		return err
	}
	state := "closed"
	if box.IsOpened {
		state = "open"
	}
	fmt.Printf("cashbox %s: %.0f IQD, %.2f USD\n", state, box.IQDBalance, box.USDBalance)
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	d, err := a.stores.Dashboard.Fetch(ctx)
	if err != nil {
		return err
	}
	w := table()
	u := d.Counters.Users
	fmt.Fprintf(w, "admins\t%d\naccountants\t%d\nemployees\t%d\ncustomers\t%d\n", u.Admins, u.Accountants, u.Employees, u.Customers)
	names := make([]string, 0, len(d.Branches))
	for name := range d.Branches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := d.Branches[name]
		fmt.Fprintf(w, "branch %s\t%d warehouses, capacity %.0f\n", name, b.Warehouses, b.Capacity)
	}
	if rate, ok := d.ExchangeRates["usd_iqd"]; ok {
		fmt.Fprintf(w, "USD/IQD\t%.0f\n", rate)
	}
	return w.Flush()
}

// open runs a route through the guard and prints where navigation ends up.
func (a *app) open(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	loc, err := a.history.Push(args[0])
	if err != nil {
		return err
	}
	fmt.Println(loc.String())
	if loc.Path != router.Resolve(router.ParseLocation(args[0]).Path) {
		return errors.Errorf("redirected to %s", loc.Path)
	}
	return nil
}
