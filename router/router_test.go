package router_test

import (
	"testing"

	"github.com/bazrganidrwst/warehouse-client/router"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	token    string
	userType router.UserType
}

func (f *fakeAuth) Token() string             { return f.token }
func (f *fakeAuth) UserType() router.UserType { return f.userType }

func TestGuardCheck(t *testing.T) {
	tests := []struct {
		name     string
		auth     fakeAuth
		path     string
		redirect string
	}{
		{name: "maintenance without session", path: router.RouteMaintenance},
		{name: "protected without session", path: "/item-section", redirect: router.RouteLogin},
		{name: "login without session", path: router.RouteLogin},
		{name: "login with session", auth: fakeAuth{token: "t"}, path: router.RouteLogin, redirect: router.RouteRoot},
		{name: "root for employee", auth: fakeAuth{token: "t", userType: router.UserEmployee}, path: router.RouteRoot},
		{name: "employee denied admin section", auth: fakeAuth{token: "t", userType: router.UserEmployee}, path: "/admin-section", redirect: "/?error=unauthorized"},
		{name: "admin allowed admin section", auth: fakeAuth{token: "t", userType: router.UserAdmin}, path: "/admin-section"},
		{name: "employee reports denied", auth: fakeAuth{token: "t", userType: router.UserEmployee}, path: "/reports/branches", redirect: "/?error=unauthorized"},
		{name: "admin reports allowed", auth: fakeAuth{token: "t", userType: router.UserAdmin}, path: "/reports/sells"},
		{name: "expense category via expense section", auth: fakeAuth{token: "t", userType: router.UserEmployee}, path: "/expense-category-section"},
		{name: "invoice via transaction section", auth: fakeAuth{token: "t", userType: router.UserCustomer}, path: "/invoice/42"},
		{name: "accountant has nothing", auth: fakeAuth{token: "t", userType: router.UserAccountant}, path: "/item-section", redirect: "/?error=unauthorized"},
		{name: "unknown user type not checked", auth: fakeAuth{token: "t"}, path: "/admin-section"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := tt.auth
			d := router.NewGuard(&auth).Check(tt.path)
			if tt.redirect == "" {
				require.True(t, d.Allowed(), "unexpected redirect to %v", d.Redirect)
				return
			}
			require.False(t, d.Allowed())
			require.Equal(t, tt.redirect, d.Redirect.String())
		})
	}
}

func TestHistoryPush(t *testing.T) {
	auth := &fakeAuth{token: "t", userType: router.UserEmployee}
	h := router.NewHistory(router.NewGuard(auth), router.RouteRoot)

	loc, err := h.Push("/admin-section")
	require.NoError(t, err)
	require.Equal(t, router.RouteRoot, loc.Path)
	require.Equal(t, router.ErrorUnauthorized, loc.Query.Get(router.QueryError))

	auth.userType = router.UserAdmin
	loc, err = h.Push("/admin-section")
	require.NoError(t, err)
	require.Equal(t, "/admin-section", loc.Path)

	loc, err = h.Push("/no-such-page")
	require.NoError(t, err)
	require.Equal(t, router.RouteNotFound, loc.Path)
}

func TestHistoryHooksSeeAuthNavigation(t *testing.T) {
	auth := &fakeAuth{token: "t", userType: router.UserAdmin}
	h := router.NewHistory(router.NewGuard(auth), "/item-section")

	var entered []string
	h.OnNavigate(func(from, to string) {
		if router.IsAuthRoute(to) && !router.IsAuthRoute(from) {
			entered = append(entered, from)
		}
	})

	h.Replace(router.RouteLogin)
	require.Equal(t, router.RouteLogin, h.CurrentPath())
	require.Equal(t, []string{"/item-section"}, entered)
}

func TestPermissions(t *testing.T) {
	userType := router.UserEmployee
	var denied string
	p := router.NewPermissions(func() router.UserType { return userType }, func(msg string) { denied = msg })

	require.True(t, p.Has(router.SectionItem))
	require.False(t, p.CanAccessReports())
	require.False(t, p.CanManageUsers())
	require.False(t, p.CanManageFinances())
	require.True(t, p.HasAny(router.SectionAdmin, router.SectionProfile))
	require.False(t, p.HasAll(router.SectionAdmin, router.SectionProfile))

	require.False(t, p.Require(router.SectionLogs, ""))
	require.Equal(t, "You don't have permission to access logs-section", denied)

	userType = router.UserAccountant
	require.True(t, p.CanManageFinances())
	require.False(t, p.CanManageUsers())

	userType = router.UserAdmin
	require.True(t, p.CanManageUsers())
	require.True(t, p.CanAccessReports())
	require.True(t, p.Require(router.SectionLogs, "custom"))
}
