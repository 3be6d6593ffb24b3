package router

import (
	"net/url"
	"strings"
)

// AuthState is what the guard needs to know about the session.
type AuthState interface {
	Token() string
	UserType() UserType
}

// Location is a navigation target.
type Location struct {
	Path  string
	Query url.Values
}

func ParseLocation(raw string) Location {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return Location{Path: RouteRoot}
	}
	loc := Location{Path: u.Path}
	if q := u.Query(); len(q) > 0 {
		loc.Query = q
	}
	return loc
}

func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Decision is the guard verdict. Redirect is nil when navigation proceeds.
type Decision struct {
	Redirect *Location
}

func (d Decision) Allowed() bool { return d.Redirect == nil }

func redirect(path string, query url.Values) Decision {
	return Decision{Redirect: &Location{Path: path, Query: query}}
}

var allow = Decision{}

type Guard struct {
	auth AuthState
}

func NewGuard(auth AuthState) *Guard {
	return &Guard{auth: auth}
}

// Check decides whether navigation to path may proceed.
func (g *Guard) Check(path string) Decision {
	if path == RouteMaintenance {
		return allow
	}

	authenticated := g.auth.Token() != ""
	if !IsAuthRoute(path) && !strings.HasPrefix(path, RouteMaintenance) && !authenticated {
		return redirect(RouteLogin, nil)
	}
	if strings.HasPrefix(path, RouteLogin) && authenticated {
		return redirect(RouteRoot, nil)
	}

	userType := g.auth.UserType()
	if !authenticated || userType == "" {
		return allow
	}
	switch {
	case path == RouteRoot, path == "", path == RouteNotFound, IsAuthRoute(path):
		return allow
	case !HasRoutePermission(userType, path):
		return redirect(RouteRoot, url.Values{QueryError: {ErrorUnauthorized}})
	}
	return allow
}
