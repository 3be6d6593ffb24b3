package router

import "strings"

const (
	RouteRoot        = "/"
	RouteAuthPrefix  = "/auth"
	RouteLogin       = "/auth/login"
	RouteMaintenance = "/maintenance"
	RouteNotFound    = "/404"
	RouteDashboard   = "/dashboard"

	QueryError        = "error"
	ErrorUnauthorized = "unauthorized"
)

// Routes is the client route table. A ":param" segment matches any single
// segment.
var Routes = []string{
	RouteRoot,
	RouteLogin,
	RouteDashboard,
	"/admin-section",
	"/admin-notifications",
	"/pending-update-section",
	"/accountant-section",
	"/item-section",
	"/branch-section",
	"/item-category-section",
	"/employee-section",
	"/location-section",
	"/customer-section",
	"/item-transaction-section",
	"/transaction-section",
	"/invoice/:id",
	"/reports/item-chart-report",
	"/reports/branches",
	"/reports/warehouses",
	"/reports/categories",
	"/reports/purchases",
	"/reports/sells",
	"/profile",
	"/how-to-use",
	"/logs-section",
	"/offer-section",
	"/transfer-request-section",
	"/warehouse-transfer-section",
	"/blum-section",
	"/blum-section/items",
	"/blum-section/sets",
	"/blum-section/transactions",
	"/expense-category-section",
	"/expense-section",
	RouteMaintenance,
	RouteNotFound,
}

// Resolve maps an unknown path to the not-found route.
func Resolve(path string) string {
	for _, route := range Routes {
		if matchRoute(route, path) {
			return path
		}
	}
	return RouteNotFound
}

func IsAuthRoute(path string) bool {
	return strings.HasPrefix(path, RouteAuthPrefix)
}

func matchRoute(route, path string) bool {
	if route == path {
		return true
	}
	rs := strings.Split(strings.Trim(route, "/"), "/")
	ps := strings.Split(strings.Trim(path, "/"), "/")
	if len(rs) != len(ps) {
		return false
	}
	for i := range rs {
		if strings.HasPrefix(rs[i], ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if rs[i] != ps[i] {
			return false
		}
	}
	return true
}
