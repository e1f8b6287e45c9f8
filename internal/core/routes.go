package core

// Routes understood by the navigator.
const (
	RouteLogin     = "/"
	RouteBills     = "#employee/bills"
	RouteNewBill   = "#employee/bill/new"
	RouteDashboard = "#admin/dashboard"
)
