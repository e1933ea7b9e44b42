package session

// State is the observable session state.
type State int

const (
	// StatePending means Restore has not settled; the session is neither
	// authenticated nor anonymous.
	StatePending State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Route names a navigation target.
type Route string

const (
	RouteNone      Route = ""
	RouteLogin     Route = "login"
	RouteRegister  Route = "register"
	RouteDashboard Route = "dashboard"
)

// Area classifies a view for the guard.
type Area int

const (
	// AreaProtected views need an authenticated session.
	AreaProtected Area = iota
	// AreaPublicOnly views (login, register) are for anonymous users only.
	AreaPublicOnly
)

// Verdict is the kind of guard decision.
type Verdict int

const (
	// Wait suspends rendering until Restore settles.
	Wait Verdict = iota
	Allow
	Redirect
)

// Decision is the guard's answer for a view.
type Decision struct {
	Verdict Verdict
	// Route is set when Verdict is Redirect.
	Route Route
}

// Guard decides whether a view in area may render under state. Redirects
// are derived from state alone, never from an individual request.
func Guard(state State, area Area) Decision {
	switch state {
	case StateAuthenticated:
		if area == AreaPublicOnly {
			return Decision{Verdict: Redirect, Route: RouteDashboard}
		}
		return Decision{Verdict: Allow}
	case StateAnonymous:
		if area == AreaProtected {
			return Decision{Verdict: Redirect, Route: RouteLogin}
		}
		return Decision{Verdict: Allow}
	}
	return Decision{Verdict: Wait}
}

// AreaOf returns the area a route belongs to.
func AreaOf(r Route) Area {
	switch r {
	case RouteLogin, RouteRegister:
		return AreaPublicOnly
	}
	return AreaProtected
}
