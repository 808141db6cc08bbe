package auth

import "github.com/jeevaneswaran/examportal/core/profile"

// Route describes a protected view: its path and, optionally, the roles
// allowed to see it. An empty AllowedRoles set admits any signed-in role.
type Route struct {
	Path         string
	AllowedRoles []profile.Role
}

type Action int

const (
	// ActionLoading renders a neutral loading affordance. The gate never
	// redirects while the state is still loading: a premature redirect
	// based on a stale or absent role is the worst failure mode here,
	// while a stuck loading view is recoverable.
	ActionLoading Action = iota
	ActionRedirect
	ActionRender
)

// Decision is the gate's verdict for one navigation.
type Decision struct {
	Action   Action
	Location string // redirect target, when Action == ActionRedirect
	// PreserveNext marks a sign-in redirect, where the originally
	// requested location should be carried along for redirect-back.
	PreserveNext bool
}

// Gate decides render vs. redirect for protected views. It only ever
// reads State and never performs I/O.
type Gate struct {
	SignInURL          string
	PendingApprovalURL string
	RoleHomes          map[profile.Role]string
}

func (g Gate) Check(st State, route Route) Decision {
	switch st.Status {
	case StatusBootstrapping, StatusResolving:
		return Decision{Action: ActionLoading}
	case StatusAnonymous:
		return Decision{Action: ActionRedirect, Location: g.SignInURL, PreserveNext: true}
	}

	if st.Identity == nil {
		return Decision{Action: ActionRedirect, Location: g.SignInURL, PreserveNext: true}
	}

	if len(route.AllowedRoles) > 0 && !roleAllowed(st.Role, route.AllowedRoles) {
		// an unknown role here means the state is still transitioning;
		// treat it as loading rather than bouncing the user around
		if st.Role == "" {
			return Decision{Action: ActionLoading}
		}
		home, ok := g.RoleHomes[st.Role]
		if !ok {
			return Decision{Action: ActionLoading}
		}
		// send them to their own home instead of an error page
		return Decision{Action: ActionRedirect, Location: home}
	}

	// unapproved teachers only get the pending-approval view; the check
	// excludes that view itself so it cannot redirect to itself
	if st.Role == profile.RoleTeacher && !st.IsApproved && route.Path != g.PendingApprovalURL {
		return Decision{Action: ActionRedirect, Location: g.PendingApprovalURL}
	}

	return Decision{Action: ActionRender}
}

func roleAllowed(role profile.Role, allowed []profile.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
