package session

// Decision is the outcome of evaluating a Guard.
type Decision int

const (
	// Pending renders a loading placeholder.
	Pending Decision = iota
	// Authorized renders the guarded content.
	Authorized
	// Redirecting sends the user to the login surface.
	Redirecting
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "PENDING"
	case Authorized:
		return "AUTHORIZED"
	case Redirecting:
		return "REDIRECTING"
	default:
		return "UNKNOWN"
	}
}

// DefaultLoginPath is where unauthenticated users are sent.
const DefaultLoginPath = "/login"

// Guard gates a surface on the session state.
type Guard struct {
	LoginPath string
}

// NewGuard creates a Guard redirecting to loginPath, or DefaultLoginPath when empty.
func NewGuard(loginPath string) Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return Guard{LoginPath: loginPath}
}

// Evaluate returns the decision for s and, when redirecting, the target path.
func (g Guard) Evaluate(s State) (Decision, string) {
	switch {
	case s.Loading:
		return Pending, ""
	case s.User == nil:
		return Redirecting, g.LoginPath
	default:
		return Authorized, ""
	}
}
