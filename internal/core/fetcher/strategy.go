package fetcher

// AuthMode is how a video session is established
type AuthMode int

const (
	// AuthDefault is the backend's normal session
	AuthDefault AuthMode = iota
	// AuthCachedCredential reuses a cached signed-in style session
	AuthCachedCredential
	// AuthAnonymousToken uses an anonymous proof-of-origin style session
	AuthAnonymousToken
)

func (m AuthMode) String() string {
	switch m {
	case AuthCachedCredential:
		return "cached-credential"
	case AuthAnonymousToken:
		return "anonymous-token"
	default:
		return "default"
	}
}

// Strategy is one attempt in the retry plan
type Strategy struct {
	Name string
	Mode AuthMode
}

// Strategies builds the retry plan for a total attempt budget: the first attempt uses the default
// session, the first retry the cached-credential mode, every later retry the anonymous-token mode.
// The two retry modes fail independently for different kinds of restricted content.
func Strategies(attempts int) []Strategy {
	if attempts < 1 {
		attempts = 1
	}
	plan := make([]Strategy, 0, attempts)
	for i := 0; i < attempts; i++ {
		switch i {
		case 0:
			plan = append(plan, Strategy{Name: "initial", Mode: AuthDefault})
		case 1:
			plan = append(plan, Strategy{Name: "retry with cached credentials", Mode: AuthCachedCredential})
		default:
			plan = append(plan, Strategy{Name: "retry with anonymous token", Mode: AuthAnonymousToken})
		}
	}
	return plan
}
