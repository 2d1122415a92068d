package flow

import (
	"context"
	"time"

	"github.com/alineuh/lnurl-project/internal/node"
	"github.com/alineuh/lnurl-project/internal/token"
)

// AuthTag is the LUD-04 protocol tag.
const AuthTag = "login"

// Auth actions and the events a successful callback reports for them.
const (
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionLink     = "link"
	ActionAuth     = "auth"
)

var authEvents = map[string]string{
	ActionRegister: "REGISTERED",
	ActionLogin:    "LOGGEDIN",
	ActionLink:     "LINKED",
	ActionAuth:     "AUTHED",
}

// ValidAuthAction reports whether action is one of the four LUD-04
// actions.
func ValidAuthAction(action string) bool {
	_, ok := authEvents[action]
	return ok
}

// AuthChallenge is the offer side of the auth flow. The wallet signs the
// k1 with its identity key and presents the signature at the callback.
type AuthChallenge struct {
	Tag    string `json:"tag"`
	K1     string `json:"k1"`
	Action string `json:"action"`
}

// AuthResult reports a completed authentication.
type AuthResult struct {
	Event  string
	Pubkey string
}

// AuthConfig carries the auth flow policy.
type AuthConfig struct {
	// Action is what a successful signature accomplishes: register,
	// login, link, or auth. The reported event derives from it.
	Action      string
	NodeTimeout time.Duration
}

// Auth is the LUD-04 state machine.
type Auth struct {
	tokens token.Redeemer
	node   node.Client
	cfg    AuthConfig
}

func NewAuth(tokens token.Redeemer, nc node.Client, cfg AuthConfig) *Auth {
	if !ValidAuthAction(cfg.Action) {
		cfg.Action = ActionLogin
	}
	return &Auth{tokens: tokens, node: nc, cfg: cfg}
}

// Offer mints a fresh k1 challenge for the wallet to sign.
func (f *Auth) Offer() (AuthChallenge, error) {
	k1, err := f.tokens.Issue()
	if err != nil {
		return AuthChallenge{}, err
	}
	return AuthChallenge{Tag: AuthTag, K1: k1, Action: f.cfg.Action}, nil
}

// Callback redeems k1 and verifies the wallet's signature over it. A
// signature the node rejects is an authentication failure, not an
// upstream one, and the token stays consumed either way.
func (f *Auth) Callback(ctx context.Context, k1, sig, key string) (AuthResult, error) {
	if err := f.tokens.Redeem(k1); err != nil {
		return AuthResult{}, invalidToken()
	}
	if sig == "" {
		return AuthResult{}, invalidInput("missing sig")
	}
	if !validPubkey(key) {
		return AuthResult{}, invalidInput("invalid key")
	}

	callCtx, cancel := context.WithTimeout(ctx, f.cfg.NodeTimeout)
	defer cancel()

	verified, err := f.node.CheckMessage(callCtx, k1, sig, key)
	if err != nil {
		return AuthResult{}, upstream(err)
	}
	if !verified {
		return AuthResult{}, unauthorized()
	}
	return AuthResult{Event: authEvents[f.cfg.Action], Pubkey: key}, nil
}
