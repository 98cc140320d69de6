package flows

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthz/jwt"
)

// VerifyState is the terminal state reached by RunVerify.
type VerifyState int

const (
	VerifyStateRejected VerifyState = iota
	VerifyStateVerified
	VerifyStateRefreshed
)

// VerifyFailureKind classifies rejections for root-level mapping.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	// VerifyFailureMissing: no Authorization header.
	VerifyFailureMissing
	// VerifyFailureShape: bad scheme, bad part count, or token outside the grammar.
	VerifyFailureShape
	// VerifyFailureInvalid: the codec rejected the token as malformed.
	VerifyFailureInvalid
	// VerifyFailureNoUser: authentic token without an embedded identity.
	VerifyFailureNoUser
	// VerifyFailureExpired: expired beyond the grace window.
	VerifyFailureExpired
)

// VerifyResult carries either the verified identity or a classified failure.
// Err is set only for unclassified faults and must be propagated as-is.
type VerifyResult struct {
	State    VerifyState
	Failure  VerifyFailureKind
	User     *jwt.User
	NewToken string
	// DaysUntilExpiry is set on the refresh path.
	DaysUntilExpiry int64
	Err             error
}

// VerifyDeps captures the codec and clock used by RunVerify.
type VerifyDeps struct {
	Verify    func(string) (*jwt.Claims, error)
	Decode    func(string) (*jwt.Claims, error)
	Reissue   func(string) (string, error)
	Now       func() time.Time
	GraceDays int
	// Refresh disables the grace window entirely when false.
	Refresh bool
}

const (
	authHeaderParts = 2
	bearerScheme    = "Bearer"
)

var tokenGrammar = regexp.MustCompile(`^[A-Za-z0-9\-._~+/]+=*$`)

// SplitBearer extracts the token from an Authorization header value.
// The value must be exactly "<scheme> <token>" with a case-insensitive
// Bearer scheme and a token matching the bearer token grammar.
func SplitBearer(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != authHeaderParts {
		return "", false
	}
	if !strings.EqualFold(parts[0], bearerScheme) {
		return "", false
	}
	if !tokenGrammar.MatchString(parts[1]) {
		return "", false
	}
	return parts[1], true
}

// DaysUntil returns the whole number of days from now until exp, truncated
// toward zero. A token that expired 7 days and 23 hours ago yields -7.
func DaysUntil(exp, now time.Time) int64 {
	return int64(exp.Sub(now) / (24 * time.Hour))
}

// RunVerify executes the bearer-token state machine:
// Unauthenticated -> TokenPresent -> Verified | PendingRefresh | Rejected.
func RunVerify(header string, deps VerifyDeps) VerifyResult {
	if header == "" {
		return VerifyResult{Failure: VerifyFailureMissing}
	}

	token, ok := SplitBearer(header)
	if !ok {
		return VerifyResult{Failure: VerifyFailureShape}
	}

	claims, err := deps.Verify(token)
	switch {
	case err == nil:
		if claims.User == nil {
			return VerifyResult{Failure: VerifyFailureNoUser}
		}
		return VerifyResult{State: VerifyStateVerified, User: claims.User}
	case errors.Is(err, jwt.ErrMalformed):
		return VerifyResult{Failure: VerifyFailureInvalid}
	case errors.Is(err, jwt.ErrExpired):
		if !deps.Refresh {
			return VerifyResult{Failure: VerifyFailureExpired}
		}
		return runRefresh(token, deps)
	default:
		return VerifyResult{Err: err}
	}
}

func runRefresh(token string, deps VerifyDeps) VerifyResult {
	claims, err := deps.Decode(token)
	if err != nil {
		if errors.Is(err, jwt.ErrMalformed) {
			return VerifyResult{Failure: VerifyFailureInvalid}
		}
		return VerifyResult{Err: err}
	}
	if claims.ExpiresAt == nil {
		return VerifyResult{Failure: VerifyFailureInvalid}
	}

	days := DaysUntil(claims.ExpiresAt.Time, deps.Now())
	if days < -int64(deps.GraceDays) {
		return VerifyResult{Failure: VerifyFailureExpired, DaysUntilExpiry: days}
	}
	if claims.User == nil {
		return VerifyResult{Failure: VerifyFailureNoUser, DaysUntilExpiry: days}
	}

	fresh, err := deps.Reissue(token)
	if err != nil {
		if errors.Is(err, jwt.ErrMalformed) {
			return VerifyResult{Failure: VerifyFailureInvalid}
		}
		return VerifyResult{Err: err}
	}

	return VerifyResult{
		State:           VerifyStateRefreshed,
		User:            claims.User,
		NewToken:        fresh,
		DaysUntilExpiry: days,
	}
}
