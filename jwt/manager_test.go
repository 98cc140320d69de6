package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("secret-secret-secret-secret-1234")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newHSManager(t testing.TB, clock *fixedClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Issuer:        "goauthz",
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{AccessTTL: 0, SigningMethod: MethodHS256, PrivateKey: testSecret},
		{AccessTTL: time.Minute, SigningMethod: MethodHS256},
		{AccessTTL: time.Minute, SigningMethod: "rs256", PrivateKey: testSecret},
		{AccessTTL: time.Minute, SigningMethod: MethodEd25519},
		{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newHSManager(t, clock)

	token, err := m.Issue(User{ID: 5, Role: "USER"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.User == nil || claims.User.ID != 5 || claims.User.Role != "USER" {
		t.Fatalf("unexpected user claim: %+v", claims.User)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestVerifyClassifiesExpired(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newHSManager(t, clock)

	token, err := m.Issue(User{ID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.Set(clock.Now().Add(2 * time.Hour))

	if _, err := m.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	claims, err := m.Decode(token)
	if err != nil {
		t.Fatalf("decode expired token: %v", err)
	}
	if claims.User == nil || claims.User.ID != 1 {
		t.Fatalf("unexpected decoded user: %+v", claims.User)
	}
}

func TestVerifyClassifiesMalformed(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	m := newHSManager(t, clock)

	other, err := NewManager(Config{AccessTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("another-secret-another-secret-00"), Issuer: "goauthz"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	foreign, err := other.Issue(User{ID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for _, token := range []string{"", "not.a.jwt", "abc", foreign} {
		if _, err := m.Verify(token); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", token, err)
		}
		if _, err := m.Decode(token); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected decode ErrMalformed for %q, got %v", token, err)
		}
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{User: &User{ID: 1}, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong algorithm to be malformed, got %v", err)
	}
}

func TestVerifyIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "goauthz",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Issue(User{ID: 3})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("expected valid token to verify: %v", err)
	}

	sign := func(c Claims) string {
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	now := time.Now()

	badIssuer := sign(Claims{User: &User{ID: 3}, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
	}})
	if _, err := m.Verify(badIssuer); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong issuer to be malformed, got %v", err)
	}
	if _, err := m.Decode(badIssuer); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected decode to pin issuer, got %v", err)
	}

	badAudience := sign(Claims{User: &User{ID: 3}, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goauthz",
		Audience:  gjwt.ClaimStrings{"other-api"},
		ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
	}})
	if _, err := m.Verify(badAudience); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong audience to be malformed, got %v", err)
	}

	withinLeeway := sign(Claims{User: &User{ID: 3}, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goauthz",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(now.Add(-15 * time.Second)),
	}})
	if _, err := m.Verify(withinLeeway); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := sign(Claims{User: &User{ID: 3}, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goauthz",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(now.Add(-2 * time.Minute)),
	}})
	if _, err := m.Verify(expired); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{User: &User{ID: 1}, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected unknown kid to be malformed, got %v", err)
	}

	good, err := m.Issue(User{ID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}
}

func TestReissueKeepsUserAndExtendsExpiry(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: start}
	m := newHSManager(t, clock)

	token, err := m.Issue(User{ID: 9, Role: "MODERATOR"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.Set(start.Add(72 * time.Hour))

	fresh, err := m.Reissue(token)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	claims, err := m.Verify(fresh)
	if err != nil {
		t.Fatalf("verify reissued: %v", err)
	}
	if claims.User.ID != 9 || claims.User.Role != "MODERATOR" {
		t.Fatalf("reissued token changed user payload: %+v", claims.User)
	}
	if !claims.ExpiresAt.Time.Equal(clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt.Time)
	}
}

func TestReissueRequiresUserClaim(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	m := newHSManager(t, clock)

	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goauthz",
		ExpiresAt: gjwt.NewNumericDate(clock.Now().Add(-time.Hour)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Reissue(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for missing user claim, got %v", err)
	}
}

func TestConcurrentReissueProducesVerifiableTokens(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: start}
	m := newHSManager(t, clock)

	token, err := m.Issue(User{ID: 2, Role: "USER"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.Set(start.Add(48 * time.Hour))

	const workers = 8
	out := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i], errs[i] = m.Reissue(token)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d reissue: %v", i, errs[i])
		}
		if _, err := m.Verify(out[i]); err != nil {
			t.Fatalf("worker %d token does not verify: %v", i, err)
		}
	}
}

func BenchmarkVerify(b *testing.B) {
	clock := &fixedClock{now: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	m := newHSManager(b, clock)
	token, err := m.Issue(User{ID: 42, Role: "USER"})
	if err != nil {
		b.Fatalf("issue: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Verify(token); err != nil {
			b.Fatalf("verify: %v", err)
		}
	}
}
