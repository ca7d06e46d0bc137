package middleware

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbda/trafficboard/internal/api"
)

const (
	// AccessCookieName carries the signed access flag set after PIN entry.
	AccessCookieName = "tb_access"

	// PinPagePath is where unauthenticated dashboard requests are sent.
	PinPagePath = "/pin"
)

// AccessClaims are the claims carried by the access cookie. The gate is a
// deterrent for a shared internal tool, not a per-user identity system,
// so the registered claims are all it needs.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// PinAuthConfig holds access-gate configuration
type PinAuthConfig struct {
	// Enabled determines if the gate is enforced
	Enabled bool

	// PINHash is the bcrypt hash of the shared access PIN
	PINHash string

	// CookieSecret is the secret key for signing the access cookie
	CookieSecret string

	// ExpiryHours is the cookie lifetime in hours
	ExpiryHours int

	// SkipPaths are paths that don't require the access cookie
	SkipPaths []string
}

// PinAuthMiddleware enforces the shared-PIN access gate. Requests without
// a valid signed cookie are redirected to the PIN page (browser surface)
// or rejected with 401 (API surface) before reaching any business logic.
type PinAuthMiddleware struct {
	config  *PinAuthConfig
	mu      sync.RWMutex
	skipMap map[string]bool
}

// NewPinAuthMiddleware creates a new access-gate middleware
func NewPinAuthMiddleware(config *PinAuthConfig) *PinAuthMiddleware {
	m := &PinAuthMiddleware{
		config:  config,
		skipMap: make(map[string]bool),
	}

	// Build skip paths map for O(1) lookup
	for _, path := range config.SkipPaths {
		m.skipMap[path] = true
	}

	return m
}

// HashPIN hashes the shared PIN using bcrypt
func HashPIN(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPIN checks a submitted PIN against the configured hash
func (m *PinAuthMiddleware) VerifyPIN(pin string) bool {
	m.mu.RLock()
	hash := m.config.PINHash
	m.mu.RUnlock()

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// GenerateToken signs a fresh access token for the cookie
func (m *PinAuthMiddleware) GenerateToken() (string, error) {
	m.mu.RLock()
	secret := m.config.CookieSecret
	expiryHours := m.config.ExpiryHours
	m.mu.RUnlock()

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expiryHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "trafficboard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken validates an access token and returns its claims
func (m *PinAuthMiddleware) ValidateToken(tokenString string) (*AccessClaims, error) {
	m.mu.RLock()
	secret := m.config.CookieSecret
	m.mu.RUnlock()

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// AccessCookie builds the cookie holding a signed token
func (m *PinAuthMiddleware) AccessCookie(token string) *http.Cookie {
	m.mu.RLock()
	expiryHours := m.config.ExpiryHours
	m.mu.RUnlock()

	return &http.Cookie{
		Name:     AccessCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   expiryHours * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Wrap wraps an http.Handler with the access gate
func (m *PinAuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		enabled := m.config.Enabled
		m.mu.RUnlock()

		if !enabled {
			next.ServeHTTP(w, r)
			return
		}

		if m.shouldSkipAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AccessCookieName)
		if err == nil {
			if _, err := m.ValidateToken(cookie.Value); err == nil {
				next.ServeHTTP(w, r)
				return
			}
			log.Printf("PinAuthMiddleware: Invalid access cookie from %s: %v", r.RemoteAddr, err)
		}

		m.reject(w, r)
	})
}

// reject sends an unauthenticated request to the PIN page, or a 401 for
// the API surface where a redirect would only confuse JSON clients.
func (m *PinAuthMiddleware) reject(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		api.RespondError(w, http.StatusUnauthorized, "PIN required")
		return
	}

	target := PinPagePath + "?redirect=" + url.QueryEscape(r.URL.Path)
	http.Redirect(w, r, target, http.StatusFound)
}

// shouldSkipAuth checks if the path should skip the gate
func (m *PinAuthMiddleware) shouldSkipAuth(path string) bool {
	// Check exact match
	if m.skipMap[path] {
		return true
	}

	// Check prefix matches (for paths like /auth/*)
	for skipPath := range m.skipMap {
		if strings.HasSuffix(skipPath, "*") {
			prefix := strings.TrimSuffix(skipPath, "*")
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}

	return false
}

// SetEnabled enables or disables the gate
func (m *PinAuthMiddleware) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Enabled = enabled
}

// IsEnabled returns whether the gate is enforced
func (m *PinAuthMiddleware) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Enabled
}
