package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"bondswap/observability/logging"
)

const authClockSkew = 2 * time.Minute

// authenticator checks HMAC-signed bearer tokens. A blank secret disables it.
type authenticator struct {
	secret []byte
	issuer string
	logger *slog.Logger
}

func newAuthenticator(secret, issuer string, logger *slog.Logger) *authenticator {
	return &authenticator{
		secret: []byte(strings.TrimSpace(secret)),
		issuer: strings.TrimSpace(issuer),
		logger: logger,
	}
}

func (a *authenticator) enabled() bool { return a != nil && len(a.secret) > 0 }

func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() {
			next.ServeHTTP(w, r)
			return
		}
		raw := bearer(r.Header.Get("Authorization"))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		subject, err := a.verify(raw)
		if err != nil {
			a.logger.Warn("request token rejected",
				"remote", remoteHost(r),
				logging.MaskField("token", raw),
				"error", err.Error())
			writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}
		if subject != "" {
			r = r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject))
		}
		next.ServeHTTP(w, r)
	})
}

// verify checks the token and returns its subject, which may be empty.
func (a *authenticator) verify(raw string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithLeeway(authClockSkew), jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return a.secret, nil }, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token invalid")
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(subject), nil
}

type subjectKey struct{}

// tokenSubject returns the verified bearer subject, if any.
func tokenSubject(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}

func bearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// rateLimiter keeps one token bucket per client address. Forwarding headers
// are honoured only when the peer is a trusted proxy.
type rateLimiter struct {
	mu       sync.Mutex
	perSec   rate.Limit
	burst    int
	idle     time.Duration
	trusted  []*net.IPNet
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const visitorIdleTimeout = 5 * time.Minute

func newRateLimiter(perMinute float64, burst int, trustedProxies []string) (*rateLimiter, error) {
	if perMinute <= 0 {
		return nil, nil
	}
	if burst <= 0 {
		burst = 1
	}
	trusted, err := parseTrustedProxies(trustedProxies)
	if err != nil {
		return nil, err
	}
	return &rateLimiter{
		perSec:   rate.Limit(perMinute / 60),
		burst:    burst,
		idle:     visitorIdleTimeout,
		trusted:  trusted,
		visitors: make(map[string]*visitor),
	}, nil
}

// parseTrustedProxies accepts bare addresses and CIDR ranges.
func parseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	out := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid address", entry)
			}
			bits := 8 * net.IPv6len
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 8*net.IPv4len
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		out = append(out, network)
	}
	return out, nil
}

func (l *rateLimiter) limiter(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[id]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSec, l.burst)}
		l.visitors[id] = v
		go l.cleanup(id)
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup forgets a visitor once it has been idle for a full period.
func (l *rateLimiter) cleanup(id string) {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		v, ok := l.visitors[id]
		if !ok || time.Since(v.lastSeen) >= l.idle {
			delete(l.visitors, id)
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
	}
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l != nil && !l.limiter(l.clientID(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New(http.StatusText(http.StatusTooManyRequests)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *rateLimiter) isTrusted(ip net.IP) bool {
	for _, network := range l.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientID is the peer address unless the peer is a trusted proxy, in which
// case it is the right-most X-Forwarded-For hop that is not itself trusted.
func (l *rateLimiter) clientID(r *http.Request) string {
	peer := remoteHost(r)
	ip := net.ParseIP(peer)
	if ip == nil || !l.isTrusted(ip) {
		return peer
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := net.ParseIP(strings.TrimSpace(hops[i]))
		if hop == nil {
			break
		}
		if !l.isTrusted(hop) {
			return hop.String()
		}
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
