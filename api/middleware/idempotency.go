package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/marketplace-checkout/api/responses"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	pkgredis "github.com/angelmondragon/marketplace-checkout/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	criticalIdempotencyTTL = 7 * 24 * time.Hour
	inFlightTTL            = time.Minute
)

// idempotentRoute names a mutating endpoint by method and path glob. Critical
// routes keep their records for a week; the rest use the configured TTL.
type idempotentRoute struct {
	method   string
	glob     string
	critical bool
}

var idempotentRoutes = []idempotentRoute{
	{method: http.MethodPost, glob: "/api/v1/checkout/sessions"},
	{method: http.MethodPost, glob: "/api/v1/checkout/sessions/*/confirm", critical: true},
	{method: http.MethodPost, glob: "/api/v1/orders/*/status"},
}

var routeParam = regexp.MustCompile(`\{[^/]+\}`)

// storedResponse is what Redis holds under an idempotency key. InFlight marks
// a claim taken by a request that has not finished yet.
type storedResponse struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

type idempotencyGuard struct {
	store      pkgredis.IdempotencyStore
	defaultTTL time.Duration
	logg       *logger.Logger
}

// Idempotency replays the stored response for a repeated Idempotency-Key,
// rejects a reused key whose request body differs and rejects a retry that
// races the original. 5xx responses are not stored so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, defaultTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	guard := &idempotencyGuard{store: store, defaultTTL: defaultTTL, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r), defaultTTL)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			guard.serve(w, r, next, ttl)
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, ttl time.Duration) {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if clientKey == "" {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	hash := hashBody(body)
	key := g.store.IdempotencyKey(r.Method+"|"+r.URL.Path, clientKey)

	stored, err := g.lookup(ctx, key)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, err)
		return
	}
	if stored != nil {
		g.answerRepeat(w, r, stored, hash)
		return
	}

	claimed, err := g.claim(ctx, key, hash)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, err)
		return
	}
	if !claimed {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is in progress"))
		return
	}

	capture := &responseCapture{statusRecorder: statusRecorder{ResponseWriter: w}}
	next.ServeHTTP(capture, r)

	if capture.statusCode() >= http.StatusInternalServerError {
		g.release(ctx, key)
		return
	}
	g.save(ctx, key, ttl, storedResponse{
		RequestHash: hash,
		Status:      capture.statusCode(),
		ContentType: capture.Header().Get("Content-Type"),
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
	})
}

func (g *idempotencyGuard) answerRepeat(w http.ResponseWriter, r *http.Request, stored *storedResponse, hash string) {
	switch {
	case stored.RequestHash != hash:
		responses.WriteError(r.Context(), g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.InFlight:
		responses.WriteError(r.Context(), g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is in progress"))
	default:
		replay(w, stored)
	}
}

func (g *idempotencyGuard) lookup(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func (g *idempotencyGuard) claim(ctx context.Context, key, hash string) (bool, error) {
	payload, err := json.Marshal(storedResponse{InFlight: true, RequestHash: hash})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency claim")
	}
	claimed, err := g.store.SetNX(ctx, key, string(payload), inFlightTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	return claimed, nil
}

func (g *idempotencyGuard) save(ctx context.Context, key string, ttl time.Duration, stored storedResponse) {
	payload, err := json.Marshal(stored)
	if err != nil {
		g.logError(ctx, "encode idempotency record", err)
		g.release(ctx, key)
		return
	}
	if err := g.store.Set(ctx, key, string(payload), ttl); err != nil {
		g.logError(ctx, "persist idempotency record", err)
	}
}

func (g *idempotencyGuard) release(ctx context.Context, key string) {
	if err := g.store.Del(ctx, key); err != nil {
		g.logError(ctx, "release idempotency claim", err)
	}
}

func (g *idempotencyGuard) logError(ctx context.Context, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	body, err := base64.StdEncoding.DecodeString(stored.Body)
	if err != nil {
		body = nil
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(body)
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// routePattern prefers the matched chi pattern. Mid-routing the pattern still
// ends in a wildcard, so the raw path is used instead.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.Contains(pattern, "*") {
			return strings.TrimSuffix(routeParam.ReplaceAllString(pattern, "*"), "/")
		}
	}
	if r.URL.Path == "/" {
		return r.URL.Path
	}
	return strings.TrimSuffix(r.URL.Path, "/")
}

func routeTTL(method, pattern string, defaultTTL time.Duration) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, route := range idempotentRoutes {
		if route.method != method {
			continue
		}
		if matched, _ := path.Match(route.glob, pattern); !matched {
			continue
		}
		if route.critical {
			return criticalIdempotencyTTL, true
		}
		return defaultTTL, true
	}
	return 0, false
}

type responseCapture struct {
	statusRecorder
	body bytes.Buffer
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.statusRecorder.Write(b)
}
