package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// defaultCSP is the production Content-Security-Policy. img-src allows
// upload.wikimedia.org so engine images resolved through the image
// lookup can be embedded by dashboard clients.
var defaultCSP = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline'",
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' data: https://upload.wikimedia.org",
	"font-src 'self' data:",
	"connect-src 'self' ws: wss:",
	"frame-ancestors 'none'",
	"base-uri 'self'",
	"form-action 'self'",
	"upgrade-insecure-requests",
}, "; ")

// defaultPermissionsPolicy turns off every browser capability the
// dashboard has no use for.
var defaultPermissionsPolicy = strings.Join([]string{
	"accelerometer=()",
	"camera=()",
	"geolocation=()",
	"gyroscope=()",
	"magnetometer=()",
	"microphone=()",
	"payment=()",
	"usb=()",
	"interest-cohort=()",
}, ", ")

// SecureHeaders configures the browser security headers. Zero-value
// fields omit their header; DevMode drops the CSP and permissions
// policy entirely so a dashboard dev server can load freely.
type SecureHeaders struct {
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	// ContentSecurityPolicy overrides the built-in policy when set.
	ContentSecurityPolicy string

	XFrameOptions       string
	XContentTypeOptions string
	XSSProtection       string
	ReferrerPolicy      string
	PermissionsPolicy   string

	DevMode bool
}

// DefaultSecureHeaders returns the production header set. HSTS runs at
// one year without preload; the dashboard lives on internal hosts that
// never enter the browser preload lists.
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		HSTSMaxAge:          31536000,
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		XSSProtection:       "0", // legacy auditor, explicitly off
		ReferrerPolicy:      "strict-origin-when-cross-origin",
	}
}

// Handler compiles the header set once and returns the middleware.
// Fields changed after Handler is called have no effect.
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	static, hsts := sh.compile()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrade responses carry no security headers.
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		for _, kv := range static {
			h.Set(kv[0], kv[1])
		}
		// Browsers only honor HSTS over TLS; DevMode keeps it visible
		// on plain HTTP for header inspection.
		if hsts != "" && (r.TLS != nil || sh.DevMode) {
			h.Set("Strict-Transport-Security", hsts)
		}

		next.ServeHTTP(w, r)
	})
}

// compile resolves the configured fields into the literal header list.
func (sh *SecureHeaders) compile() (static [][2]string, hsts string) {
	set := func(name, value string) {
		if value != "" {
			static = append(static, [2]string{name, value})
		}
	}

	csp := sh.ContentSecurityPolicy
	if csp == "" && !sh.DevMode {
		csp = defaultCSP
	}
	set("Content-Security-Policy", csp)

	set("X-Frame-Options", sh.XFrameOptions)
	set("X-Content-Type-Options", sh.XContentTypeOptions)
	set("X-XSS-Protection", sh.XSSProtection)
	set("Referrer-Policy", sh.ReferrerPolicy)

	pp := sh.PermissionsPolicy
	if pp == "" && !sh.DevMode {
		pp = defaultPermissionsPolicy
	}
	set("Permissions-Policy", pp)

	if sh.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", sh.HSTSMaxAge)
		if sh.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if sh.HSTSPreload {
			hsts += "; preload"
		}
	}

	return static, hsts
}

// AuditLog writes paired access and response records for the mutating
// endpoints it wraps, dataset reloads and exports. The access record
// lands before the handler runs, so a hung export still leaves a
// trace.
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	audit := logger.With(slog.String("component", "audit"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			audit.InfoContext(ctx, "audit access",
				slog.String("request_id", GetRequestID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			audit.InfoContext(ctx, "audit response",
				slog.String("request_id", GetRequestID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
