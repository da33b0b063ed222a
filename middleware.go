package permkit

import (
	"errors"
	"net/http"
)

// Middleware provides HTTP middleware for channel permission checking.
type Middleware struct {
	source       PermissionSource
	getUserID    func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := permkit.NewMiddleware(service,
//	    permkit.WithUserIDExtractor(func(r *http.Request) string {
//	        return r.Context().Value("user_id").(string)
//	    }),
//	)
func NewMiddleware(source PermissionSource, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		source:       source,
		getUserID:    defaultGetUserID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserIDExtractor sets a custom function to extract user ID from request.
func WithUserIDExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getUserID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUserID(r *http.Request) string {
	return GetUserID(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNoUserID) || errors.Is(err, ErrNoActorID) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if IsUnauthorized(err) || IsCannotManageRole(err) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if IsInvalidOverride(err) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// ChannelExtractor extracts the server and channel a request addresses.
type ChannelExtractor func(*http.Request) (serverID, channelID string, err error)

// ChannelFromParam creates a ChannelExtractor that reads server and channel
// IDs from URL path parameters. Compatible with chi, gorilla/mux, and
// standard library patterns.
//
// Example:
//
//	// For route /servers/{serverID}/channels/{channelID}/messages
//	mw.RequirePermission(permkit.KeySendMessages,
//	    permkit.ChannelFromParam("serverID", "channelID"))
func ChannelFromParam(serverParam, channelParam string) ChannelExtractor {
	return func(r *http.Request) (string, string, error) {
		serverID := pathOrContextValue(r, serverParam)
		channelID := pathOrContextValue(r, channelParam)
		if serverID == "" || channelID == "" {
			return "", "", NewError(ErrUnauthorized, "server or channel ID not found in request")
		}
		return serverID, channelID, nil
	}
}

func pathOrContextValue(r *http.Request, name string) string {
	if v := r.PathValue(name); v != "" {
		return v
	}
	// Router middleware may have stashed it in context instead.
	if v := r.Context().Value(name); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ChannelFromQuery creates a ChannelExtractor that reads server and channel
// IDs from query parameters.
//
// Example:
//
//	// For route /api/messages?server_id=srv_1&channel_id=ch_1
//	mw.RequirePermission(permkit.KeyReadMessages,
//	    permkit.ChannelFromQuery("server_id", "channel_id"))
func ChannelFromQuery(serverParam, channelParam string) ChannelExtractor {
	return func(r *http.Request) (string, string, error) {
		serverID := r.URL.Query().Get(serverParam)
		channelID := r.URL.Query().Get(channelParam)
		if serverID == "" || channelID == "" {
			return "", "", NewError(ErrUnauthorized, "server or channel ID not found in query")
		}
		return serverID, channelID, nil
	}
}

// ChannelFromHeader creates a ChannelExtractor that reads server and channel
// IDs from request headers.
func ChannelFromHeader(serverHeader, channelHeader string) ChannelExtractor {
	return func(r *http.Request) (string, string, error) {
		serverID := r.Header.Get(serverHeader)
		channelID := r.Header.Get(channelHeader)
		if serverID == "" || channelID == "" {
			return "", "", NewError(ErrUnauthorized, "server or channel ID not found in header")
		}
		return serverID, channelID, nil
	}
}

// StaticChannel creates a ChannelExtractor that always returns the same
// server and channel. Useful for single-channel endpoints.
func StaticChannel(serverID, channelID string) ChannelExtractor {
	return func(r *http.Request) (string, string, error) {
		return serverID, channelID, nil
	}
}

// RequirePermission creates middleware that requires a permission key in the
// channel the request addresses.
//
// Example:
//
//	router.With(mw.RequirePermission(permkit.KeySendMessages,
//	    permkit.ChannelFromParam("serverID", "channelID"))).
//	    Post("/servers/{serverID}/channels/{channelID}/messages", sendHandler)
func (m *Middleware) RequirePermission(key Key, extractor ChannelExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			serverID, channelID, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			eff, err := m.source.EffectivePermissions(ctx, serverID, channelID, userID)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !eff.Has(key) {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing required permission").
					WithServer(serverID).
					WithChannel(channelID).
					WithUser(userID))
				return
			}

			// Add checker to context for use in handlers.
			checker, err := m.source.GetChecker(ctx, serverID, channelID, userID)
			if err == nil {
				ctx = WithChecker(ctx, checker)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission creates middleware that requires any of the keys.
//
// Example:
//
//	router.With(mw.RequireAnyPermission([]permkit.Key{permkit.KeyManageChannels, permkit.KeyManageRoles}, extractor)).
//	    Put("/servers/{serverID}/channels/{channelID}/overrides", setOverrideHandler)
func (m *Middleware) RequireAnyPermission(keys []Key, extractor ChannelExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			serverID, channelID, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			checker, err := m.source.GetChecker(ctx, serverID, channelID, userID)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			if !checker.HasAny(keys...) {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing required permission").
					WithServer(serverID).
					WithChannel(channelID).
					WithUser(userID))
				return
			}

			ctx = WithChecker(ctx, checker)
			r = r.WithContext(ctx)

			next.ServeHTTP(w, r)
		})
	}
}

// LoadChecker creates middleware that loads the user's Checker into context
// without enforcing anything. Use this when the handler decides.
//
// Example:
//
//	router.With(mw.LoadChecker(extractor)).Get("/channels/{channelID}", channelHandler)
//
//	func channelHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := permkit.FromContext(r.Context())
//	    if checker != nil && checker.Has(permkit.KeyManageChannels) {
//	        // show channel settings
//	    }
//	}
func (m *Middleware) LoadChecker(extractor ChannelExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			serverID, channelID, err := extractor(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			checker, err := m.source.GetChecker(ctx, serverID, channelID, userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithChecker(ctx, checker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context for use in gated mutations.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)

			ctx = WithUserAgent(ctx, r.UserAgent())

			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			userID := m.getUserID(r)
			if userID != "" {
				ctx = WithActorID(ctx, userID)
				ctx = WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
