package permkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPermissionSource resolves from in-memory snapshots so middleware tests
// run without a database.
type stubPermissionSource struct {
	roles     map[string][]Role                        // userID -> roles
	overrides map[string][]ChannelPermissionOverride   // channelID -> overrides
	owners    map[string]string                        // serverID -> owner userID
	err       error
}

func (s *stubPermissionSource) EffectivePermissions(ctx context.Context, serverID, channelID, userID string) (Effective, error) {
	if s.err != nil {
		return Effective{}, s.err
	}
	isOwner := s.owners[serverID] == userID
	return ResolvePermissions(userID, s.roles[userID], s.overrides[channelID], isOwner), nil
}

func (s *stubPermissionSource) GetChecker(ctx context.Context, serverID, channelID, userID string) (*Checker, error) {
	if s.err != nil {
		return nil, s.err
	}
	isOwner := s.owners[serverID] == userID
	return NewChecker(userID, serverID, channelID, s.roles[userID], s.overrides[channelID], isOwner), nil
}

func newStubSource() *stubPermissionSource {
	return &stubPermissionSource{
		roles: map[string][]Role{
			"member_1": {roleWith("member", 1, KeyReadMessages, KeySendMessages)},
			"mod_1":    {roleWith("mod", 5, KeyReadMessages, KeySendMessages, KeyManageMessages, KeyManageChannels)},
		},
		overrides: map[string][]ChannelPermissionOverride{
			"ch_muted": {
				{ID: "o1", ChannelID: "ch_muted", RoleID: "member", Deny: names(KeySendMessages)},
			},
		},
		owners: map[string]string{"srv_1": "owner_1"},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestNewMiddleware tests the constructor and options
func TestNewMiddleware(t *testing.T) {
	source := newStubSource()

	mw := NewMiddleware(source)
	require.NotNil(t, mw)
	assert.NotNil(t, mw.getUserID)
	assert.NotNil(t, mw.errorHandler)

	customUserID := func(r *http.Request) string { return "custom-user" }
	customErrorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
	}

	mw2 := NewMiddleware(source,
		WithUserIDExtractor(customUserID),
		WithErrorHandler(customErrorHandler),
	)

	req := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "custom-user", mw2.getUserID(req))

	w := httptest.NewRecorder()
	mw2.errorHandler(w, req, nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

// TestDefaultGetUserID tests the default user ID extractor
func TestDefaultGetUserID(t *testing.T) {
	ctx := WithUserID(context.Background(), "test-user")
	req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	assert.Equal(t, "test-user", defaultGetUserID(req))

	req = httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, defaultGetUserID(req))
}

// TestDefaultErrorHandler tests the status mapping
func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"missing user", ErrNoUserID, http.StatusUnauthorized},
		{"missing actor", NewError(ErrNoActorID, "x"), http.StatusUnauthorized},
		{"unauthorized", NewError(ErrUnauthorized, "x"), http.StatusForbidden},
		{"cannot manage role", NewError(ErrCannotManageRole, "x"), http.StatusForbidden},
		{"invalid override", NewError(ErrInvalidOverride, "x"), http.StatusBadRequest},
		{"generic", NewError(ErrDatabaseError, "x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)

			defaultErrorHandler(w, req, tt.err)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

// TestChannelExtractors tests the extractor constructors
func TestChannelExtractors(t *testing.T) {
	t.Run("StaticChannel", func(t *testing.T) {
		extractor := StaticChannel("srv_1", "ch_1")
		serverID, channelID, err := extractor(httptest.NewRequest("GET", "/", nil))

		assert.NoError(t, err)
		assert.Equal(t, "srv_1", serverID)
		assert.Equal(t, "ch_1", channelID)
	})

	t.Run("ChannelFromQuery", func(t *testing.T) {
		extractor := ChannelFromQuery("server_id", "channel_id")

		req := httptest.NewRequest("GET", "/api/messages?server_id=srv_1&channel_id=ch_1", nil)
		serverID, channelID, err := extractor(req)
		assert.NoError(t, err)
		assert.Equal(t, "srv_1", serverID)
		assert.Equal(t, "ch_1", channelID)

		req = httptest.NewRequest("GET", "/api/messages?server_id=srv_1", nil)
		_, _, err = extractor(req)
		assert.Error(t, err)
	})

	t.Run("ChannelFromHeader", func(t *testing.T) {
		extractor := ChannelFromHeader("X-Server-ID", "X-Channel-ID")

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Server-ID", "srv_1")
		req.Header.Set("X-Channel-ID", "ch_1")
		serverID, channelID, err := extractor(req)
		assert.NoError(t, err)
		assert.Equal(t, "srv_1", serverID)
		assert.Equal(t, "ch_1", channelID)

		req = httptest.NewRequest("GET", "/", nil)
		_, _, err = extractor(req)
		assert.Error(t, err)
	})

	t.Run("ChannelFromParam", func(t *testing.T) {
		extractor := ChannelFromParam("serverID", "channelID")

		req := httptest.NewRequest("GET", "/servers/srv_1/channels/ch_1", nil)
		req.SetPathValue("serverID", "srv_1")
		req.SetPathValue("channelID", "ch_1")
		serverID, channelID, err := extractor(req)
		assert.NoError(t, err)
		assert.Equal(t, "srv_1", serverID)
		assert.Equal(t, "ch_1", channelID)

		req = httptest.NewRequest("GET", "/servers/srv_1/channels/ch_1", nil)
		_, _, err = extractor(req)
		assert.Error(t, err)
	})
}

// TestRequirePermission tests enforcement of a single key
func TestRequirePermission(t *testing.T) {
	source := newStubSource()
	mw := NewMiddleware(source)

	tests := []struct {
		name           string
		userID         string
		key            Key
		channelID      string
		expectedStatus int
	}{
		{"granted", "member_1", KeySendMessages, "ch_1", http.StatusOK},
		{"denied by role grants", "member_1", KeyManageMessages, "ch_1", http.StatusForbidden},
		{"denied by channel override", "member_1", KeySendMessages, "ch_muted", http.StatusForbidden},
		{"owner always passes", "owner_1", KeyAdministrator, "ch_muted", http.StatusOK},
		{"no user in context", "", KeyReadMessages, "ch_1", http.StatusUnauthorized},
		{"unknown user has nothing", "stranger", KeyReadMessages, "ch_1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := mw.RequirePermission(tt.key, StaticChannel("srv_1", tt.channelID))(okHandler())

			req := httptest.NewRequest("POST", "/messages", nil)
			if tt.userID != "" {
				req = req.WithContext(WithUserID(req.Context(), tt.userID))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	t.Run("extractor failure", func(t *testing.T) {
		failing := func(r *http.Request) (string, string, error) {
			return "", "", NewError(ErrUnauthorized, "no channel")
		}
		handler := mw.RequirePermission(KeyReadMessages, failing)(okHandler())

		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithUserID(req.Context(), "member_1"))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

// TestRequirePermissionInjectsChecker tests that the handler sees a checker
func TestRequirePermissionInjectsChecker(t *testing.T) {
	source := newStubSource()
	mw := NewMiddleware(source)

	var seen *Checker
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := mw.RequirePermission(KeyReadMessages, StaticChannel("srv_1", "ch_1"))(inner)

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithUserID(req.Context(), "mod_1"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "mod_1", seen.UserID())
	assert.True(t, seen.Has(KeyManageMessages))
}

// TestRequireAnyPermission tests the any-of gate
func TestRequireAnyPermission(t *testing.T) {
	source := newStubSource()
	mw := NewMiddleware(source)
	keys := []Key{KeyManageChannels, KeyManageRoles}

	tests := []struct {
		name           string
		userID         string
		expectedStatus int
	}{
		{"mod has manageChannels", "mod_1", http.StatusOK},
		{"member has neither", "member_1", http.StatusForbidden},
		{"no user", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := mw.RequireAnyPermission(keys, StaticChannel("srv_1", "ch_1"))(okHandler())

			req := httptest.NewRequest("PUT", "/overrides", nil)
			if tt.userID != "" {
				req = req.WithContext(WithUserID(req.Context(), tt.userID))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

// TestLoadChecker tests the non-enforcing loader
func TestLoadChecker(t *testing.T) {
	source := newStubSource()
	mw := NewMiddleware(source)

	var seen *Checker
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.LoadChecker(StaticChannel("srv_1", "ch_1"))(inner)

	t.Run("loads for known user", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithUserID(req.Context(), "member_1"))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.True(t, seen.CanSend())
	})

	t.Run("passes through without user", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest("GET", "/", nil)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, seen)
	})

	t.Run("passes through on source error", func(t *testing.T) {
		seen = nil
		failing := NewMiddleware(&stubPermissionSource{err: ErrDatabaseError})
		h := failing.LoadChecker(StaticChannel("srv_1", "ch_1"))(inner)

		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithUserID(req.Context(), "member_1"))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, seen)
	})
}

// TestInjectAuditContext tests request metadata extraction
func TestInjectAuditContext(t *testing.T) {
	source := newStubSource()
	mw := NewMiddleware(source)

	var audit AuditContext
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		audit = GetAuditContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.InjectAuditContext()(inner)

	req := httptest.NewRequest("POST", "/roles", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Request-ID", "req_1")
	req = req.WithContext(WithUserID(req.Context(), "mod_1"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "mod_1", audit.ActorID)
	assert.Equal(t, "203.0.113.7", audit.IPAddress)
	assert.Equal(t, "test-agent", audit.UserAgent)
	assert.Equal(t, "req_1", audit.RequestID)
}

// TestInjectAuditContextFallsBackToRemoteAddr tests the IP fallback chain
func TestInjectAuditContextFallsBackToRemoteAddr(t *testing.T) {
	source := newStubSource()
	mw := NewMiddleware(source)

	var ip string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = GetIPAddress(r.Context())
	})

	req := httptest.NewRequest("GET", "/", nil)
	mw.InjectAuditContext()(inner).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, req.RemoteAddr, ip)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.3")
	mw.InjectAuditContext()(inner).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.3", ip)
}
