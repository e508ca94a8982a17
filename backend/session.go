package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// DefaultSessionCookie is the cookie carrying the backend session.
const DefaultSessionCookie = "neufin_session"

// Session holds the credentials of one authenticated user. It is passed
// explicitly to every fetch; the client keeps no ambient session state.
type Session struct {
	// Token is sent as "Authorization: Bearer <token>".
	Token string
	// Cookie is forwarded as is when set.
	Cookie *http.Cookie
}

// IsZero reports whether the session carries no credentials.
func (s Session) IsZero() bool {
	return s.Token == "" && (s.Cookie == nil || s.Cookie.Value == "")
}

// Scope returns a stable, non-reversible identifier of the session, suitable
// as a cache key. Sessions with the same credentials share a scope.
func (s Session) Scope() string {
	if s.IsZero() {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(s.Token))
	h.Write([]byte{0})
	if s.Cookie != nil {
		h.Write([]byte(s.Cookie.Name))
		h.Write([]byte{'='})
		h.Write([]byte(s.Cookie.Value))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (s Session) apply(req *http.Request) {
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if s.Cookie != nil && s.Cookie.Value != "" {
		req.AddCookie(&http.Cookie{Name: s.Cookie.Name, Value: s.Cookie.Value})
	}
}

// SessionFromRequest extracts the session of an incoming request, from a
// bearer Authorization header or the named cookie.
func SessionFromRequest(r *http.Request, cookieName string) Session {
	var s Session
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && (auth[:7] == "Bearer " || auth[:7] == "bearer ") {
		s.Token = auth[7:]
	}
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		s.Cookie = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return s
}
