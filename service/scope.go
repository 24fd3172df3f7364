package service

import (
	"context"

	"bindiff/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type sessionKey struct{}

// scope owns a session created for one logical operation. The session is only
// reachable through the context returned by beginScope, so the caller's
// context keeps pointing at the previous session once the scope is released.
type scope struct {
	id       string
	session  core.Session
	released bool
}

// beginScope creates a fresh session and makes it the active one for the
// returned context. Callers must defer Release.
func (s *BinDataService) beginScope(ctx context.Context) (context.Context, *scope) {
	sc := &scope{
		id:      ulid.Make().String(),
		session: s.newSession(),
	}
	return context.WithValue(ctx, sessionKey{}, sc.session), sc
}

// Release closes the scope's session. Calling it again does nothing.
func (sc *scope) Release() {
	if sc.released {
		return
	}
	sc.released = true
	if err := sc.session.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"scope_id": sc.id,
			"error":    err,
		}).Warn("Failed to close scope session")
	}
}

// activeSession returns the innermost scope's session, or the service's own
// session outside of any scope.
func (s *BinDataService) activeSession(ctx context.Context) core.Session {
	if session, ok := ctx.Value(sessionKey{}).(core.Session); ok && session != nil {
		return session
	}
	return s.session
}
