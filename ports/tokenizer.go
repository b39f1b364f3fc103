package ports

import "github.com/layer-3/nocode/core"

// SessionTokenizer converts between sessions and signed session credentials
type SessionTokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	// TokenToSession returns an error wrapping core.ErrInvalidSession for any
	// bad signature, expired token or missing claim
	TokenToSession(token string) (*core.Session, error)
}
