package sessions

// Store holds per-browser session state. Implementations must be safe for
// concurrent use. Writes to unknown or expired session IDs fail with
// apperrors.ErrSessionNotFound: sessions are only ever created by Create,
// never implicitly by a write.
type Store interface {
	Create() (Session, error)
	Get(id string) (Session, error)
	PutIdentity(id string, identity Identity) error
	ClearIdentity(id string) error
	Delete(id string) error
}
