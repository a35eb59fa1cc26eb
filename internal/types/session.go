package types

// Session is an authenticated login session, keyed by a Uid session token
// rather than persisted in the kv-log: sessions are process-lifetime only
// and never survive a restart.
type Session struct {
	Id        Uid
	UserId    Uid
	CreatedAt int64
	ExpiresAt int64
}

func (s *Session) Expired(now int64) bool { return now >= s.ExpiresAt }

// IngestSession tracks an in-progress multi-part upload (e.g. a large file
// or image being streamed into the blob object store before the owning
// Item record is committed to the kv-log).
type IngestSession struct {
	Id            Uid
	UserId        Uid
	ItemId        Uid
	ExpectedBytes int64
	ReceivedBytes int64
	CreatedAt     int64
}

func (s *IngestSession) Complete() bool { return s.ReceivedBytes >= s.ExpectedBytes }
