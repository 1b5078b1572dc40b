// Package session tracks client sessions: who connected (IP, user agent,
// fingerprint digest, approximate location), when they were last seen, and
// whether the session is still active.
//
// A Manager coordinates three collaborators injected at construction: a Store
// that owns every Record, a Locator for IP geolocation and a Fingerprinter
// for the client digest. Lookups run concurrently while a session is being
// created; a failed lookup is recorded as Unknown and never fails creation.
// Only storage errors are surfaced to callers.
//
//	m, err := session.New(
//		session.WithStore(store),
//		session.WithLocator(geolocation.Cached(geo, 1024, time.Hour)),
//		session.WithFingerprinter(fingerprint.New(fpCfg)),
//		session.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//
//	id, err := m.CreateSession(ctx, r)
//
// Stores backed by PostgreSQL, Redis and MongoDB live in the pgstore,
// redisstore and mongostore subpackages; MemoryStore is provided here.
package session
