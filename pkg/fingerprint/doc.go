// Package fingerprint turns client identity signals into a pseudonymous,
// fixed-length token.
//
// The preferred signal is the visitor identifier computed in the browser by a
// fingerprinting library and forwarded in a request header (X-Visitor-ID by
// default). When it is missing the Fingerprinter can fall back to a signal
// string built from stable request headers. Either way only the SHA-256 hex
// digest leaves the package; the raw value is never returned.
//
//	fp := fingerprint.New(cfg)
//	digest, err := fp.Fingerprint(r)
//	if err != nil {
//		digest = "Unknown"
//	}
package fingerprint
