package geolocation

import "errors"

var (
	ErrGeoLookup        = errors.New("geolocation.lookup_failed")
	ErrMissingAPIKey    = errors.New("geolocation.missing_api_key")
	ErrInvalidIP        = errors.New("geolocation.invalid_ip")
	ErrPrivateIP        = errors.New("geolocation.private_ip")
	ErrUnexpectedStatus = errors.New("geolocation.unexpected_status")
	ErrMalformedPayload = errors.New("geolocation.malformed_payload")
	ErrTimeout          = errors.New("geolocation.timeout")
	ErrCircuitOpen      = errors.New("geolocation.circuit_open")
)
