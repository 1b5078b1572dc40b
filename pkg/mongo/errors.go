package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongo.connect_failed")
	ErrEmptyConnectionURL     = errors.New("mongo.empty_url")
	ErrHealthcheckFailed      = errors.New("mongo.healthcheck_failed")
)
