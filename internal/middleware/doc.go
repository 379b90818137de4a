// Package middleware provides the gin middleware wrapped around every
// product route: request ID propagation, access logging and panic
// recovery.
//
// Register them in this order so that the request ID is available to the
// other two:
//
//	engine.Use(
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	    middleware.Recovery(logger),
//	)
package middleware
