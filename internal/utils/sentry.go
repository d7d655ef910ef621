package utils

import (
	"log"
	"os"

	"github.com/getsentry/sentry-go"
)

// InitSentry initializes Sentry for error tracking. Without a DSN the SDK
// runs in no-op mode, which is what local development wants.
func InitSentry() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		log.Println("SENTRY_DSN not set, error tracking disabled")
		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		Environment:      os.Getenv("APP_ENV"),
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	log.Println("Sentry initialized")
}

// CaptureError reports an error to Sentry if it is configured
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}
