package obs

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CapturePanic reports a recovered panic value. It is a no-op when sentry
// was never initialised.
func CapturePanic(r any) {
	if err, ok := r.(error); ok {
		sentry.CaptureException(err)
		return
	}
	sentry.CaptureException(fmt.Errorf("panic: %v", r))
}
