// Command server runs one media node: it registers with the configured
// signaling service, serves its local health/metrics/audit HTTP surface,
// and processes control-plane messages until the control link fails.
package main

import (
	"aq-media-node/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		panic(err)
	}

	if err := application.Run(); err != nil {
		panic(err)
	}
}
