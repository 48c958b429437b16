package fetch

import (
	"context"
	"fmt"

	"github.com/sweeney/weather-epd/internal/log"
	"github.com/sweeney/weather-epd/internal/network"
)

// DefaultAttempts is the number of tries per fetch.
const DefaultAttempts = 3

// Retry calls do up to attempts times, immediately, until it succeeds.
// The link is checked before every attempt; a lost link returns a
// link-lost status at once without consuming an attempt. When every
// attempt fails the last error is returned unaltered.
func Retry(ctx context.Context, link network.Link, attempts int, name string, do func(context.Context) error) error {
	logger := log.WithComponent("fetch").With().Str("api", name).Logger()

	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if st := link.Status(); st != network.Connected {
			return &Error{Status: LinkLostStatus(st), Err: fmt.Errorf("link %s", st)}
		}

		err = do(ctx)
		status := Status(err)
		logger.Debug().Int("attempt", i).Int("status", status).Str("phrase", Phrase(status)).Msg("fetch attempt")
		if err == nil {
			return nil
		}
	}

	logger.Warn().Err(err).Int("attempts", attempts).Msg("fetch failed")
	return err
}
