package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"
)

func contextWithTimeout(c *cli.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(c.Context)
	}
	return context.WithTimeout(c.Context, d)
}
