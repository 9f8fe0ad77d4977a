package pushes

import "context"

// Alerter reports to the operator channel. Implementations swallow their
// own failures.
type Alerter interface {
	Alert(ctx context.Context, text string)
}

type nopAlerter struct{}

func (nopAlerter) Alert(context.Context, string) {}
