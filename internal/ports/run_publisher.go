package ports

import "context"

// RunPublisher announces finished runs to downstream consumers.
type RunPublisher interface {
	PublishRun(ctx context.Context, run Run, actions []RunAction) error
}
