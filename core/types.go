package core

import "context"

// ShutdownFunc is a cleanup step executed during graceful shutdown.
type ShutdownFunc func(ctx context.Context) error
