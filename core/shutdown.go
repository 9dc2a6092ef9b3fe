package core

import "context"

// ShutdownFunc is a cleanup handler run during graceful shutdown. The
// context carries the remaining shutdown deadline; handlers should stop
// early when it is cancelled rather than block the exit.
//
// Handlers must be safe to call once and should return an error only
// when cleanup genuinely failed, for example:
//
//	manager.Register("history", 30, func(ctx context.Context) error {
//	    return store.Close()
//	})
type ShutdownFunc func(ctx context.Context) error
