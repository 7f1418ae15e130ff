package trigger

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Signals maps SIGUSR1 to start and SIGUSR2 to stop until ctx is done, so a
// desktop hotkey daemon can drive playback with kill -USR1.
func Signals(ctx context.Context, target Target, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(ch)
	handleSignals(ctx, ch, target, logger)
}

func handleSignals(ctx context.Context, ch <-chan os.Signal, target Target, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			switch sig {
			case syscall.SIGUSR1:
				logger.Debug("signal trigger", "signal", sig.String(), "command", CommandStart)
				if err := target.Start(); err != nil {
					logger.Warn("signal start", "error", err)
				}
			case syscall.SIGUSR2:
				logger.Debug("signal trigger", "signal", sig.String(), "command", CommandStop)
				target.Stop()
			}
		}
	}
}
