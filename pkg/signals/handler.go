package signals

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mudler/xlog"
)

var (
	signalHandlers      []func()
	signalHandlersMutex sync.Mutex
	signalHandlersOnce  sync.Once
	terminated          = make(chan struct{})
)

// RegisterGracefulTerminationHandler adds fn to the functions run when the
// process receives SIGINT or SIGTERM. Handlers run in registration order.
func RegisterGracefulTerminationHandler(fn func()) {
	signalHandlersOnce.Do(func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		go signalHandler(c)
	})

	signalHandlersMutex.Lock()
	defer signalHandlersMutex.Unlock()
	signalHandlers = append(signalHandlers, fn)
}

// Terminated is closed once every registered handler has returned.
func Terminated() <-chan struct{} {
	return terminated
}

func signalHandler(c chan os.Signal) {
	sig := <-c
	xlog.Info("Received termination signal, shutting down", "signal", sig.String())
	runHandlers()
	os.Exit(0)
}

func runHandlers() {
	signalHandlersMutex.Lock()
	defer signalHandlersMutex.Unlock()
	for _, fn := range signalHandlers {
		fn()
	}
	signalHandlers = nil
	close(terminated)
}
