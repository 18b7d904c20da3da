package parexis

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// startReaper launches, once per process, a goroutine that reclaims
// terminated PTY children non-blockingly on SIGCHLD. It must never block
// the driver's event loop, so it drains with WNOHANG in a tight loop
// rather than a single waitpid call.
var startReaper = sync.OnceFunc(func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGCHLD)
	go func() {
		for range ch {
			for {
				var status unix.WaitStatus
				pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
				if pid <= 0 || err != nil {
					break
				}
			}
		}
	}()
})
