package parexis

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// ProcessIO spawns argv on a pseudo-terminal master and lets its child
// become session leader on the slave. Built on github.com/creack/pty's
// pty.Start, which folds the fork+setsid+dup2(slave, 0/1/2) dance into one
// call. The terminal is not switched to raw mode: it keeps the pty's
// default line discipline settings (echo, canonical input, output
// newline translation).
type ProcessIO struct {
	argv []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	master *os.File
}

// NewProcessIO execs argv on a new PTY, backing an "open process <name>
// <cmd> [args…]" channel.
func NewProcessIO(argv []string) (*ProcessIO, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrFatalIO)
	}
	startReaper()
	p := &ProcessIO{argv: argv}
	if err := p.open(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ProcessIO) open() error {
	cmd := exec.Command(p.argv[0], p.argv[1:]...)
	master, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFatalIO, err)
	}
	p.mu.Lock()
	p.cmd = cmd
	p.master = master
	p.mu.Unlock()
	return nil
}

func (p *ProcessIO) SelectFD() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.master.Fd())
}

func (p *ProcessIO) GetByte() (byte, error) {
	p.mu.Lock()
	master := p.master
	p.mu.Unlock()

	var b [1]byte
	n, err := master.Read(b[:])
	if n == 0 {
		if err == nil {
			return 0, ErrEndOfStream
		}
		return 0, classifyIOErr(err)
	}
	return b[0], nil
}

func (p *ProcessIO) PutByte(b byte) error {
	_, err := p.Write([]byte{b})
	return err
}

func (p *ProcessIO) Write(data []byte) (int, error) {
	p.mu.Lock()
	master := p.master
	p.mu.Unlock()

	n, err := master.Write(data)
	if err != nil {
		return n, classifyIOErr(err)
	}
	return n, nil
}

// Reopen terminates the current child, if any, and execs a fresh one.
func (p *ProcessIO) Reopen() error {
	p.terminate()
	return p.open()
}

func (p *ProcessIO) terminate() {
	p.mu.Lock()
	cmd, master := p.cmd, p.master
	p.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	if master != nil {
		_ = master.Close()
	}
}

func (p *ProcessIO) Close() error {
	p.terminate()
	p.mu.Lock()
	p.cmd, p.master = nil, nil
	p.mu.Unlock()
	return nil
}
