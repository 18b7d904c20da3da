package parexis

import (
	"os"
	"sync"
	"syscall"
)

// FileIO is the plain-file IOHandle endpoint: open a path for read-write,
// byte-at-a-time get/put, backed by a reopenable *os.File so it can produce
// a stable SelectFD.
type FileIO struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewFileIO opens path for read-write, backing an "open file <name> <path>"
// channel.
func NewFileIO(path string) (*FileIO, error) {
	f := &FileIO{path: path}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileIO) open() error {
	file, err := os.OpenFile(f.path, os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return classifyIOErr(err)
	}
	f.mu.Lock()
	f.file = file
	f.mu.Unlock()
	return nil
}

func (f *FileIO) SelectFD() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int(f.file.Fd())
}

func (f *FileIO) GetByte() (byte, error) {
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()

	var b [1]byte
	n, err := file.Read(b[:])
	if n == 0 {
		if err == nil {
			return 0, ErrEndOfStream
		}
		return 0, classifyIOErr(err)
	}
	return b[0], nil
}

func (f *FileIO) PutByte(b byte) error {
	_, err := f.Write([]byte{b})
	return err
}

func (f *FileIO) Write(p []byte) (int, error) {
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()

	n, err := file.Write(p)
	if err != nil {
		return n, classifyIOErr(err)
	}
	return n, nil
}

func (f *FileIO) Reopen() error {
	f.mu.Lock()
	old := f.file
	f.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return f.open()
}

func (f *FileIO) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
