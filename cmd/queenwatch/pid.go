package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// pidFile records the serving process so init scripts can find it. With
// locking, a second server started on the same file refuses to run.
type pidFile struct {
	path   string
	file   *os.File
	locked bool
}

func acquirePIDFile(path string, lock bool) (*pidFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("cannot create PID file: %w", err)
		}

		if lock {
			if err := checkExistingPID(path); err != nil {
				return nil, err
			}
		}

		file, err = os.OpenFile(path, os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("cannot open PID file: %w", err)
		}
	}

	p := &pidFile{path: path, file: file}

	if lock {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return nil, fmt.Errorf("cannot acquire lock: another queenwatch server is running")
			}
			return nil, fmt.Errorf("lock failed: %w", err)
		}
		p.locked = true
	}

	// truncate only once the lock is held so a running owner keeps its pid
	if err := file.Truncate(0); err != nil {
		p.Release()
		return nil, fmt.Errorf("cannot truncate PID file: %w", err)
	}
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		p.Release()
		return nil, fmt.Errorf("cannot write PID: %w", err)
	}
	if err := file.Sync(); err != nil {
		p.Release()
		return nil, fmt.Errorf("cannot sync PID file: %w", err)
	}

	return p, nil
}

// Release unlocks and removes the file
func (p *pidFile) Release() {
	if p.locked {
		syscall.Flock(int(p.file.Fd()), syscall.LOCK_UN)
	}
	p.file.Close()
	os.Remove(p.path)
}

// checkExistingPID accepts a file left by a dead process and rejects one
// whose process is still alive
func checkExistingPID(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read existing PID file: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil
	}

	pid, err := strconv.Atoi(content)
	if err != nil {
		return fmt.Errorf("corrupted PID file (contains: %q)", content)
	}

	// never errors on Unix
	proc, _ := os.FindProcess(pid)

	err = proc.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		if pid == os.Getpid() {
			return nil
		}
		return fmt.Errorf("process %d from PID file %s is still running", pid, path)
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return nil
	default:
		return fmt.Errorf("process %d exists but cannot verify ownership: %v", pid, err)
	}
}
