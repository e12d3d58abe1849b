//go:build !windows
// +build !windows

package storage

import (
	"errors"
	"os/user"
	"path/filepath"
	"syscall"

	"k8s.io/klog/v2"
)

var (
	storePath = getStorePath()
)

func getStorePath() string {
	if u, err := user.Current(); err == nil {
		return filepath.Join(u.HomeDir, "ridengateway")
	} else {
		klog.ErrorS(err, "Failed to get home dir")
		return "./ridengateway"
	}
}

func isEphemeralError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN:
			return true
		}
	}
	return false
}
