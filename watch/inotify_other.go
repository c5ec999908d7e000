//go:build !linux

package watch

import "errors"

func newNativeSource(dirs []string) (eventSource, error) {
	return nil, errors.New("no native file notification on this platform")
}
