//go:build linux

package watch

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

const watchMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_MOVED_FROM |
	unix.IN_CREATE | unix.IN_DELETE | unix.IN_DELETE_SELF

// inotifySource reports changed .py files using inotify. Every directory
// under the source dirs carries its own watch; new subdirectories are
// added as they appear.
type inotifySource struct {
	fd     int
	events chan string
	done   chan struct{}
	exited chan struct{}
	once   sync.Once

	mu   sync.Mutex
	dirs map[int32]string
}

func newNativeSource(dirs []string) (eventSource, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, err
	}
	s := &inotifySource{
		fd:     fd,
		events: make(chan string, 64),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		dirs:   make(map[int32]string),
	}
	for _, dir := range dirs {
		if err := s.addTree(dir); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}
	go s.loop()
	return s, nil
}

func (s *inotifySource) Events() <-chan string { return s.events }

func (s *inotifySource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		<-s.exited
		err = unix.Close(s.fd)
	})
	return err
}

func (s *inotifySource) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		wd, err := unix.InotifyAddWatch(s.fd, path, watchMask)
		if err != nil {
			return &fs.PathError{Op: "inotify_add_watch", Path: path, Err: err}
		}
		s.mu.Lock()
		s.dirs[int32(wd)] = path
		s.mu.Unlock()
		return nil
	})
}

func (s *inotifySource) loop() {
	defer close(s.exited)
	buf := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	for {
		select {
		case <-s.done:
			return
		default:
		}
		n, err := unix.Poll(fds, 100)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			log.Errorf("inotify poll: %s", err)
			return
		}
		if n == 0 {
			continue
		}
		nr, err := unix.Read(s.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			log.Errorf("inotify read: %s", err)
			return
		}
		for _, path := range s.parse(buf[:nr]) {
			select {
			case s.events <- path:
			case <-s.done:
				return
			}
		}
	}
}

// parse decodes a buffer of inotify_event records into changed .py paths.
func (s *inotifySource) parse(buf []byte) []string {
	var paths []string
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		wd := int32(binary.NativeEndian.Uint32(buf[off:]))
		mask := binary.NativeEndian.Uint32(buf[off+4:])
		nameLen := int(binary.NativeEndian.Uint32(buf[off+12:]))
		start := off + unix.SizeofInotifyEvent
		off = start + nameLen
		if off > len(buf) {
			break
		}
		name := strings.TrimRight(string(buf[start:off]), "\x00")

		s.mu.Lock()
		dir, ok := s.dirs[wd]
		if mask&unix.IN_IGNORED != 0 {
			delete(s.dirs, wd)
		}
		s.mu.Unlock()
		if !ok || name == "" {
			continue
		}
		path := filepath.Join(dir, name)

		if mask&unix.IN_ISDIR != 0 {
			if mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0 {
				if err := s.addTree(path); err != nil {
					log.Warningf("watch %s: %s", path, err)
				}
			}
			continue
		}
		if filepath.Ext(name) == ".py" {
			paths = append(paths, path)
		}
	}
	return paths
}
