package watch

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

type stamp struct {
	mod  time.Time
	size int64
}

// pollSource rescans the source dirs on an interval and reports .py files
// whose size or modification time changed, appeared or disappeared.
type pollSource struct {
	dirs     []string
	interval time.Duration
	events   chan string
	done     chan struct{}
	once     sync.Once
	seen     map[string]stamp
}

func newPollSource(dirs []string, interval time.Duration) *pollSource {
	p := &pollSource{
		dirs:     dirs,
		interval: interval,
		events:   make(chan string, 64),
		done:     make(chan struct{}),
	}
	p.seen = p.scan()
	go p.loop()
	return p
}

func (p *pollSource) Events() <-chan string { return p.events }

func (p *pollSource) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *pollSource) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			now := p.scan()
			for _, path := range diffStamps(p.seen, now) {
				select {
				case p.events <- path:
				case <-p.done:
					return
				}
			}
			p.seen = now
		}
	}
}

func (p *pollSource) scan() map[string]stamp {
	out := make(map[string]stamp)
	for _, dir := range p.dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".py" {
				return nil
			}
			if info, err := d.Info(); err == nil {
				out[path] = stamp{mod: info.ModTime(), size: info.Size()}
			}
			return nil
		})
	}
	return out
}

// diffStamps lists paths added, changed or removed between two scans.
func diffStamps(before, after map[string]stamp) []string {
	var changed []string
	for path, s := range after {
		if old, ok := before[path]; !ok || !old.mod.Equal(s.mod) || old.size != s.size {
			changed = append(changed, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			changed = append(changed, path)
		}
	}
	return changed
}
