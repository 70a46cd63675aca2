package resources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// FileProvider serves files under Root as file:// resources and watches
// them with fsnotify, firing onUpdate for whichever uri a subscribed watch
// belongs to (spec.md §8 scenario 7's fan-out depends on this).
type FileProvider struct {
	root string

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watching map[string]func(uri string) // relative path -> callback
}

// NewFileProvider builds a provider rooted at root. The fsnotify watcher is
// created lazily on the first Subscribe call, since most demo runs never
// subscribe to a file at all.
func NewFileProvider(root string) *FileProvider {
	return &FileProvider{root: root, watching: make(map[string]func(uri string))}
}

func (p *FileProvider) Scheme() string { return "file" }

func (p *FileProvider) List(ctx context.Context) ([]protocol.Resource, error) {
	var out []protocol.Resource
	err := filepath.WalkDir(p.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		out = append(out, protocol.Resource{
			URI:  "file://" + filepath.ToSlash(rel),
			Name: filepath.Base(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("file provider: listing %s: %w", p.root, err)
	}
	return out, nil
}

func (p *FileProvider) pathFor(uri string) (string, error) {
	rel := strings.TrimPrefix(uri, "file://")
	abs := filepath.Join(p.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(abs, filepath.Clean(p.root)+string(os.PathSeparator)) && abs != filepath.Clean(p.root) {
		return "", fmt.Errorf("file provider: uri %q escapes root", uri)
	}
	return abs, nil
}

func (p *FileProvider) Read(ctx context.Context, uri string) (*protocol.ResourceContentPayload, error) {
	path, err := p.pathFor(uri)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file provider: reading %s: %w", path, err)
	}
	return &protocol.ResourceContentPayload{URI: uri, Text: string(data)}, nil
}

func (p *FileProvider) Subscribe(uri string, onUpdate func(uri string)) error {
	path, err := p.pathFor(uri)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("file provider: creating watcher: %w", err)
		}
		p.watcher = w
		go p.watchLoop()
	}
	if err := p.watcher.Add(path); err != nil {
		return fmt.Errorf("file provider: watching %s: %w", path, err)
	}
	p.watching[path] = onUpdate
	return nil
}

func (p *FileProvider) Unsubscribe(uri string) error {
	path, err := p.pathFor(uri)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watching, path)
	if p.watcher != nil {
		if err := p.watcher.Remove(path); err != nil {
			logger.Warn("file provider: failed to remove watch", path, err)
		}
	}
	return nil
}

func (p *FileProvider) watchLoop() {
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.mu.Lock()
			cb, known := p.watching[event.Name]
			p.mu.Unlock()
			if !known {
				continue
			}
			rel, err := filepath.Rel(p.root, event.Name)
			if err != nil {
				continue
			}
			cb("file://" + filepath.ToSlash(rel))
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file provider: watcher error", err)
		}
	}
}
