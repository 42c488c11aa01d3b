package gateway

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// widgetScriptKey is the fixed resource id the loader dedupes on; the provider
// ships exactly one widget script regardless of how many sessions open.
const widgetScriptKey = "payment-widget-script"

// ScriptLoader makes sure the provider's widget script is available exactly
// once per process. Concurrent sessions share one in-flight load.
type ScriptLoader interface {
	Ensure(ctx context.Context) error
}

type scriptLoader struct {
	url    string
	client *http.Client
	group  singleflight.Group

	mu     sync.Mutex
	loaded bool
}

func NewScriptLoader(url string, client *http.Client) ScriptLoader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &scriptLoader{url: url, client: client}
}

func (l *scriptLoader) Ensure(ctx context.Context) error {
	if l.isLoaded() {
		return nil
	}

	_, err, _ := l.group.Do(widgetScriptKey, func() (interface{}, error) {
		if l.isLoaded() {
			return nil, nil
		}
		if err := l.fetch(ctx); err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded = true
		l.mu.Unlock()
		return nil, nil
	})
	return err
}

func (l *scriptLoader) isLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *scriptLoader) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return errors.Wrap(err, "build script request")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "load widget script")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("widget script endpoint returned %d", resp.StatusCode)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return errors.Wrap(err, "read widget script")
	}
	return nil
}
