package course

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
)

// mockAPI serves canned bodies per path and records every request.
type mockAPI struct {
	mu      sync.Mutex
	bodies  map[string]string
	errs    map[string]error
	queries []url.Values
	calls   map[string]int
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		bodies: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (a *mockAPI) serve(path, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bodies[path] = body
	delete(a.errs, path)
}

func (a *mockAPI) fail(path string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs[path] = err
}

func (a *mockAPI) count(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[path]
}

func (a *mockAPI) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		n += c
	}
	return n
}

func (a *mockAPI) GetRaw(_ context.Context, path string, query url.Values) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[path]++
	a.queries = append(a.queries, query)
	if err := a.errs[path]; err != nil {
		return nil, err
	}
	return []byte(a.bodies[path]), nil
}

func (a *mockAPI) Get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := a.GetRaw(ctx, path, query)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (a *mockAPI) Post(context.Context, string, any, any) error {
	return nil
}

// recordingObserver counts lookups per resource and result.
type recordingObserver struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{hits: map[string]int{}, misses: map[string]int{}}
}

func (o *recordingObserver) CacheLookup(resource string, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits[resource]++
	} else {
		o.misses[resource]++
	}
}
