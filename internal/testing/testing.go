// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"
	"time"
)

// MemoryStore is an in-memory key/value store satisfying session.Store.
//
// Set FailSet or FailGet to make the corresponding operation return an error.
// FailKeys fails any write touching one of its keys; a failed Replace changes nothing.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]string
	FailSet  error
	FailGet  error
	FailKeys map[string]error
}

func NewMemoryStore(seed map[string]string) *MemoryStore {
	data := make(map[string]string, len(seed))
	for k, v := range seed {
		data[k] = v
	}
	return &MemoryStore{data: data}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet != nil {
		return "", false, m.FailGet
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(key); err != nil {
		return err
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Replace(ctx context.Context, set map[string]string, remove ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range set {
		if err := m.writeErr(k); err != nil {
			return err
		}
	}
	for _, k := range remove {
		if err := m.writeErr(k); err != nil {
			return err
		}
	}
	for k, v := range set {
		m.data[k] = v
	}
	for _, k := range remove {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryStore) writeErr(key string) error {
	if m.FailSet != nil {
		return m.FailSet
	}
	return m.FailKeys[key]
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the stored value for key, or "" when absent.
func (m *MemoryStore) Value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// FakeClock hands out timer channels that fire only when Advance is called.
//
// Every requested delay is recorded so tests can assert on the schedule.
type FakeClock struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []chan time.Time
	waiters chan struct{}
}

func NewFakeClock() *FakeClock {
	return &FakeClock{waiters: make(chan struct{}, 64)}
}

// After is a drop-in for [time.After].
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.pending = append(c.pending, ch)
	c.mu.Unlock()
	c.waiters <- struct{}{}
	return ch
}

// WaitForTimer blocks until some goroutine has called After, or fails the test.
func (c *FakeClock) WaitForTimer(t *testing.T) {
	t.Helper()
	select {
	case <-c.waiters:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a timer to be scheduled")
	}
}

// Advance fires every outstanding timer.
func (c *FakeClock) Advance() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- time.Now()
	}
}

// Delays returns every duration passed to After so far.
func (c *FakeClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
