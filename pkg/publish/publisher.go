package publish

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/dd0wney/cluso-trustrank/pkg/logging"
	"github.com/dd0wney/cluso-trustrank/pkg/metrics"
)

// ErrPublishFailed marks errors returned by a Publisher backend.
var ErrPublishFailed = errors.New("publish failed")

// Publisher stores an encoded payload under key and returns where it went.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, key string, payload *Payload) (string, error)
}

// ResultKey returns the storage key for r: <schema>/<pass id><ext>.
func ResultKey(r Results, payload *Payload) string {
	return strings.ToLower(r.Schema) + "/" + r.PassID + payload.Extension()
}

// PublishResults encodes r and hands it to pub, recording the outcome.
func PublishResults(ctx context.Context, pub Publisher, r Results, compress bool, reg *metrics.Registry, logger logging.Logger) (string, *Payload, error) {
	logger = logging.OrNop(logger).With(logging.Component("publish"), logging.PassID(r.PassID))

	payload, err := Encode(r, compress)
	if err != nil {
		return "", nil, err
	}

	key := ResultKey(r, payload)
	timer := logging.StartTimer(logger, "publish results",
		logging.String("publisher", pub.Name()),
		logging.String("key", key),
		logging.String("digest", payload.Digest))

	location, err := pub.Publish(ctx, key, payload)
	if err != nil {
		if reg != nil {
			reg.RecordPublish(pub.Name(), metrics.StatusError, len(payload.Body))
		}
		timer.EndError(err)
		return "", payload, errors.Mark(errors.Wrapf(err, "publishing %s", key), ErrPublishFailed)
	}

	if reg != nil {
		reg.RecordPublish(pub.Name(), metrics.StatusSuccess, len(payload.Body))
	}
	timer.End(logging.String("location", location), logging.Int("bytes", len(payload.Body)))
	return location, payload, nil
}

// NoOpPublisher discards payloads.
type NoOpPublisher struct{}

func (NoOpPublisher) Name() string { return "none" }

func (NoOpPublisher) Publish(ctx context.Context, key string, payload *Payload) (string, error) {
	return "", ctx.Err()
}

// MemoryPublisher keeps payloads in memory, keyed by storage key.
type MemoryPublisher struct {
	mu      sync.RWMutex
	objects map[string]Payload
}

// NewMemoryPublisher creates an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{objects: make(map[string]Payload)}
}

func (m *MemoryPublisher) Name() string { return "memory" }

// Publish stores a copy of payload.
func (m *MemoryPublisher) Publish(ctx context.Context, key string, payload *Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored := *payload
	stored.Body = slices.Clone(payload.Body)

	m.mu.Lock()
	m.objects[key] = stored
	m.mu.Unlock()
	return "memory://" + key, nil
}

// Get returns the payload stored under key.
func (m *MemoryPublisher) Get(key string) (*Payload, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return &p, true
}

// Keys returns every stored key, sorted.
func (m *MemoryPublisher) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.objects))
}

// WriterPublisher writes the payload body to an io.Writer, for stdout.
type WriterPublisher struct {
	w    io.Writer
	name string
}

// NewWriterPublisher creates a publisher writing to w.
func NewWriterPublisher(name string, w io.Writer) *WriterPublisher {
	return &WriterPublisher{w: w, name: name}
}

func (p *WriterPublisher) Name() string { return p.name }

// Publish writes the body followed by a newline.
func (p *WriterPublisher) Publish(ctx context.Context, key string, payload *Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := p.w.Write(payload.Body); err != nil {
		return "", err
	}
	if !payload.Compressed {
		if _, err := io.WriteString(p.w, "\n"); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s:%s", p.name, key), nil
}
