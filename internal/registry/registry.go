package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
	"github.com/rzbill/flo-transform/internal/transform"
)

var (
	// ErrNotFound is returned when no transform has the requested name.
	ErrNotFound = errors.New("registry: transform not found")
	// ErrInvalid wraps every validation failure of Deploy.
	ErrInvalid = errors.New("registry: invalid transform")
)

// Meta is the persisted definition of a transform.
type Meta struct {
	Name             string `json:"name"`
	Namespace        string `json:"namespace"`
	Source           string `json:"source"`
	Sink             string `json:"sink"`
	Partitions       int    `json:"partitions"`
	Filter           string `json:"filter,omitempty"`
	Value            string `json:"value,omitempty"`
	MemoryLimitBytes int    `json:"memoryLimitBytes"`
	MaxBatch         int    `json:"maxBatch"`
	CreatedAtMs      int64  `json:"createdAtMs"`
	UpdatedAtMs      int64  `json:"updatedAtMs"`
}

// Defaults returns opinionated defaults for new transforms.
func Defaults() Meta {
	return Meta{
		Namespace:        "default",
		Partitions:       1,
		MemoryLimitBytes: transform.DefaultMemoryLimit,
		MaxBatch:         transform.DefaultMaxBatch,
	}
}

var (
	metaPrefix = []byte("xform/")
	validName  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)
)

// metaKey builds the metadata key for a transform.
func metaKey(name string) []byte {
	k := make([]byte, 0, len(metaPrefix)+len(name))
	k = append(k, metaPrefix...)
	k = append(k, name...)
	return k
}

// Registry stores transform definitions in Pebble.
type Registry struct {
	db       *pebblestore.DB
	defaults Meta
	now      func() time.Time
}

// New returns a Registry over db. Zero fields of defaults fall back to
// Defaults().
func New(db *pebblestore.DB, defaults Meta) *Registry {
	d := Defaults()
	if defaults.Namespace != "" {
		d.Namespace = defaults.Namespace
	}
	if defaults.Partitions > 0 {
		d.Partitions = defaults.Partitions
	}
	if defaults.MemoryLimitBytes > 0 {
		d.MemoryLimitBytes = defaults.MemoryLimitBytes
	}
	if defaults.MaxBatch > 0 {
		d.MaxBatch = defaults.MaxBatch
	}
	return &Registry{db: db, defaults: d, now: time.Now}
}

func (r *Registry) applyDefaults(m *Meta) {
	if m.Namespace == "" {
		m.Namespace = r.defaults.Namespace
	}
	if m.Partitions == 0 {
		m.Partitions = r.defaults.Partitions
	}
	if m.MemoryLimitBytes == 0 {
		m.MemoryLimitBytes = r.defaults.MemoryLimitBytes
	}
	if m.MaxBatch == 0 {
		m.MaxBatch = r.defaults.MaxBatch
	}
}

// Validate checks m without defaults applied to zero fields.
func Validate(m Meta) error {
	switch {
	case !validName.MatchString(m.Name):
		return fmt.Errorf("%w: bad name %q", ErrInvalid, m.Name)
	case m.Source == "" || m.Sink == "":
		return fmt.Errorf("%w: source and sink topics are required", ErrInvalid)
	case m.Source == m.Sink:
		return fmt.Errorf("%w: source and sink must differ", ErrInvalid)
	case m.Partitions < 1 || m.Partitions > 1024:
		return fmt.Errorf("%w: partitions must be in [1, 1024]", ErrInvalid)
	case m.MemoryLimitBytes < 0 || m.MaxBatch < 0:
		return fmt.Errorf("%w: limits must not be negative", ErrInvalid)
	}
	if _, err := transform.CompileCEL(m.Filter, m.Value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Deploy validates m, fills defaults and stores it. Redeploying an existing
// name replaces the definition but keeps its creation time.
func (r *Registry) Deploy(ctx context.Context, m Meta) (Meta, error) {
	r.applyDefaults(&m)
	if err := Validate(m); err != nil {
		return Meta{}, err
	}
	now := r.now().UnixMilli()
	m.CreatedAtMs, m.UpdatedAtMs = now, now
	if prev, err := r.Get(m.Name); err == nil {
		m.CreatedAtMs = prev.CreatedAtMs
	} else if !errors.Is(err, ErrNotFound) {
		return Meta{}, err
	}

	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	batch := r.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(metaKey(m.Name), b, nil); err != nil {
		return Meta{}, err
	}
	if err := r.db.CommitBatch(ctx, batch); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// Get loads a transform definition by name.
func (r *Registry) Get(name string) (Meta, error) {
	b, err := r.db.Get(metaKey(name))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("registry: decode %s: %w", name, err)
	}
	return m, nil
}

// List returns every definition ordered by name.
func (r *Registry) List() ([]Meta, error) {
	it, err := r.db.NewPrefixIter(metaPrefix)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []Meta
	for ok := it.First(); ok; ok = it.Next() {
		var m Meta
		if err := json.Unmarshal(it.Value(), &m); err != nil {
			return nil, fmt.Errorf("registry: decode %s: %w", it.Key(), err)
		}
		out = append(out, m)
	}
	return out, it.Error()
}

// Delete removes a definition. Deleting an unknown name returns ErrNotFound.
func (r *Registry) Delete(name string) error {
	if _, err := r.Get(name); err != nil {
		return err
	}
	return r.db.Delete(metaKey(name))
}
