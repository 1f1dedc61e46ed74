package transformsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rzbill/flo-transform/internal/registry"
	"github.com/rzbill/flo-transform/internal/runtime"
	"github.com/rzbill/flo-transform/internal/transform"
	logpkg "github.com/rzbill/flo-transform/pkg/log"
)

// PartitionStatus reports one processor of a transform.
type PartitionStatus struct {
	Partition uint32          `json:"partition"`
	State     string          `json:"state"`
	RunID     string          `json:"runId,omitempty"`
	LastError string          `json:"lastError,omitempty"`
	Stats     transform.Stats `json:"stats"`
}

// Status joins a stored definition with the live state of its processors.
type Status struct {
	registry.Meta
	Partitions []PartitionStatus `json:"partitionStatus"`
}

type stateKey struct {
	name      string
	partition uint32
}

type lastState struct {
	state transform.State
	err   error
}

// Service deploys transforms from the registry onto a processor manager.
type Service struct {
	rt      *runtime.Runtime
	logger  logpkg.Logger
	manager *transform.Manager
	notify  transform.StatusFunc

	mu     sync.Mutex
	states map[stateKey]lastState
	// deploy serializes Deploy/Delete so a name is never started twice.
	deploy sync.Mutex
}

// New returns a Service whose processors live until ctx is done or Close is
// called. notify, when set, observes every processor state change.
func New(ctx context.Context, rt *runtime.Runtime, logger logpkg.Logger, notify transform.StatusFunc) *Service {
	if logger == nil {
		logger = logpkg.Nop()
	}
	s := &Service{
		rt:     rt,
		logger: logger.With(logpkg.Component("transforms")),
		notify: notify,
		states: make(map[stateKey]lastState),
	}
	s.manager = transform.NewManager(ctx, logger, s.onStatus)
	return s
}

func (s *Service) onStatus(name string, partition uint32, state transform.State, err error) {
	s.mu.Lock()
	s.states[stateKey{name, partition}] = lastState{state: state, err: err}
	s.mu.Unlock()
	if s.notify != nil {
		s.notify(name, partition, state, err)
	}
}

// Deploy stores m and (re)starts one processor per partition. A running
// transform with the same name is drained first.
func (s *Service) Deploy(ctx context.Context, m registry.Meta) (registry.Meta, error) {
	s.deploy.Lock()
	defer s.deploy.Unlock()

	meta, err := s.rt.Registry().Deploy(ctx, m)
	if err != nil {
		return registry.Meta{}, err
	}
	if err := s.manager.Drain(ctx, meta.Name); err != nil {
		return registry.Meta{}, fmt.Errorf("transforms: drain %s: %w", meta.Name, err)
	}
	s.forget(meta.Name)
	if err := s.start(ctx, meta); err != nil {
		return registry.Meta{}, err
	}
	s.logger.Info("transform deployed",
		logpkg.Str("name", meta.Name),
		logpkg.Str("source", meta.Source),
		logpkg.Str("sink", meta.Sink),
		logpkg.Int("partitions", meta.Partitions))
	return meta, nil
}

func (s *Service) start(ctx context.Context, meta registry.Meta) error {
	fn, err := transform.CompileCEL(meta.Filter, meta.Value)
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrInvalid, err)
	}
	cfg := s.rt.Config().Transform
	for p := range meta.Partitions {
		part := uint32(p)
		src, err := s.rt.OpenLog(meta.Namespace, meta.Source, part)
		if err != nil {
			return errors.Join(err, s.manager.Drain(ctx, meta.Name))
		}
		sink, err := s.rt.OpenLog(meta.Namespace, meta.Sink, part)
		if err != nil {
			return errors.Join(err, s.manager.Drain(ctx, meta.Name))
		}
		err = s.manager.Start(part, transform.Options{
			Name:         meta.Name,
			Source:       src,
			Sink:         sink,
			Transform:    fn,
			MemoryLimit:  meta.MemoryLimitBytes,
			MaxBatch:     meta.MaxBatch,
			PollInterval: cfg.PollInterval(),
		})
		if err != nil {
			return errors.Join(err, s.manager.Drain(ctx, meta.Name))
		}
	}
	return nil
}

// Resume starts every stored transform. Failures are logged and returned
// together; the remaining transforms still start.
func (s *Service) Resume(ctx context.Context) error {
	s.deploy.Lock()
	defer s.deploy.Unlock()

	list, err := s.rt.Registry().List()
	if err != nil {
		return err
	}
	var errs []error
	for _, meta := range list {
		if err := s.start(ctx, meta); err != nil {
			s.logger.Error("transform resume failed", logpkg.Str("name", meta.Name), logpkg.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", meta.Name, err))
			continue
		}
		s.logger.Info("transform resumed", logpkg.Str("name", meta.Name), logpkg.Int("partitions", meta.Partitions))
	}
	return errors.Join(errs...)
}

// Delete drains the transform's processors and removes its definition.
func (s *Service) Delete(ctx context.Context, name string) error {
	s.deploy.Lock()
	defer s.deploy.Unlock()

	if _, err := s.rt.Registry().Get(name); err != nil {
		return err
	}
	if err := s.manager.Drain(ctx, name); err != nil {
		return fmt.Errorf("transforms: drain %s: %w", name, err)
	}
	if err := s.rt.Registry().Delete(name); err != nil {
		return err
	}
	s.forget(name)
	s.logger.Info("transform deleted", logpkg.Str("name", name))
	return nil
}

func (s *Service) forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.states {
		if k.name == name {
			delete(s.states, k)
		}
	}
}

// Get returns the status of one transform.
func (s *Service) Get(name string) (Status, error) {
	meta, err := s.rt.Registry().Get(name)
	if err != nil {
		return Status{}, err
	}
	return s.status(meta, s.manager.List()), nil
}

// List returns the status of every stored transform ordered by name.
func (s *Service) List() ([]Status, error) {
	metas, err := s.rt.Registry().List()
	if err != nil {
		return nil, err
	}
	live := s.manager.List()
	out := make([]Status, 0, len(metas))
	for _, m := range metas {
		out = append(out, s.status(m, live))
	}
	return out, nil
}

func (s *Service) status(meta registry.Meta, live []transform.Info) Status {
	byPartition := make(map[uint32]transform.Info)
	for _, info := range live {
		if info.Name == meta.Name {
			byPartition[info.Partition] = info
		}
	}
	st := Status{Meta: meta, Partitions: make([]PartitionStatus, meta.Partitions)}
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range meta.Partitions {
		part := uint32(p)
		ps := PartitionStatus{Partition: part, State: transform.StateStopped.String()}
		if last, ok := s.states[stateKey{meta.Name, part}]; ok {
			ps.State = last.state.String()
			if last.err != nil {
				ps.LastError = last.err.Error()
			}
		}
		if info, ok := byPartition[part]; ok {
			ps.RunID = info.RunID
			ps.Stats = info.Stats
		}
		st.Partitions[p] = ps
	}
	return st
}

// Close stops every processor and waits for them to exit.
func (s *Service) Close() {
	s.manager.Stop()
	s.manager.Wait()
}
