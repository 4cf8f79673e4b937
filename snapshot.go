package adaptcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BillPolly/adaptcache/codec"
	"github.com/BillPolly/adaptcache/errors"
	"github.com/BillPolly/adaptcache/metrics"
	"github.com/BillPolly/adaptcache/tier"
)

// snapshotVersion guards the serialized format
const snapshotVersion = 1

// snapshotState is the serialized form of a cache
type snapshotState[K comparable, V any] struct {
	ID        string                `json:"id"`
	Version   int                   `json:"version"`
	CreatedAt time.Time             `json:"createdAt"`
	Main      []tier.KeyEntry[K, V] `json:"main"`
	Prefetch  []tier.KeyEntry[K, V] `json:"prefetch"`
	Counters  metrics.Snapshot      `json:"counters"`
}

// Serialize renders the live entries of both tiers and the counters into a
// JSON blob. Compressed entries are carried verbatim; restoring them needs
// no codec configuration. Expired entries are left out.
func (s *Store[K, V, C]) Serialize() ([]byte, error) {
	if s.closed.Load() {
		return nil, errors.WrapError("Serialize", nil, errors.ErrCacheClosed)
	}

	state := snapshotState[K, V]{
		ID:        uuid.NewString(),
		Version:   snapshotVersion,
		CreatedAt: time.Now(),
		Main:      s.main.Dump(),
		Prefetch:  s.prefetch.Dump(),
		Counters:  s.metrics.GetSnapshot(),
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, errors.WrapError("Serialize", nil, errors.ErrSerialization)
	}

	s.logger.Debug("cache serialized",
		zap.String("snapshot", state.ID),
		zap.Int("entries", len(state.Main)+len(state.Prefetch)))
	return data, nil
}

// Deserialize replaces the cache contents and counters with a previously
// serialized snapshot. The blob is fully validated before anything mutates;
// a malformed snapshot leaves the cache untouched and returns
// ErrInvalidSnapshot.
func (s *Store[K, V, C]) Deserialize(data []byte) error {
	if s.closed.Load() {
		return errors.WrapError("Deserialize", nil, errors.ErrCacheClosed)
	}

	var state snapshotState[K, V]
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("rejecting snapshot", zap.Error(err))
		return errors.WrapError("Deserialize", nil, errors.ErrInvalidSnapshot)
	}
	if err := validateSnapshot(&state); err != nil {
		s.logger.Warn("rejecting snapshot", zap.String("snapshot", state.ID), zap.Error(err))
		return err
	}

	s.evictMu.Lock()
	s.main.Clear()
	for _, ke := range state.Main {
		if ke.Entry.Expired() {
			continue
		}
		entry := ke.Entry
		s.main.Put(ke.Key, &entry)
	}
	s.prefetch.Clear()
	for _, ke := range state.Prefetch {
		if ke.Entry.Expired() {
			continue
		}
		entry := ke.Entry
		s.prefetch.Put(ke.Key, &entry)
	}
	s.evictMu.Unlock()

	s.metrics.Restore(state.Counters)
	s.refreshGauges()

	s.logger.Debug("cache restored",
		zap.String("snapshot", state.ID),
		zap.Int("main_entries", s.main.Len()),
		zap.Int("prefetch_entries", s.prefetch.Len()))
	return nil
}

// SaveSnapshot serializes the cache into a file, creating parent
// directories as needed
func (s *Store[K, V, C]) SaveSnapshot(path string) error {
	data, err := s.Serialize()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError("SaveSnapshot", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError("SaveSnapshot", path, err)
	}
	return nil
}

// LoadSnapshotFile restores the cache from a file written by SaveSnapshot
func (s *Store[K, V, C]) LoadSnapshotFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapError("LoadSnapshotFile", path, err)
	}
	return s.Deserialize(data)
}

func validateSnapshot[K comparable, V any](state *snapshotState[K, V]) error {
	if state.Version != snapshotVersion {
		return errors.WrapError("Deserialize", state.Version, errors.ErrInvalidSnapshot)
	}
	if state.ID == "" {
		return errors.WrapError("Deserialize", nil, errors.ErrInvalidSnapshot)
	}
	for _, group := range [][]tier.KeyEntry[K, V]{state.Main, state.Prefetch} {
		for _, ke := range group {
			e := ke.Entry
			if e.OriginalSize < 0 || e.CompressedSize < 0 || e.AccessCount < 0 {
				return errors.WrapError("Deserialize", ke.Key, errors.ErrInvalidSnapshot)
			}
			if e.Compressed == nil {
				continue
			}
			switch e.Compressed.Algorithm {
			case codec.AlgorithmDictionary, codec.AlgorithmGzip:
			default:
				return errors.WrapError("Deserialize", ke.Key, errors.ErrInvalidSnapshot)
			}
		}
	}
	return nil
}
