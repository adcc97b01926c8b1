// Copyright 2026 Paperflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package session

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	turnKeyPrefix = "sesturn"
	turnIDSeq     = "sesturnseq"

	sequenceBandwidth = 100
)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// BadgerStore persists session turns in BadgerDB so conversation history
// survives process restarts.
type BadgerStore struct {
	db       *badger.DB
	seq      *badger.Sequence
	maxTurns int
	logger   *slog.Logger
}

var _ Store = (*BadgerStore)(nil)

// OpenBadgerStore opens a BadgerDB-backed store at the given path, creating
// the directory if needed. An empty path with inMemory set runs without
// disk persistence, which is what the tests use.
func OpenBadgerStore(filePath string, inMemory bool, maxTurns int) (*BadgerStore, error) {
	if maxTurns < 2 {
		maxTurns = 2
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(filePath)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}
	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	seq, err := db.GetSequence([]byte(turnIDSeq), sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BadgerStore{
		db:       db,
		seq:      seq,
		maxTurns: maxTurns,
		logger:   slog.Default().With("component", "session-store"),
	}, nil
}

// makeTurnKey builds "sesturn:<session>:<seq>" with the sequence encoded
// BigEndian so lexicographic iteration matches append order.
func makeTurnKey(sessionID string, seq uint64) []byte {
	prefix := []byte(turnKeyPrefix + ":" + sessionID + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

func sessionPrefix(sessionID string) []byte {
	return []byte(turnKeyPrefix + ":" + sessionID + ":")
}

func (s *BadgerStore) AppendTurn(_ context.Context, turn Turn) error {
	next, err := s.seq.Next()
	if err != nil {
		return err
	}
	value, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *badger.Txn) error {
		if err := tx.Set(makeTurnKey(turn.SessionID, next), value); err != nil {
			return err
		}
		return s.evictOldTurns(tx, turn.SessionID)
	})
	return err
}

// evictOldTurns deletes the oldest keys beyond the turn cap.
func (s *BadgerStore) evictOldTurns(tx *badger.Txn, sessionID string) error {
	prefix := sessionPrefix(sessionID)

	var keys [][]byte
	it := tx.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}

	for len(keys) > s.maxTurns {
		if err := tx.Delete(keys[0]); err != nil {
			return err
		}
		keys = keys[1:]
	}
	return nil
}

func (s *BadgerStore) ListTurns(_ context.Context, sessionID string) ([]Turn, error) {
	var turns []Turn
	err := s.db.View(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.IteratorOptions{
			Prefix:         sessionPrefix(sessionID),
			PrefetchValues: true,
			PrefetchSize:   s.maxTurns,
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var turn Turn
				if err := json.Unmarshal(value, &turn); err != nil {
					return err
				}
				turns = append(turns, turn)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return turns, err
}

// Close releases the sequence and closes the database.
func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("failed to release turn sequence", "err", err)
	}
	return s.db.Close()
}
