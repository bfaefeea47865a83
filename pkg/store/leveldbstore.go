// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

//go:build !js

package store

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBStore is a disk-backed object buffer for datasets too large to
// keep resident in memory. Objects are keyed by their big-endian uint32 id
// so that LevelDB's sorted iteration order matches id order.
type LevelDBStore struct {
	db   *leveldb.DB
	next uint32
}

// OpenLevelDBStore opens (creating if necessary) a LevelDB-backed object
// buffer at path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	s := &LevelDBStore{db: db}
	iter := db.NewIterator(nil, nil)
	for iter.Next() {
		id := binary.BigEndian.Uint32(iter.Key())
		if id+1 > s.next {
			s.next = id + 1
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying LevelDB handle.
func (s *LevelDBStore) Close() error { return s.db.Close() }

// Append stores obj under the next sequential id and returns that id.
func (s *LevelDBStore) Append(obj []byte) (uint32, error) {
	id := s.next
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], id)
	if err := s.db.Put(key[:], obj, nil); err != nil {
		return 0, err
	}
	s.next++
	return id, nil
}

// Get returns the stored bytes for id.
func (s *LevelDBStore) Get(id uint32) ([]byte, error) {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], id)
	v, err := s.db.Get(key[:], nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

// Len returns the number of objects appended so far.
func (s *LevelDBStore) Len() int { return int(s.next) }

var _ ObjectStore = (*LevelDBStore)(nil)
