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

package hnsw

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/vecindex/vecindex"
	"github.com/vecindex/vecindex/vector"
)

// Round-trip property: persisting and reloading an index must not
// change search results for a batch of random queries.
func TestSaveLoadRoundTrip(t *testing.T) {
	space := vector.EuclideanSpace()
	idx := New(space, WithM(8), WithEfConstruction(60), WithSeed(5))

	points := randomVectors(500, 12, 5)
	objects := make([][]byte, len(points))
	for i, p := range points {
		objects[i] = vector.Encode(p)
		if _, err := idx.Add(objects[i]); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(&buf, space, objects)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	queries := randomVectors(100, 12, 6)
	for _, q := range queries {
		enc := vector.Encode(q)
		before, ok1 := idx.Search(context.Background(), enc, 10)
		after, ok2 := reloaded.Search(context.Background(), enc, 10)
		if ok1 != ok2 {
			t.Fatalf("ok mismatch: before=%v after=%v", ok1, ok2)
		}
		if len(before) != len(after) {
			t.Fatalf("result length mismatch: %d vs %d", len(before), len(after))
		}
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("result %d mismatch: %+v vs %+v", i, before[i], after[i])
			}
		}
	}
}

func TestLoadRejectsWrongObjectCount(t *testing.T) {
	space := vector.EuclideanSpace()
	idx := New(space, WithM(4), WithEfConstruction(20), WithSeed(1))
	objects := make([][]byte, 10)
	for i, p := range randomVectors(10, 4, 1) {
		objects[i] = vector.Encode(p)
		idx.Add(objects[i])
	}

	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := Load(&buf, space, objects[:5])
	if err == nil {
		t.Fatal("expected an error loading with a mismatched object count")
	}
	var corrupt *vecindex.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected a CorruptError, got %T: %v", err, err)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	space := vector.EuclideanSpace()
	_, err := Load(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8}), space, nil)
	if err == nil {
		t.Fatal("expected an error loading a stream with the wrong magic")
	}
	var corrupt *vecindex.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected a CorruptError, got %T: %v", err, err)
	}
}
