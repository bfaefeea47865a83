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

package pnii

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/vecindex/vecindex"
	"github.com/vecindex/vecindex/vector"
)

func TestPNIISaveLoadRoundTrip(t *testing.T) {
	space := vector.EuclideanSpace()
	objects := randomVectors(400, 10, 8)

	idx, err := New(context.Background(), space, objects,
		WithNumPivots(24), WithNumPivotIndex(6), WithNumPivotSearch(3), WithSeed(8))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// K_srch is a query-time setting that Save does not store, so the
	// reload is given the same value the original index was built with.
	reloaded, err := Load(&buf, space, objects, WithNumPivotSearch(3))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	queries := randomVectors(100, 10, 9)
	for _, q := range queries {
		before := idx.Search(q, 10)
		after := reloaded.Search(q, 10)
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

func TestPNIILoadRejectsWrongObjectCount(t *testing.T) {
	space := vector.EuclideanSpace()
	objects := randomVectors(50, 4, 1)
	idx, err := New(context.Background(), space, objects, WithNumPivots(8), WithNumPivotIndex(3), WithSeed(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err = Load(&buf, space, objects[:10])
	if err == nil {
		t.Fatal("expected an error loading with a mismatched object count")
	}
	var corrupt *vecindex.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected a CorruptError, got %T: %v", err, err)
	}
}

func TestPNIILoadRejectsBadMagic(t *testing.T) {
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
