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

// Package vector provides distance functions over float32 vectors and the
// vecindex.Space adapters that let pkg/hnsw, pkg/pnii, and the exact oracle
// operate on them through the opaque byte-encoded object model.
//
// # Basic Usage
//
//	space := vector.EuclideanSpace()
//	idx := hnsw.New(space, hnsw.WithM(16))
//	idx.Add(vector.Encode(embedding))
//
// Vectors are stored and passed around as little-endian float32 byte
// strings (Encode/Decode) so that every collaborator — the object buffer,
// the fused-format loader, and persistence — shares one wire
// representation regardless of which Space is in use.
package vector

import (
	"encoding/binary"
	"math"

	"github.com/vecindex/vecindex"
)

// DistanceFunc computes the distance between two decoded float32 vectors.
// Lower values indicate more similar vectors.
type DistanceFunc func(a, b []float32) float32

// Cosine computes the cosine distance (1 - cosine similarity).
// Returns 0 for identical-direction vectors, 2 for opposite vectors.
func Cosine(a, b []float32) float32 {
	return 1 - CosineSimilarity(a, b)
}

// CosineSimilarity computes the cosine similarity between two vectors, in
// range [-1, 1].
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(normA)*float64(normB)))
}

// Euclidean computes the squared Euclidean distance. Squaring avoids a
// sqrt on the hot path; it preserves the ordering nearest-neighbor search
// relies on.
func Euclidean(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.MaxFloat32)
	}
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// DotProduct computes the negative dot product, so that larger dot
// products (more similar vectors) become smaller distances.
func DotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.MaxFloat32)
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return -sum
}

// Normalize scales v to unit L2 length in place and returns it.
func Normalize(v []float32) []float32 {
	var norm float32
	for _, val := range v {
		norm += val * val
	}
	if norm == 0 {
		return v
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// NormalizeCopy returns a unit-length copy of v, leaving v untouched.
func NormalizeCopy(v []float32) []float32 {
	result := make([]float32, len(v))
	copy(result, v)
	return Normalize(result)
}

// Encode serializes a float32 vector to its little-endian byte
// representation, the wire form stored in the object buffer.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, val := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(val))
	}
	return buf
}

// Decode deserializes a little-endian byte string back into a float32
// vector. It returns nil if b's length is not a multiple of 4.
func Decode(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// symmetricByteSpace adapts a DistanceFunc over decoded vectors to
// vecindex.Space by decoding both operands with Decode.
type symmetricByteSpace struct {
	fn DistanceFunc
}

func (s symmetricByteSpace) DistanceIndex(a, b []byte) float32 {
	return s.fn(Decode(a), Decode(b))
}

func (s symmetricByteSpace) DistanceQuery(q, object []byte) float32 {
	return s.fn(Decode(q), Decode(object))
}

// EuclideanSpace returns a vecindex.Space over Encode-d float32 vectors
// using squared Euclidean distance.
func EuclideanSpace() vecindex.Space { return symmetricByteSpace{Euclidean} }

// cosineProxySpace additionally implements vecindex.ProxyDistancer for
// cosine distance: for unit-normalized vectors (the common case for
// embedding corpora), cosine distance is an affine function of the dot
// product alone, so ranking by negative dot product skips both norm
// computations entirely. Callers indexing non-normalized vectors still
// get correct final results — the core only uses this for provisional
// ranking and re-scores survivors with DistanceQuery/DistanceIndex.
type cosineProxySpace struct {
	symmetricByteSpace
}

func (s cosineProxySpace) ProxyDistance(a, b []byte) float32 {
	return DotProduct(Decode(a), Decode(b))
}

// CosineSpace returns a vecindex.Space over Encode-d float32 vectors using
// cosine distance. It also implements vecindex.ProxyDistancer.
func CosineSpace() vecindex.Space { return cosineProxySpace{symmetricByteSpace{Cosine}} }

// DotProductSpace returns a vecindex.Space over Encode-d float32 vectors
// using negative dot product as the distance.
func DotProductSpace() vecindex.Space { return symmetricByteSpace{DotProduct} }

// NormalizedQuerySpace returns an asymmetric vecindex.Space that stores
// index vectors as given but L2-normalizes the query side before computing
// dot product. This is the scenario-5 shape: an index built over
// unnormalized vectors searched with a normalized query, so
// DistanceIndex and DistanceQuery genuinely differ.
func NormalizedQuerySpace() vecindex.Space {
	return vecindex.NewAsymmetricSpace(
		func(a, b []byte) float32 { return DotProduct(Decode(a), Decode(b)) },
		func(q, object []byte) float32 {
			return DotProduct(NormalizeCopy(Decode(q)), Decode(object))
		},
	)
}
