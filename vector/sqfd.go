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

package vector

import (
	"encoding/binary"
	"math"

	"github.com/vecindex/vecindex"
)

// Signature is a feature signature: a small set of weighted cluster
// centers describing, e.g., the color/texture distribution of an image
// region. Centers and Weights must have the same length.
type Signature struct {
	Centers [][]float32
	Weights []float32
}

// SimilarityFunc scores the similarity of two signature centers; larger is
// more similar. SQFD is defined in terms of one of these.
type SimilarityFunc func(p1, p2 []float32) float32

// MinusSimilarity returns -EuclideanDistance(p1, p2): similarity decreases
// linearly with distance.
func MinusSimilarity(p1, p2 []float32) float32 {
	return -float32(math.Sqrt(float64(Euclidean(p1, p2))))
}

// HeuristicSimilarity returns 1 / (alpha + EuclideanDistance(p1, p2)).
func HeuristicSimilarity(alpha float32) SimilarityFunc {
	return func(p1, p2 []float32) float32 {
		return 1.0 / (alpha + float32(math.Sqrt(float64(Euclidean(p1, p2)))))
	}
}

// GaussianSimilarity returns exp(-alpha * d^2) where d is the Euclidean
// distance between p1 and p2.
func GaussianSimilarity(alpha float32) SimilarityFunc {
	return func(p1, p2 []float32) float32 {
		d2 := Euclidean(p1, p2)
		return float32(math.Exp(float64(-alpha * d2)))
	}
}

// SQFD computes the Signature Quadratic Form Distance between two feature
// signatures x and y under simfunc.
//
// Build the combined weight vector W = [x.Weights, -y.Weights], and the
// symmetric similarity matrix A over all centers from both signatures
// (A[i][j] = simfunc(centers[i], centers[j])). SQFD is sqrt(W^T A W).
// Because A is built from a similarity (not a distance) function, the
// quadratic form is minimized when x and y share the same weighted
// centers, which is what makes this usable as a distance.
func SQFD(simfunc SimilarityFunc, x, y Signature) float32 {
	nx, ny := len(x.Weights), len(y.Weights)
	n := nx + ny

	w := make([]float32, n)
	copy(w[:nx], x.Weights)
	for i, wy := range y.Weights {
		w[nx+i] = -wy
	}

	center := func(i int) []float32 {
		if i < nx {
			return x.Centers[i]
		}
		return y.Centers[i-nx]
	}

	// Fill the full n*n similarity matrix, evaluating simfunc once per
	// unordered pair, then compute A*w row by row.
	aw := make([]float32, n)
	a := make([]float32, n*n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := simfunc(center(i), center(j))
			a[i*n+j] = s
			a[j*n+i] = s
		}
	}
	for i := 0; i < n; i++ {
		var sum float32
		for j := 0; j < n; j++ {
			sum += a[i*n+j] * w[j]
		}
		aw[i] = sum
	}

	var quad float32
	for i := 0; i < n; i++ {
		quad += w[i] * aw[i]
	}
	if quad < 0 {
		// Guard against a negative value caused by floating-point
		// cancellation when x and y are nearly identical signatures.
		quad = 0
	}
	return float32(math.Sqrt(float64(quad)))
}

// EncodeSignature serializes a Signature to bytes: dim, count, then each
// center's dim float32s followed by its weight.
func EncodeSignature(sig Signature) []byte {
	dim := 0
	if len(sig.Centers) > 0 {
		dim = len(sig.Centers[0])
	}
	buf := make([]byte, 8, 8+len(sig.Centers)*(dim*4+4))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(dim))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(sig.Centers)))
	for i, c := range sig.Centers {
		buf = append(buf, Encode(c)...)
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], math.Float32bits(sig.Weights[i]))
		buf = append(buf, w[:]...)
	}
	return buf
}

// DecodeSignature parses bytes produced by EncodeSignature.
func DecodeSignature(b []byte) Signature {
	if len(b) < 8 {
		return Signature{}
	}
	dim := int(binary.LittleEndian.Uint32(b[0:4]))
	count := int(binary.LittleEndian.Uint32(b[4:8]))
	b = b[8:]
	sig := Signature{
		Centers: make([][]float32, 0, count),
		Weights: make([]float32, 0, count),
	}
	stride := dim*4 + 4
	for i := 0; i < count; i++ {
		if (i+1)*stride > len(b) {
			break
		}
		rec := b[i*stride : (i+1)*stride]
		sig.Centers = append(sig.Centers, Decode(rec[:dim*4]))
		sig.Weights = append(sig.Weights, math.Float32frombits(binary.LittleEndian.Uint32(rec[dim*4:])))
	}
	return sig
}

// SignatureSpace returns a vecindex.Space over EncodeSignature-d feature
// signatures, using SQFD under simfunc as the distance.
func SignatureSpace(simfunc SimilarityFunc) vecindex.Space {
	fn := func(a, b []byte) float32 {
		return SQFD(simfunc, DecodeSignature(a), DecodeSignature(b))
	}
	return vecindex.NewSymmetricSpace(fn)
}
