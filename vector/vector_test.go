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
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
		epsilon  float32
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0, 0.0001},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0, 0.0001},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0, 0.0001},
		{"45 degree angle", []float32{1, 0}, []float32{1, 1}, float32(1 / math.Sqrt(2)), 0.0001},
		{"empty vectors", []float32{}, []float32{}, 0, 0.0001},
		{"mismatched dimensions", []float32{1, 2}, []float32{1, 2, 3}, 0, 0.0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(result-tt.expected)) > float64(tt.epsilon) {
				t.Errorf("CosineSimilarity() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCosineDistance(t *testing.T) {
	a := []float32{1, 0, 0}
	if dist := Cosine(a, a); dist != 0 {
		t.Errorf("Cosine() for identical vectors = %v, want 0", dist)
	}
	c := []float32{-1, 0, 0}
	if dist := Cosine(a, c); math.Abs(float64(dist-2)) > 0.0001 {
		t.Errorf("Cosine() for opposite vectors = %v, want 2", dist)
	}
}

func TestEuclidean(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}
	if dist := Euclidean(a, b); dist != 25 {
		t.Errorf("Euclidean() = %v, want 25", dist)
	}
}

func TestEuclideanMismatchedDimensions(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{1, 2, 3}
	if dist := Euclidean(a, b); dist != float32(math.MaxFloat32) {
		t.Errorf("Euclidean() with mismatched dims = %v, want MaxFloat32", dist)
	}
}

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"unit vectors same direction", []float32{1, 0, 0}, []float32{1, 0, 0}, -1.0},
		{"unit vectors opposite direction", []float32{1, 0, 0}, []float32{-1, 0, 0}, 1.0},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"scaled vectors", []float32{2, 3}, []float32{4, 5}, -23.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DotProduct(tt.a, tt.b)
			if math.Abs(float64(result-tt.expected)) > 0.0001 {
				t.Errorf("DotProduct() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDotProductMismatchedDimensions(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{1, 2, 3}
	if result := DotProduct(a, b); result != float32(math.MaxFloat32) {
		t.Errorf("DotProduct() with mismatched dims = %v, want MaxFloat32", result)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	result := NormalizeCopy(v)

	var norm float32
	for _, val := range result {
		norm += val * val
	}
	norm = float32(math.Sqrt(float64(norm)))
	if math.Abs(float64(norm-1)) > 0.0001 {
		t.Errorf("Normalized vector norm = %v, want 1", norm)
	}
	if v[0] != 3 || v[1] != 4 {
		t.Error("NormalizeCopy modified original vector")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := []float32{1.5, -2.5, 3.14159, 0, -0.00001}
	restored := Decode(Encode(original))

	if len(restored) != len(original) {
		t.Fatalf("Decode length = %d, want %d", len(restored), len(original))
	}
	for i := range original {
		if restored[i] != original[i] {
			t.Errorf("Decode[%d] = %v, want %v", i, restored[i], original[i])
		}
	}
}

func TestDecodeInvalidLength(t *testing.T) {
	if result := Decode([]byte{1, 2, 3}); result != nil {
		t.Error("Decode should return nil for a length not a multiple of 4")
	}
}

func TestEuclideanSpaceMatchesFunc(t *testing.T) {
	space := EuclideanSpace()
	a := []float32{0, 0}
	b := []float32{3, 4}
	got := space.DistanceIndex(Encode(a), Encode(b))
	if got != Euclidean(a, b) {
		t.Errorf("EuclideanSpace DistanceIndex = %v, want %v", got, Euclidean(a, b))
	}
	if got := space.DistanceQuery(Encode(a), Encode(b)); got != Euclidean(a, b) {
		t.Errorf("EuclideanSpace DistanceQuery = %v, want %v", got, Euclidean(a, b))
	}
}

func TestNormalizedQuerySpaceIsAsymmetric(t *testing.T) {
	space := NormalizedQuerySpace()
	a := []float32{2, 0}
	b := []float32{1, 0}

	indexDist := space.DistanceIndex(Encode(a), Encode(b))
	wantIndex := DotProduct(a, b)
	if indexDist != wantIndex {
		t.Errorf("DistanceIndex = %v, want %v", indexDist, wantIndex)
	}

	queryDist := space.DistanceQuery(Encode(a), Encode(b))
	wantQuery := DotProduct(NormalizeCopy(a), b)
	if math.Abs(float64(queryDist-wantQuery)) > 1e-5 {
		t.Errorf("DistanceQuery = %v, want %v", queryDist, wantQuery)
	}
	if indexDist == queryDist {
		t.Error("expected DistanceIndex and DistanceQuery to differ for an asymmetric space")
	}
}

func TestSQFDIdenticalSignaturesIsZero(t *testing.T) {
	sig := Signature{
		Centers: [][]float32{{0, 0}, {1, 1}},
		Weights: []float32{0.5, 0.5},
	}
	d := SQFD(GaussianSimilarity(1.0), sig, sig)
	if d > 1e-3 {
		t.Errorf("SQFD(sig, sig) = %v, want ~0", d)
	}
}

func TestSQFDSymmetric(t *testing.T) {
	x := Signature{Centers: [][]float32{{0, 0}, {5, 5}}, Weights: []float32{0.6, 0.4}}
	y := Signature{Centers: [][]float32{{1, 1}, {4, 6}}, Weights: []float32{0.3, 0.7}}
	sim := HeuristicSimilarity(1.0)
	dxy := SQFD(sim, x, y)
	dyx := SQFD(sim, y, x)
	if math.Abs(float64(dxy-dyx)) > 1e-3 {
		t.Errorf("SQFD not symmetric: d(x,y)=%v, d(y,x)=%v", dxy, dyx)
	}
}

func TestSignatureEncodeDecodeRoundTrip(t *testing.T) {
	sig := Signature{
		Centers: [][]float32{{1, 2, 3}, {4, 5, 6}},
		Weights: []float32{0.25, 0.75},
	}
	decoded := DecodeSignature(EncodeSignature(sig))
	if len(decoded.Centers) != len(sig.Centers) {
		t.Fatalf("decoded %d centers, want %d", len(decoded.Centers), len(sig.Centers))
	}
	for i := range sig.Centers {
		for j := range sig.Centers[i] {
			if decoded.Centers[i][j] != sig.Centers[i][j] {
				t.Errorf("center[%d][%d] = %v, want %v", i, j, decoded.Centers[i][j], sig.Centers[i][j])
			}
		}
		if decoded.Weights[i] != sig.Weights[i] {
			t.Errorf("weight[%d] = %v, want %v", i, decoded.Weights[i], sig.Weights[i])
		}
	}
}
