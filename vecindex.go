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

// Package vecindex provides approximate and exact nearest-neighbor search
// over arbitrary object representations.
//
// The central abstraction is Space: a pair of distance functions over
// opaque, caller-encoded object byte strings. Everything downstream — the
// HNSW graph index in pkg/hnsw, the pivot-neighborhood inverted index in
// pkg/pnii, and the brute-force oracle in the exact package — is built
// against Space, not against any particular vector encoding. The vector
// subpackage supplies ready-made Spaces over little-endian float32 vectors
// (Euclidean, cosine, dot product, SQFD), and callers can implement Space
// directly for other payloads such as sparse term vectors.
//
// # Symmetric vs. asymmetric spaces
//
// Most distance functions are symmetric: d(a, b) == d(b, a). Some are not —
// for example, an index built from quantized vectors but queried with
// full-precision ones. Space always exposes both DistanceIndex (object vs.
// object, used while building) and DistanceQuery (query vs. object, used
// while searching) so asymmetric metrics are representable without forcing
// every caller to pay for a symmetry check it doesn't need. A symmetric
// space can implement both methods identically; NewSymmetricSpace does
// this for a single distance function over encoded objects.
//
// # Errors
//
// Operations that fail because of malformed input return one of the
// sentinel error types below, wrapped with fmt.Errorf's %w so callers can
// use errors.As/errors.Is. A canceled context is not reported as an error:
// search operations return their best-effort partial result together with
// an ok bool, matching the "first do no harm, return what you have"
// contract described on pkg/hnsw's Index.Search.
package vecindex

import "fmt"

// Space computes distances between opaque, caller-defined object
// encodings. Implementations must be safe for concurrent read-only use.
type Space interface {
	// DistanceIndex computes the distance between two indexed objects.
	// Used while building an index (graph construction, pivot selection).
	DistanceIndex(a, b []byte) float32

	// DistanceQuery computes the distance between a query object and an
	// indexed object. Used while searching. For a symmetric metric this
	// is identical to DistanceIndex.
	DistanceQuery(query, object []byte) float32
}

// symmetricSpace adapts a single distance function to Space by using it
// for both DistanceIndex and DistanceQuery.
type symmetricSpace struct {
	fn func(a, b []byte) float32
}

// NewSymmetricSpace builds a Space from a single distance function used
// for both construction and search.
func NewSymmetricSpace(fn func(a, b []byte) float32) Space {
	return symmetricSpace{fn: fn}
}

func (s symmetricSpace) DistanceIndex(a, b []byte) float32   { return s.fn(a, b) }
func (s symmetricSpace) DistanceQuery(q, object []byte) float32 { return s.fn(q, object) }

// asymmetricSpace adapts two distinct distance functions to Space.
type asymmetricSpace struct {
	indexFn func(a, b []byte) float32
	queryFn func(q, object []byte) float32
}

// NewAsymmetricSpace builds a Space whose construction-time and
// query-time distance functions differ.
func NewAsymmetricSpace(indexFn, queryFn func(a, b []byte) float32) Space {
	return asymmetricSpace{indexFn: indexFn, queryFn: queryFn}
}

func (s asymmetricSpace) DistanceIndex(a, b []byte) float32    { return s.indexFn(a, b) }
func (s asymmetricSpace) DistanceQuery(q, object []byte) float32 { return s.queryFn(q, object) }

// ProxyDistancer is an optional capability a Space may additionally
// implement: a cheaper monotone surrogate for DistanceIndex/DistanceQuery,
// used only to rank candidates during a search or build step that will
// re-score its survivors against the real metric before returning them.
// It is never required — callers that want it type-assert for it (see
// pkg/hnsw's rankDistance) and fall back to DistanceQuery/DistanceIndex
// when a Space doesn't implement it. Implementations are responsible for
// the surrogate actually being monotone with the metric it stands in for;
// the core never assumes this beyond "ranking narrows, a later exact
// re-rank decides the final order."
type ProxyDistancer interface {
	ProxyDistance(a, b []byte) float32
}

// FormatError reports that an on-disk or wire payload could not be parsed
// (wrong magic, truncated record, a field outside its valid range).
type FormatError struct {
	Context string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vecindex: format error in %s: %v", e.Context, e.Err)
	}
	return fmt.Sprintf("vecindex: format error in %s", e.Context)
}

func (e *FormatError) Unwrap() error { return e.Err }

// CapacityError reports that an index or buffer has reached a hard
// capacity limit (for example, more than math.MaxUint32 objects).
type CapacityError struct {
	Context string
	Limit   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("vecindex: %s exceeds capacity limit of %d", e.Context, e.Limit)
}

// CorruptError reports that a persisted index file failed a structural
// integrity check (bad magic, unsupported version, checksum mismatch).
// Unlike FormatError, which covers malformed input data, CorruptError
// specifically covers a persistence load rejecting its own file.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("vecindex: corrupt index file %q: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// ParamError reports an invalid configuration parameter (e.g. k <= 0, or
// M < 2 for an HNSW index).
type ParamError struct {
	Param string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("vecindex: invalid parameter %s: %v", e.Param, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }
