// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package vector stores chunk embeddings and answers nearest-neighbour
// queries over them.
package vector

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidStoreType      = errors.New("no vector store found for given type")
	ErrFailedStoreInitialize = errors.New("failed to initialise vector store")
	ErrCollectionNotFound    = errors.New("collection does not exist")
	ErrDimensionMismatch     = errors.New("vector length does not match collection dimensions")
)

const (
	StoreTypeQdrant = "qdrant"
	StoreTypeMemory = "memory"
)

// DefaultLimit is the number of matches returned when a query sets no limit.
const DefaultLimit = 10

type Store interface {
	// EnsureCollection creates the collection with cosine distance if it
	// does not exist yet.
	EnsureCollection(ctx context.Context, name string, dims uint) error

	// Upsert inserts records, overwriting any record with the same ID.
	Upsert(ctx context.Context, collection string, records ...*Record) error

	// Query returns the closest records ordered by descending score.
	Query(ctx context.Context, params *QueryParams) ([]*Match, error)

	Close() error
}

type Config struct {
	Type   string
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

func NewStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case StoreTypeQdrant:
		store, err := NewQdrantStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedStoreInitialize, err)
		}
		return store, nil
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidStoreType, cfg.Type)
	}
}

type Metadata struct {
	FileName   string `json:"file_name"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

type Record struct {
	ID        string
	Namespace string
	Vector    []float32
	Metadata  Metadata
}

type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

type QueryParams struct {
	collection  string
	query       []float32
	namespace   string
	withPayload bool
	limit       uint
}

type QueryParamsOption func(*QueryParams)

func NewQueryParams(collection string, query []float32, opts ...QueryParamsOption) *QueryParams {
	qp := &QueryParams{
		collection:  collection,
		query:       query,
		withPayload: true,
		limit:       DefaultLimit,
	}

	for _, opt := range opts {
		opt(qp)
	}
	return qp
}

func (qp *QueryParams) Collection() string {
	return qp.collection
}

func (qp *QueryParams) Limit() uint {
	return qp.limit
}

func (qp *QueryParams) Namespace() string {
	return qp.namespace
}

func WithPayload(w bool) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.withPayload = w
	}
}

func WithLimit(limit uint) QueryParamsOption {
	return func(qp *QueryParams) {
		if limit > 0 {
			qp.limit = limit
		}
	}
}

// WithNamespace restricts a query to records upserted under ns. An empty
// namespace matches every record.
func WithNamespace(ns string) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.namespace = ns
	}
}
