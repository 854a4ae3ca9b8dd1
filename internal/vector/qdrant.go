package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alan-mat/docqa/internal/apperr"
)

// pointNamespace seeds the name-based UUIDs qdrant point ids are derived from.
var pointNamespace = uuid.MustParse("5b0c8a5e-3f44-4bd6-a7f3-0f6c2f4a9e10")

const (
	payloadRecordID   = "record_id"
	payloadNamespace  = "namespace"
	payloadFileName   = "file_name"
	payloadChunkIndex = "chunk_index"
	payloadText       = "text"
)

type QdrantStore struct {
	client     *qdrant.Client
	waitUpsert bool
}

func NewQdrantStore(cfg Config) (*QdrantStore, error) {
	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 6334
	}

	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, err
	}

	s := &QdrantStore{
		client:     c,
		waitUpsert: true,
	}
	return s, nil
}

// PointID maps a record id to the UUID qdrant stores it under.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, dims uint) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return apperr.External("qdrant collection exists", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return apperr.External("qdrant create collection", err)
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, records ...*Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadRecordID:   r.ID,
				payloadNamespace:  r.Namespace,
				payloadFileName:   r.Metadata.FileName,
				payloadChunkIndex: int64(r.Metadata.ChunkIndex),
				payloadText:       r.Metadata.Text,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &s.waitUpsert,
		Points:         points,
	})
	if err != nil {
		return apperr.External("qdrant upsert", fmt.Errorf("collection '%s': %w", collection, err))
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, params *QueryParams) ([]*Match, error) {
	limit := uint64(params.limit)
	queryPoints := &qdrant.QueryPoints{
		CollectionName: params.collection,
		Query:          qdrant.NewQuery(params.query...),
		WithPayload:    qdrant.NewWithPayload(true),
		Limit:          &limit,
	}

	if params.namespace != "" {
		queryPoints.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadNamespace, params.namespace),
			},
		}
	}

	res, err := s.client.Query(ctx, queryPoints)
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: '%s'", ErrCollectionNotFound, params.collection)
	}
	if err != nil {
		return nil, apperr.External("qdrant query", err)
	}

	matches := make([]*Match, 0, len(res))
	for _, sp := range res {
		m := &Match{
			ID:    sp.Id.GetUuid(),
			Score: sp.Score,
		}
		if id := sp.Payload[payloadRecordID].GetStringValue(); id != "" {
			m.ID = id
		}
		if params.withPayload {
			m.Metadata = Metadata{
				FileName:   sp.Payload[payloadFileName].GetStringValue(),
				ChunkIndex: int(sp.Payload[payloadChunkIndex].GetIntegerValue()),
				Text:       sp.Payload[payloadText].GetStringValue(),
			}
		}
		matches = append(matches, m)
	}

	return matches, nil
}

func isNotFound(err error) bool {
	var se interface{ GRPCStatus() *status.Status }
	return errors.As(err, &se) && se.GRPCStatus().Code() == codes.NotFound
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
