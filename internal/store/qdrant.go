package store

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore implements Store against a remote Qdrant instance over gRPC.
// Chunk ids are UUIDs, which qdrant accepts natively as point ids, so the
// deterministic-id upsert semantics carry over unchanged.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	collection  string
	dimension   int
	addr        string
}

// NewQdrantStore connects to host:port and ensures the collection exists with
// a cosine-distance vector config of the given dimension.
func NewQdrantStore(ctx context.Context, host string, port int, collection string, dimension int) (*QdrantStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("qdrant backend requires a positive vector dimension")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}

	s := &QdrantStore{
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		collection:  collection,
		dimension:   dimension,
		addr:        addr,
	}

	if err := s.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list qdrant collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		vector := r.Vector
		if len(vector) == 0 {
			// Qdrant requires a vector per point; a zero vector keeps the
			// chunk listable for lexical scoring in degraded mode.
			vector = make([]float32, s.dimension)
		}
		points = append(points, &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: vector},
				},
			},
			Payload: recordPayload(r),
		})
	}

	wait := true
	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]Result, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		r := payloadRecord(p.GetId().GetUuid(), p.GetPayload())
		results = append(results, Result{Record: r, Score: float64(p.GetScore())})
	}
	return results, nil
}

func (s *QdrantStore) DeleteByFile(ctx context.Context, file string) (int, error) {
	filter := fileFilter(file)

	exact := true
	count, err := s.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	removed := int(count.GetResult().GetCount())
	if removed == 0 {
		return 0, nil
	}

	wait := true
	_, err = s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant delete: %w", err)
	}
	return removed, nil
}

func (s *QdrantStore) ListAll(ctx context.Context) ([]Record, error) {
	var records []Record
	var offset *qdrant.PointId
	limit := uint32(256)

	for {
		resp, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload: &qdrant.WithPayloadSelector{
				SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
			},
			WithVectors: &qdrant.WithVectorsSelector{
				SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: true},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll: %w", err)
		}

		for _, p := range resp.GetResult() {
			r := payloadRecord(p.GetId().GetUuid(), p.GetPayload())
			r.Vector = p.GetVectors().GetVector().GetData()
			records = append(records, r)
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	return records, nil
}

func (s *QdrantStore) Stats(ctx context.Context) (Stats, error) {
	exact := true
	count, err := s.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return Stats{}, fmt.Errorf("qdrant count: %w", err)
	}
	return Stats{
		Count:     int(count.GetResult().GetCount()),
		Dimension: s.dimension,
		Location:  fmt.Sprintf("qdrant://%s/%s", s.addr, s.collection),
	}, nil
}

func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

func fileFilter(file string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "file",
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: file},
					},
				},
			},
		}},
	}
}

func recordPayload(r Record) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"file":       {Kind: &qdrant.Value_StringValue{StringValue: r.File}},
		"area":       {Kind: &qdrant.Value_StringValue{StringValue: r.Area}},
		"language":   {Kind: &qdrant.Value_StringValue{StringValue: r.Language}},
		"start_line": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(r.StartLine)}},
		"end_line":   {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(r.EndLine)}},
		"text":       {Kind: &qdrant.Value_StringValue{StringValue: r.Text}},
	}
}

func payloadRecord(id string, payload map[string]*qdrant.Value) Record {
	return Record{
		ID:        id,
		File:      payload["file"].GetStringValue(),
		Area:      payload["area"].GetStringValue(),
		Language:  payload["language"].GetStringValue(),
		StartLine: int(payload["start_line"].GetIntegerValue()),
		EndLine:   int(payload["end_line"].GetIntegerValue()),
		Text:      payload["text"].GetStringValue(),
	}
}
