package faq

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const collection = "registrar_faq"

// faqNamespace seeds deterministic point IDs so re-indexing the same
// corpus updates points in place instead of duplicating them.
var faqNamespace = uuid.MustParse("7d0c8b8e-3c6f-4a22-9f3d-2b1a6c8e4f10")

// VectorStore wraps the Qdrant gRPC services used for FAQ retrieval.
type VectorStore struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
}

// NewVectorStore dials the Qdrant gRPC endpoint.
func NewVectorStore(host string, port int) (*VectorStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

// EnsureCollection creates the FAQ collection if it does not exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dimension uint64) error {
	_, err := v.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: collection})
	if err == nil {
		return nil
	}
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	return nil
}

// UpsertEntry stores one FAQ entry with its question vector. The point ID
// is derived from the question text, so upserts are idempotent.
func (v *VectorStore) UpsertEntry(ctx context.Context, entry Entry, vector []float32) error {
	id := uuid.NewSHA1(faqNamespace, []byte(entry.Question)).String()
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points: []*pb.PointStruct{
			{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}}},
				Payload: map[string]*pb.Value{
					"question": {Kind: &pb.Value_StringValue{StringValue: entry.Question}},
					"answer":   {Kind: &pb.Value_StringValue{StringValue: entry.Answer}},
				},
			},
		},
	})
	return err
}

// Hit is a single vector search result.
type Hit struct {
	Entry Entry
	Score float32
}

// Nearest returns the top-K entries closest to the query vector.
func (v *VectorStore) Nearest(ctx context.Context, vector []float32, topK uint64) ([]Hit, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          topK,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		h := Hit{Score: r.Score}
		if q, ok := r.Payload["question"].Kind.(*pb.Value_StringValue); ok {
			h.Entry.Question = q.StringValue
		}
		if a, ok := r.Payload["answer"].Kind.(*pb.Value_StringValue); ok {
			h.Entry.Answer = a.StringValue
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Close tears down the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}
