package qdrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"docqa/internal/domain"
)

// Storage keeps chunk vectors in a Qdrant collection over gRPC.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	apiKey      string
	collection  string
	timeout     time.Duration
}

type Config struct {
	Addr       string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStorage opens a gRPC client to the Qdrant server at cfg.Addr (host:6334).
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, errors.New("qdrant address is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}
	return &Storage{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		apiKey:      cfg.APIKey,
		collection:  cfg.Collection,
		timeout:     timeout,
	}, nil
}

// Close releases the gRPC connection.
func (s *Storage) Close() error { return s.conn.Close() }

func (s *Storage) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Init drops any previous collection and creates a fresh one sized for dimension.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	rctx, cancel := s.rpcContext(ctx)
	defer cancel()
	_, err := s.collections.Create(rctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: uint64(dimension), Distance: pb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(chunks))
	for i, ch := range chunks {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(ch.ChunkID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: toFloat32(vectors[i])},
			}},
			Payload: map[string]*pb.Value{
				"document_id": {Kind: &pb.Value_StringValue{StringValue: ch.DocumentID}},
				"chunk_id":    {Kind: &pb.Value_StringValue{StringValue: ch.ChunkID}},
				"index":       {Kind: &pb.Value_IntegerValue{IntegerValue: int64(ch.Index)}},
				"text":        {Kind: &pb.Value_StringValue{StringValue: ch.Text}},
			},
		}
	}
	wait := true
	rctx, cancel := s.rpcContext(ctx)
	defer cancel()
	if _, err := s.points.Upsert(rctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	rctx, cancel := s.rpcContext(ctx)
	defer cancel()
	resp, err := s.points.Search(rctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         toFloat32(vector),
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", s.collection, err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{Chunk: chunkFromPayload(r.Payload), Score: float64(r.Score)})
	}
	return results, nil
}

// Clear drops the collection if it exists.
func (s *Storage) Clear(ctx context.Context) error {
	rctx, cancel := s.rpcContext(ctx)
	defer cancel()
	list, err := s.collections.List(rctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	for _, c := range list.Collections {
		if c.Name != s.collection {
			continue
		}
		if _, err := s.collections.Delete(rctx, &pb.DeleteCollection{CollectionName: s.collection}); err != nil {
			return fmt.Errorf("deleting collection %s: %w", s.collection, err)
		}
	}
	return nil
}

// PointID maps a chunk ID to the deterministic UUID Qdrant requires.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func chunkFromPayload(payload map[string]*pb.Value) domain.Chunk {
	var ch domain.Chunk
	if v, ok := payload["document_id"]; ok {
		ch.DocumentID = v.GetStringValue()
	}
	if v, ok := payload["chunk_id"]; ok {
		ch.ChunkID = v.GetStringValue()
	}
	if v, ok := payload["index"]; ok {
		ch.Index = int(v.GetIntegerValue())
	}
	if v, ok := payload["text"]; ok {
		ch.Text = v.GetStringValue()
	}
	return ch
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
