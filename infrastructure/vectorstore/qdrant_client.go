package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	"solidity-audit-bot/domain"
	"solidity-audit-bot/infrastructure/logging"
)

// QdrantClient implements the domain.VectorStore interface using Qdrant.
type QdrantClient struct {
	points         qdrant.PointsClient
	collections    qdrant.CollectionsClient
	collectionName string
	dimension      uint64
	distance       qdrant.Distance
	logger         *slog.Logger
}

// NewQdrantClient connects to Qdrant over gRPC. The collection itself is
// created by Init, which the caller runs as an explicit startup step.
func NewQdrantClient(addr, collectionName string, dimension uint64, metric string) (*QdrantClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}

	return &QdrantClient{
		points:         qdrant.NewPointsClient(conn),
		collections:    qdrant.NewCollectionsClient(conn),
		collectionName: collectionName,
		dimension:      dimension,
		distance:       parseDistance(metric),
		logger:         logging.NewModuleLogger("vectorstore", "qdrant"),
	}, nil
}

func parseDistance(metric string) qdrant.Distance {
	switch strings.ToLower(metric) {
	case "dot":
		return qdrant.Distance_Dot
	case "euclid":
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

// Init checks that the collection exists and creates it if it does not.
func (c *QdrantClient) Init(ctx context.Context) error {
	_, err := c.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: c.collectionName,
	})
	if err == nil {
		return nil
	}

	c.logger.Info("Collection does not exist, creating",
		"collection", c.collectionName,
		"dimension", c.dimension,
	)

	_, err = c.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: c.collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     c.dimension,
					Distance: c.distance,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// mapToPayload converts a generic map to the Qdrant payload representation.
func mapToPayload(data map[string]interface{}) (map[string]*qdrant.Value, error) {
	payload := make(map[string]*qdrant.Value)
	for key, val := range data {
		switch v := val.(type) {
		case string:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		case int:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}
		case int64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v}}
		case float64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}
		case bool:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v}}
		case []string:
			listValues := make([]*qdrant.Value, len(v))
			for i, s := range v {
				listValues[i] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
			}
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: listValues}}}
		default:
			return nil, fmt.Errorf("unsupported type for payload field '%s': %T", key, v)
		}
	}
	return payload, nil
}

// Upsert inserts the chunks into the collection. Chunks without an embedding
// are skipped.
func (c *QdrantClient) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, ch := range chunks {
		if ch.Embedding == nil {
			continue
		}

		patterns := make([]string, len(ch.Patterns))
		for i, p := range ch.Patterns {
			patterns[i] = string(p)
		}

		payloadMap := map[string]interface{}{
			"content":           ch.Content,
			"file_path":         ch.FilePath,
			"file_hash":         ch.FileHash,
			"chunk_index":       ch.Index,
			"total_chunks":      ch.Total,
			"pragma":            ch.Metadata.Pragma,
			"contracts":         ch.Metadata.Contracts,
			"functions":         ch.Metadata.Functions,
			"security_patterns": patterns,
			"content_type":      ch.ContentType,
		}

		payload, err := mapToPayload(payloadMap)
		if err != nil {
			return fmt.Errorf("failed to convert payload for chunk %s: %w", ch.ID, err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: ch.ID}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: ch.Embedding}}},
			Payload: payload,
		})
	}

	if len(points) == 0 {
		return nil
	}

	_, err := c.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collectionName,
		Points:         points,
		Wait:           proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points to Qdrant: %w", err)
	}

	return nil
}

// hashFilter builds an exact-match filter on the file_hash payload field.
func (c *QdrantClient) hashFilter(fileHash string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "file_hash",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: fileHash},
						},
					},
				},
			},
		},
	}
}

// CountByHash counts stored chunks carrying the given content hash. This is
// the pipeline's dedup check.
func (c *QdrantClient) CountByHash(ctx context.Context, fileHash string) (uint64, error) {
	resp, err := c.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.collectionName,
		Filter:         c.hashFilter(fileHash),
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points by hash: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

// Search returns the k chunks most similar to the embedding, with scores.
func (c *QdrantClient) Search(ctx context.Context, embedding domain.Embedding, k int) ([]domain.SearchResult, error) {
	searchResult, err := c.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: c.collectionName,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points in Qdrant: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(searchResult.GetResult()))
	for _, hit := range searchResult.GetResult() {
		payload := hit.GetPayload()
		if payload == nil {
			continue
		}

		patternStrings := stringList(payload["security_patterns"])
		patterns := make([]domain.SecurityPatternTag, len(patternStrings))
		for i, p := range patternStrings {
			patterns[i] = domain.SecurityPatternTag(p)
		}

		pointID := ""
		if uuidVal, ok := hit.GetId().GetPointIdOptions().(*qdrant.PointId_Uuid); ok {
			pointID = uuidVal.Uuid
		}

		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:       pointID,
				Content:  payload["content"].GetStringValue(),
				FilePath: payload["file_path"].GetStringValue(),
				FileHash: payload["file_hash"].GetStringValue(),
				Index:    int(payload["chunk_index"].GetIntegerValue()),
				Total:    int(payload["total_chunks"].GetIntegerValue()),
				Metadata: domain.ContractMetadata{
					Pragma:    payload["pragma"].GetStringValue(),
					Contracts: stringList(payload["contracts"]),
					Functions: stringList(payload["functions"]),
				},
				Patterns:    patterns,
				ContentType: payload["content_type"].GetStringValue(),
			},
			Score: hit.GetScore(),
		})
	}

	return results, nil
}

// Stats describes the collection: total vectors, configured dimension and
// the collection status reported by Qdrant.
func (c *QdrantClient) Stats(ctx context.Context) (domain.VectorStoreStats, error) {
	info, err := c.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: c.collectionName,
	})
	if err != nil {
		return domain.VectorStoreStats{}, fmt.Errorf("failed to get collection info: %w", err)
	}

	return domain.VectorStoreStats{
		TotalVectors: info.GetResult().GetPointsCount(),
		Dimension:    c.dimension,
		Status:       info.GetResult().GetStatus().String(),
	}, nil
}

func stringList(val *qdrant.Value) []string {
	out := []string{}
	listVal, ok := val.GetKind().(*qdrant.Value_ListValue)
	if !ok || listVal == nil {
		return out
	}
	for _, v := range listVal.ListValue.GetValues() {
		if s := v.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
