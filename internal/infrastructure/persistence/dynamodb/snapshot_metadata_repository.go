package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/bench-history/internal/application/port"
)

const (
	defaultListLimit = 24
	maxListLimit     = 100

	// Все выгрузки лежат в одной партиции, сортировка по времени экспорта
	snapshotPartition = "SNAPSHOT"

	attrPK          = "PK"
	attrSK          = "SK"
	attrSnapshotID  = "snapshot_id"
	attrS3Key       = "s3_key"
	attrURL         = "url"
	attrContentType = "content_type"
	attrSizeBytes   = "size_bytes"
	attrSuiteCount  = "suite_count"
	attrRunCount    = "run_count"
	attrExportedAt  = "exported_at"
	attrCreatedAt   = "created_at"
	attrExpiresAt   = "expires_at"
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

// SnapshotMetadataRepository индексирует выгруженные data-файлы в DynamoDB.
// Реализует port.SnapshotMetadataRepository.
type SnapshotMetadataRepository struct {
	client      *dynamodb.Client
	tableName   string
	strongReads bool
}

type cursorPayload struct {
	FromMS int64                  `json:"from_ms,omitempty"`
	ToMS   int64                  `json:"to_ms,omitempty"`
	Key    map[string]cursorValue `json:"key"`
}

type cursorValue struct {
	S string `json:"s,omitempty"`
	N string `json:"n,omitempty"`
}

func NewSnapshotMetadataRepository(ctx context.Context, cfg Config) (*SnapshotMetadataRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return &SnapshotMetadataRepository{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
	}, nil
}

// Put сохраняет метаданные одной выгрузки
func (r *SnapshotMetadataRepository) Put(ctx context.Context, record port.SnapshotMetadata) error {
	item, err := r.toItem(record)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put failed: %w", err)
	}

	return nil
}

// List возвращает страницу индекса, новые выгрузки первыми
func (r *SnapshotMetadataRepository) List(ctx context.Context, query port.SnapshotListQuery) (port.SnapshotListPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	fromMS, toMS, hasRange, err := normalizeTimeRange(query.From, query.To)
	if err != nil {
		return port.SnapshotListPage{}, err
	}

	maxKeys := int32(limit)
	forward := false
	consistent := r.strongReads
	input := &dynamodb.QueryInput{
		TableName:        &r.tableName,
		Limit:            &maxKeys,
		ScanIndexForward: &forward,
		ConsistentRead:   &consistent,
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: snapshotPartition},
		},
	}

	keyCondition := "#pk = :pk"
	if hasRange {
		input.ExpressionAttributeNames["#sk"] = attrSK
		input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberS{Value: buildSortLowerBound(fromMS)}
		input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberS{Value: buildSortUpperBound(toMS)}
		keyCondition += " AND #sk BETWEEN :from AND :to"
	}
	input.KeyConditionExpression = &keyCondition

	if strings.TrimSpace(query.Cursor) != "" {
		exclusiveStartKey, err := decodeCursor(query.Cursor, fromMS, toMS)
		if err != nil {
			return port.SnapshotListPage{}, err
		}
		input.ExclusiveStartKey = exclusiveStartKey
	}

	output, err := r.client.Query(ctx, input)
	if err != nil {
		return port.SnapshotListPage{}, fmt.Errorf("dynamodb query failed: %w", err)
	}

	items := make([]port.SnapshotMetadata, 0, len(output.Items))
	for _, raw := range output.Items {
		item, err := fromItem(raw)
		if err != nil {
			return port.SnapshotListPage{}, err
		}
		items = append(items, item)
	}

	nextCursor := ""
	if len(output.LastEvaluatedKey) > 0 {
		nextCursor, err = encodeCursor(output.LastEvaluatedKey, fromMS, toMS)
		if err != nil {
			return port.SnapshotListPage{}, err
		}
	}

	return port.SnapshotListPage{
		Items:      items,
		NextCursor: nextCursor,
	}, nil
}

func (r *SnapshotMetadataRepository) toItem(record port.SnapshotMetadata) (map[string]types.AttributeValue, error) {
	snapshotID := strings.TrimSpace(record.SnapshotID)
	s3Key := strings.TrimSpace(record.S3Key)
	if snapshotID == "" {
		return nil, fmt.Errorf("snapshot_id is required")
	}
	if s3Key == "" {
		return nil, fmt.Errorf("s3_key is required")
	}

	exportedAt := record.ExportedAt.UTC()
	if exportedAt.IsZero() {
		exportedAt = time.Now().UTC()
	}

	lastModified := record.LastModified.UTC()
	if lastModified.IsZero() {
		lastModified = exportedAt
	}

	exportedAtMS := exportedAt.UnixMilli()

	item := map[string]types.AttributeValue{
		attrPK:         &types.AttributeValueMemberS{Value: snapshotPartition},
		attrSK:         &types.AttributeValueMemberS{Value: buildSK(exportedAtMS, snapshotID)},
		attrSnapshotID: &types.AttributeValueMemberS{Value: snapshotID},
		attrS3Key:      &types.AttributeValueMemberS{Value: s3Key},
		attrExportedAt: &types.AttributeValueMemberN{Value: strconv.FormatInt(exportedAtMS, 10)},
		attrCreatedAt:  &types.AttributeValueMemberN{Value: strconv.FormatInt(lastModified.UnixMilli(), 10)},
	}

	if url := strings.TrimSpace(record.URL); url != "" {
		item[attrURL] = &types.AttributeValueMemberS{Value: url}
	}
	if contentType := strings.TrimSpace(record.ContentType); contentType != "" {
		item[attrContentType] = &types.AttributeValueMemberS{Value: contentType}
	}
	if record.SizeBytes > 0 {
		item[attrSizeBytes] = &types.AttributeValueMemberN{Value: strconv.FormatInt(record.SizeBytes, 10)}
	}
	if record.SuiteCount > 0 {
		item[attrSuiteCount] = &types.AttributeValueMemberN{Value: strconv.Itoa(record.SuiteCount)}
	}
	if record.RunCount > 0 {
		item[attrRunCount] = &types.AttributeValueMemberN{Value: strconv.Itoa(record.RunCount)}
	}
	if !record.ExpiresAt.IsZero() {
		item[attrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(record.ExpiresAt.UTC().Unix(), 10)}
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (port.SnapshotMetadata, error) {
	snapshotID, err := attrStringValue(item, attrSnapshotID)
	if err != nil {
		return port.SnapshotMetadata{}, err
	}
	s3Key, err := attrStringValue(item, attrS3Key)
	if err != nil {
		return port.SnapshotMetadata{}, err
	}
	exportedAtMS, err := attrInt64Value(item, attrExportedAt)
	if err != nil {
		return port.SnapshotMetadata{}, err
	}
	createdAtMS, err := attrInt64Value(item, attrCreatedAt)
	if err != nil {
		return port.SnapshotMetadata{}, err
	}

	record := port.SnapshotMetadata{
		SnapshotID:   snapshotID,
		S3Key:        s3Key,
		URL:          optionalString(item, attrURL),
		ContentType:  optionalString(item, attrContentType),
		SizeBytes:    optionalInt64(item, attrSizeBytes),
		SuiteCount:   int(optionalInt64(item, attrSuiteCount)),
		RunCount:     int(optionalInt64(item, attrRunCount)),
		ExportedAt:   time.UnixMilli(exportedAtMS).UTC(),
		LastModified: time.UnixMilli(createdAtMS).UTC(),
	}

	expiresAtSeconds := optionalInt64(item, attrExpiresAt)
	if expiresAtSeconds > 0 {
		record.ExpiresAt = time.Unix(expiresAtSeconds, 0).UTC()
	}

	return record, nil
}

func normalizeTimeRange(from, to time.Time) (int64, int64, bool, error) {
	from = from.UTC()
	to = to.UTC()
	if from.IsZero() && to.IsZero() {
		return 0, math.MaxInt64, false, nil
	}

	fromMS := int64(0)
	toMS := int64(math.MaxInt64)
	if !from.IsZero() {
		fromMS = from.UnixMilli()
	}
	if !to.IsZero() {
		toMS = to.UnixMilli()
	}

	if fromMS > toMS {
		return 0, 0, false, fmt.Errorf("from must be less than or equal to to")
	}

	return fromMS, toMS, true, nil
}

func buildSK(exportedAtMS int64, snapshotID string) string {
	return fmt.Sprintf("TS#%013d#ID#%s", exportedAtMS, snapshotID)
}

func buildSortLowerBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#", tsMS)
}

func buildSortUpperBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#~", tsMS)
}

func encodeCursor(key map[string]types.AttributeValue, fromMS, toMS int64) (string, error) {
	values := make(map[string]cursorValue, len(key))
	for attributeName, raw := range key {
		switch value := raw.(type) {
		case *types.AttributeValueMemberS:
			values[attributeName] = cursorValue{S: value.Value}
		case *types.AttributeValueMemberN:
			values[attributeName] = cursorValue{N: value.Value}
		default:
			return "", fmt.Errorf("unsupported cursor attribute type for %s", attributeName)
		}
	}

	payload := cursorPayload{
		FromMS: fromMS,
		ToMS:   toMS,
		Key:    values,
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(serialized), nil
}

func decodeCursor(cursor string, fromMS, toMS int64) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	if payload.FromMS != fromMS || payload.ToMS != toMS {
		return nil, fmt.Errorf("cursor does not match query filters")
	}

	key := make(map[string]types.AttributeValue, len(payload.Key))
	for attributeName, value := range payload.Key {
		if value.S != "" {
			key[attributeName] = &types.AttributeValueMemberS{Value: value.S}
			continue
		}
		if value.N != "" {
			key[attributeName] = &types.AttributeValueMemberN{Value: value.N}
			continue
		}
		return nil, fmt.Errorf("invalid cursor")
	}

	return key, nil
}

func attrStringValue(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(item map[string]types.AttributeValue, name string) string {
	raw, ok := item[name]
	if !ok {
		return ""
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return value.Value
}

func attrInt64Value(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func optionalInt64(item map[string]types.AttributeValue, name string) int64 {
	raw, ok := item[name]
	if !ok {
		return 0
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
