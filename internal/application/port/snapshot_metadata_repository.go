package port

import (
	"context"
	"time"
)

// SnapshotMetadata представляет метаданные выгруженного data-файла.
type SnapshotMetadata struct {
	SnapshotID   string
	S3Key        string
	URL          string
	ContentType  string
	SizeBytes    int64
	SuiteCount   int
	RunCount     int
	ExportedAt   time.Time
	LastModified time.Time
	ExpiresAt    time.Time
}

// SnapshotListQuery определяет параметры выборки списка выгрузок.
type SnapshotListQuery struct {
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
}

// SnapshotListPage содержит результат выборки и курсор следующей страницы.
type SnapshotListPage struct {
	Items      []SnapshotMetadata
	NextCursor string
}

// SnapshotMetadataRepository определяет интерфейс индекса выгруженных data-файлов.
type SnapshotMetadataRepository interface {
	Put(ctx context.Context, record SnapshotMetadata) error
	List(ctx context.Context, query SnapshotListQuery) (SnapshotListPage, error)
}
