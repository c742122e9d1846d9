package port

import "context"

// SnapshotStorage определяет интерфейс для хранения выгруженных data-файлов.
type SnapshotStorage interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}
