package port

import "github.com/dreschagin/bench-history/internal/application/dto"

// NotificationService определяет интерфейс для отправки уведомлений (Port)
// Реализация будет в Infrastructure слое (WebSocket Hub)
type NotificationService interface {
	// Broadcast отправляет принятый прогон всем подключенным клиентам
	Broadcast(snapshot *dto.RunSnapshotDTO)

	// BroadcastAlert отправляет alert о регрессии всем подключенным клиентам
	BroadcastAlert(alert *dto.RegressionAlertDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
