package rabbitmq

// QueueConfig связывает очередь и ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Обменники событий.
const (
	// DirectoryExchange — события пересчета прав для синхронизации
	// каталога доступа.
	DirectoryExchange = "directory"
	// NotificationsExchange — почтовые уведомления пользователям.
	NotificationsExchange = "notifications"
)

// GetDirectoryQueues возвращает очереди обменника directory.
func GetDirectoryQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "directory.entitlement", RoutingKey: "entitlement.updated"},
	}
}

// GetNotificationQueues возвращает очереди обменника notifications.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.expiring", RoutingKey: "membership.expiring"},
	}
}
