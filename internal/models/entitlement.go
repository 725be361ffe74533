package models

import "time"

// EntitlementState — производное состояние прав пользователя: даты истечения
// членства и доступа к сети. nil означает "никогда не подписывался", что
// отличается от даты в прошлом.
type EntitlementState struct {
	Username       string     `json:"username"`
	MembershipEnd  *time.Time `json:"membership_end"`
	ConnectionEnd  *time.Time `json:"connection_end"`
	RecalculatedAt time.Time  `json:"recalculated_at"`
}

// EntitlementUpdated — событие для очереди синхронизации каталога доступа,
// публикуется после каждого пересчета прав. Явная замена неявной
// синхронизации по сигналам сохранения.
type EntitlementUpdated struct {
	Username      string     `json:"username"`
	MembershipEnd *time.Time `json:"membership_end"`
	ConnectionEnd *time.Time `json:"connection_end"`
}

// ExpiryNotice — событие для очереди уведомлений: членство пользователя
// истекает завтра.
type ExpiryNotice struct {
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	MembershipEnd time.Time `json:"membership_end"`
}
