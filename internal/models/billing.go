package models

import "time"

// Виды счетов. Вместо иерархии подтипов счет несет строковый признак:
// для расчета прав важны только флаг действительности и список покупок.
const (
	// InvoiceKindStandard — обычный счет, выставленный через портал.
	InvoiceKindStandard = "standard"
	// InvoiceKindCustom — счет, оформленный оператором вручную.
	InvoiceKindCustom = "custom"
	// InvoiceKindEstimate — смета, никогда не участвует в расчете прав.
	InvoiceKindEstimate = "estimate"
)

// Invoice представляет счет пользователя. В расчете прав участвуют только
// счета с Valid = true; снятие флага задним числом вызывает пересчет.
type Invoice struct {
	ID        int       // Идентификатор счета
	Username  string    // Владелец счета
	Kind      string    // Вид счета, см. InvoiceKind*
	Valid     bool      // Признак подтвержденной оплаты
	CreatedAt time.Time // Момент создания, ключ сортировки
}

// Purchase представляет строку счета. Длительности скопированы из товара
// каталога в момент продажи и уже не зависят от его изменений.
type Purchase struct {
	ID               int       // Идентификатор покупки
	InvoiceID        int       // Счет, которому принадлежит строка
	ItemID           int       // Товар каталога
	Quantity         int       // Количество единиц, >= 1
	MembershipMonths int       // Месяцы членства на единицу
	MembershipDays   int       // Дни членства на единицу
	ConnectionMonths int       // Месяцы доступа на единицу
	ConnectionDays   int       // Дни доступа на единицу
	CreatedAt        time.Time // Момент создания, ключ сортировки при равных датах счета
}

// DummyInvoiceLine — строка счета в JSON-запросе на создание.
type DummyInvoiceLine struct {
	ItemID   int `json:"item_id" validate:"required"`
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// DummyInvoice используется для приёма запроса на создание счета.
type DummyInvoice struct {
	Kind  string             `json:"kind,omitempty" validate:"omitempty,oneof=standard custom estimate"`
	Paid  bool               `json:"paid,omitempty"` // Оператор может провести счет сразу оплаченным
	Lines []DummyInvoiceLine `json:"lines" validate:"required,min=1,dive"`
}

// PaymentNotification — уведомление платежного шлюза о результате оплаты.
// Ядро использует только итоговый флаг: оплата подтверждена или нет.
type PaymentNotification struct {
	InvoiceID int    `json:"invoice_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=succeeded canceled"`
}
