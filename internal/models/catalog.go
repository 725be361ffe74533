package models

// Item представляет товар каталога: вклад в членство и в доступ к сети
// задан в месяцах и дополнительных днях на единицу товара.
//
// Длительности копируются в покупку в момент продажи, поэтому последующее
// изменение каталога не меняет уже выставленные счета.
type Item struct {
	ID               int    // Идентификатор товара
	Name             string // Название товара (уникальное)
	Price            int    // Цена за единицу, в центах
	MembershipMonths int    // Месяцы членства на единицу
	MembershipDays   int    // Дополнительные дни членства на единицу
	ConnectionMonths int    // Месяцы доступа к сети на единицу
	ConnectionDays   int    // Дополнительные дни доступа на единицу
	NeedsMembership  bool   // Товар доступен только при действующем членстве
}

// DummyItem используется для приёма данных товара из JSON-запроса.
type DummyItem struct {
	Name             string `json:"name" validate:"required"`          // Название
	Price            int    `json:"price" validate:"required,gte=0"`   // Цена в центах
	MembershipMonths int    `json:"membership_months" validate:"gte=0"`
	MembershipDays   int    `json:"membership_days" validate:"gte=0"`
	ConnectionMonths int    `json:"connection_months" validate:"gte=0"`
	ConnectionDays   int    `json:"connection_days" validate:"gte=0"`
	NeedsMembership  bool   `json:"needs_membership"`
}
