// Package entitlement реализует расчет периодов действия членства и доступа
// к сети по упорядоченному списку оплаченных покупок пользователя.
//
// Периоды нигде не хранятся как первичные данные — они всегда выводятся
// заново из действительных покупок, поэтому аннулирование счета задним числом
// не оставляет устаревших значений.
package entitlement

import "time"

// Kind различает два независимых вида права: членство и доступ к сети.
type Kind string

const (
	// KindMembership — членство в организации.
	KindMembership Kind = "membership"
	// KindConnection — доступ к сети.
	KindConnection Kind = "connection"
)

// Contribution описывает вклад одной покупки в период одного вида права.
// Поля Months и ExtraDays заданы на единицу товара; нулевой вклад (0, 0)
// означает, что покупка этот вид права не затрагивает.
type Contribution struct {
	PurchaseID int       // ID покупки
	CreatedAt  time.Time // Момент создания покупки, ключ сортировки
	Quantity   int       // Количество единиц товара, >= 1
	Months     int       // Месяцы на единицу товара
	ExtraDays  int       // Дополнительные дни на единицу товара
}

// Interval — полуоткрытый период действия права [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// ActiveAt сообщает, действует ли право в момент at.
// Отсутствие периода (nil) означает "никогда не подписывался" — это не ошибка.
func ActiveAt(iv *Interval, at time.Time) bool {
	return iv != nil && at.Before(iv.End)
}
