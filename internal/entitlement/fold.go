package entitlement

import (
	"fmt"
	"time"
)

// ComputeInterval сворачивает вклады покупок (в порядке возрастания
// created_at, затем id) в текущий период действия права.
//
// Правила свертки:
//   - вклад (0 месяцев, 0 дней) пропускается и период не меняет;
//   - если предыдущий период еще открыт в момент создания покупки
//     (end > created_at), новая длительность добавляется к его концу —
//     покупка продлевает, а не перезапускает действующую подписку;
//   - если период истек или его не было, открывается новый период,
//     начинающийся в момент создания покупки.
//
// Длительность одной покупки считается одним вызовом Advance от
// (months*quantity, days*quantity). Разные покупки применяются
// последовательными Advance, каждый из которых прижимает дату к концу
// месяца независимо. Это зафиксированный инвариант: на границах месяцев
// разной длины сумма месяцев одним вызовом дала бы другую дату.
//
// Возвращает nil, если ни одна покупка не внесла вклада: право отсутствует,
// что отличается от "истекло в прошлом".
func ComputeInterval(contribs []Contribution) (*Interval, error) {
	var current *Interval
	for _, c := range contribs {
		if c.Months == 0 && c.ExtraDays == 0 {
			continue
		}
		if c.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity=%d for purchase %d", ErrInvalidDuration, c.Quantity, c.PurchaseID)
		}
		start := c.CreatedAt
		extends := current != nil && current.End.After(c.CreatedAt)
		if extends {
			start = current.End
		}
		end, err := Advance(start, c.Months*c.Quantity, c.ExtraDays*c.Quantity)
		if err != nil {
			return nil, fmt.Errorf("purchase %d: %w", c.PurchaseID, err)
		}
		if extends {
			current.End = end
		} else {
			current = &Interval{Start: start, End: end}
		}
	}
	return current, nil
}

// CheckAdmission проверяет правило допуска покупки: товар, требующий
// действующего членства, можно купить только при активном членстве в момент
// at. В prior передаются вклады в членство, предшествующие покупке в
// хронологическом порядке, поэтому проверка корректна и для покупок,
// вносимых задним числом.
func CheckAdmission(prior []Contribution, at time.Time) error {
	iv, err := ComputeInterval(prior)
	if err != nil {
		return err
	}
	if !ActiveAt(iv, at) {
		return ErrMembershipRequired
	}
	return nil
}
