package entitlement

import (
	"fmt"
	"time"
)

// Advance прибавляет к base сначала months календарных месяцев, затем
// extraDays дней. Прибавление месяцев календарное: если в целевом месяце
// меньше дней, дата прижимается к его последнему дню (31 января + 1 месяц =
// 28/29 февраля), в отличие от time.AddDate, который перенес бы дату на март.
//
// Advance(base, 0, 0) возвращает base без изменений — по этому признаку
// вызывающий код определяет "нет вклада". Часовой пояс base сохраняется.
func Advance(base time.Time, months, extraDays int) (time.Time, error) {
	if months < 0 || extraDays < 0 {
		return time.Time{}, fmt.Errorf("%w: months=%d days=%d", ErrInvalidDuration, months, extraDays)
	}
	if months == 0 && extraDays == 0 {
		return base, nil
	}
	return addMonthsClamped(base, months).AddDate(0, 0, extraDays), nil
}

func addMonthsClamped(t time.Time, months int) time.Time {
	if months == 0 {
		return t
	}
	year, month, day := t.Date()
	m := int(month) - 1 + months
	year += m / 12
	month = time.Month(m%12 + 1)
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn возвращает число дней в месяце: нулевой день следующего месяца.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
