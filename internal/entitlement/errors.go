package entitlement

import "errors"

// ErrMembershipRequired возвращается при попытке купить товар, требующий
// действующего членства, пользователем без такового.
var ErrMembershipRequired = errors.New("active membership required")

// ErrInvalidDuration означает некорректную длительность из каталога
// (отрицательные месяцы или дни). Это ошибка данных, а не пользователя.
var ErrInvalidDuration = errors.New("invalid duration")
