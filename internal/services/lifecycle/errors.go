package lifecycle

import "errors"

// Ошибки платёжного цикла. Обработчики транслируют их в HTTP-статусы через
// errors.Is.
var (
	// ErrGatewayRejected — шлюз отклонил операцию; локальное состояние не
	// менялось.
	ErrGatewayRejected = errors.New("payment gateway rejected operation")
	// ErrPaymentNotFound — платёж с таким идентификатором не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrSubscriptionNotFound — подписка не найдена.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrServiceNotFound — услуга не найдена.
	ErrServiceNotFound = errors.New("service not found")
	// ErrAlreadyTerminal — платёж уже в терминальном статусе, переход
	// невозможен.
	ErrAlreadyTerminal = errors.New("payment already in terminal status")
	// ErrStoreWrite — запись в хранилище не удалась после успешного вызова
	// шлюза. Внешнее состояние уже изменено, нужна сверка.
	ErrStoreWrite = errors.New("store write failed after gateway call")
)
