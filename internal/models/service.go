package models

// Service представляет платную услугу преподавателя. Записи создаются вне
// ядра платёжного цикла, здесь они только читаются: владелец услуги —
// канонический получатель платежа.
type Service struct {
	ID      string  // Идентификатор услуги (uuid)
	OwnerID string  // Идентификатор преподавателя-владельца
	Name    string  // Название услуги
	Price   float64 // Цена в единицах платформы
}
