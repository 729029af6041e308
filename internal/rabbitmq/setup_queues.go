package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации для неё.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetPaymentQueues возвращает очереди событий платёжного цикла.
func GetPaymentQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "payments.approved", RoutingKey: "approved"},
		{QueueName: "payments.released", RoutingKey: "released"},
		{QueueName: "payments.refunded", RoutingKey: "refunded"},
		{QueueName: "payments.paid_out", RoutingKey: "paid_out"},
	}
}
