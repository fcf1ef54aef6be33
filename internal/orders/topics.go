package orders

const (
	TopicEmailRequested = "notify.email.requested"

	// RabbitMQ routing key for the same stream.
	RoutingEmailRequested = "notify.email"
)

// Partition key = order_id, so all mail of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
