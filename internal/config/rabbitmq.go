package config

// RabbitMQConfig configures the grading event publisher. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL          string
	Queue        string
	QueueDurable bool
}

func NewRabbitMQConfig() *RabbitMQConfig {
	return &RabbitMQConfig{
		URL:          getEnv("RABBITMQ_URL", ""),
		Queue:        getEnv("EVENTS_QUEUE", "grading-events"),
		QueueDurable: getEnv("EVENTS_QUEUE_DURABLE", "true") == "true",
	}
}
