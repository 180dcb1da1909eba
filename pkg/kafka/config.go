package kafka

import "time"

// Config holds Kafka producer configuration
type Config struct {
	Brokers      []string
	ClientID     string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
}

// DefaultConfig returns a default Kafka configuration
func DefaultConfig(clientID string, brokers []string) *Config {
	return &Config{
		Brokers:      brokers,
		ClientID:     clientID,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
	}
}
