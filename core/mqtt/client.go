package mqtt

// Handler receives the topic and payload of an incoming message.
type Handler func(topic string, payload []byte)

// Client is the broker connection used to publish game state and receive
// commands.
type Client interface {
	// Publish sends payload on topic. Retained messages are replayed to
	// late subscribers.
	Publish(topic string, payload []byte, retained bool) error

	// Subscribe registers h for topic, which may contain wildcards.
	Subscribe(topic string, h Handler) error
}
