package models

// BusMessage is a single publish request handed to the bus worker.
type BusMessage struct {
	Topic    string
	Payload  string
	QOS      byte
	Retained bool
}
