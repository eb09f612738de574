package registry

// Service is a component started and stopped by the service registry.
type Service interface {
	Start() error
	Stop() error
}
