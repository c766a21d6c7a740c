package internal

// Option configures the server bootstrap performed by Run.
type Option func(*application)

// application holds the state assembled from options before Run wires the
// storage, index, and HTTP layers together.
type application struct {
	config *Config
}

// WithConfig supplies the loaded configuration. Run refuses to start
// without one.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
