package api

const defaultMaxRequestBytes = 32 << 20

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxRequestBytes caps the size of request bodies.
func WithMaxRequestBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRequestBytes = n
		}
	}
}
