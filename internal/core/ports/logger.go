package ports

// Logger is the structured logging interface. Key-value pairs follow the
// log/slog convention.
//
//go:generate go run go.uber.org/mock/mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(err error, kv ...any)
}
