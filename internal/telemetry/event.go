package telemetry

// Level is the severity of a telemetry event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Source components reported in the event's package field.
const (
	PackageMiddleware = "middleware"
	PackageService    = "service"
	PackageHandler    = "handler"
	PackageServer     = "server"
)

// StackBackend is the origin tag for events emitted by this service.
const StackBackend = "backend"

// TopicLogs is the topic telemetry events travel on between emitter and forwarder.
const TopicLogs = "telemetry.logs"

// DefaultCollectorURL is the log collection endpoint events are forwarded to.
const DefaultCollectorURL = "http://20.244.56.144/evaluation-service/logs"

// Event is the wire format accepted by the log collector.
type Event struct {
	Stack   string `json:"stack"`
	Level   Level  `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}
