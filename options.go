package matchcheck

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string // "bleve" or "redis"
	addrs    []string
	password string
	path     string

	index     string
	docType   string
	docCount  int
	timeout   time.Duration
	nonMember string

	readinessTimeout time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis runs the fixture against a Redis 8+ (or Redis Stack) deployment.
func WithRedis(password string, addrs ...string) Option {
	return func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = addrs
		c.password = password
	}
}

// WithEmbedded runs the fixture against an embedded bleve index stored under
// path. An empty path keeps indexes in memory. This is the default.
func WithEmbedded(path string) Option {
	return func(c *clientConfig) {
		c.driver = driverBleve
		c.addrs = nil
		c.path = path
	}
}

// WithIndex sets the index name. Defaults to "my-index".
func WithIndex(name string) Option {
	return func(c *clientConfig) { c.index = name }
}

// WithDocType sets the document type. Defaults to "my-test".
func WithDocType(docType string) Option {
	return func(c *clientConfig) { c.docType = docType }
}

// WithDocCount sets how many documents each SetUp inserts. Defaults to 20.
func WithDocCount(n int) Option {
	return func(c *clientConfig) { c.docCount = n }
}

// WithTimeout sets the per-call backend timeout. Defaults to 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithNonMember sets the identifier the multi-match check expects to miss.
func WithNonMember(id string) Option {
	return func(c *clientConfig) { c.nonMember = id }
}

// WithReadinessTimeout bounds how long New waits for the backend.
func WithReadinessTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.readinessTimeout = d }
}

// WithLogger sets a structured logger for lifecycle and backend events.
// If not set, logging is disabled.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithPrometheus registers backend operation metrics on reg.
// Collectors already present on reg are reused.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(c *clientConfig) { c.metricsReg = reg }
}
