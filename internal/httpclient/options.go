// Package httpclient provides an instrumented HTTP client with OTEL tracing and metrics.
package httpclient

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

type clientOptions struct {
	providerName   string
	requestTimeout time.Duration
	headers        map[string]string
	baseURL        string
	logResponse    bool
	tracer         trace.Tracer
}

// ClientOption configures the instrumented client.
type ClientOption func(*clientOptions)

func newClientOptions(opts ...ClientOption) *clientOptions {
	options := &clientOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithProviderName sets the provider name for metrics and traces.
func WithProviderName(name string) ClientOption {
	return func(o *clientOptions) {
		o.providerName = name
	}
}

// WithRequestTimeout sets the request timeout.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.requestTimeout = timeout
	}
}

// WithHeaders sets default headers for all requests.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) {
		o.headers = headers
	}
}

// WithBaseURL sets the base URL for all requests.
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithTracer sets the tracer; logResponse attaches response bodies to spans.
func WithTracer(tracer trace.Tracer, logResponse bool) ClientOption {
	return func(o *clientOptions) {
		o.tracer = tracer
		o.logResponse = logResponse
	}
}

type requestOptions struct {
	responseErrorHandler ResponseErrorHandler
	labels               []Label
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

func newRequestOptions(opts ...RequestOption) *requestOptions {
	options := &requestOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// ResponseErrorHandler turns a response into an error, or returns nil to accept it.
type ResponseErrorHandler func(statusCode int, body []byte) error

// WithResponseErrorHandler sets a custom error handler for responses.
func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(o *requestOptions) {
		o.responseErrorHandler = handler
	}
}

// Label is a key-value pair attached to request metrics.
type Label struct {
	Key   string
	Value string
}

// NewLabel creates a new label.
func NewLabel(key, value string) Label {
	return Label{Key: key, Value: value}
}

// WithLabels sets metric labels for the request.
func WithLabels(labels ...Label) RequestOption {
	return func(o *requestOptions) {
		o.labels = labels
	}
}
