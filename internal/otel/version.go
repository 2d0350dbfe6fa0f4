package otel

// Version is reported as instrumentation version on every span.
const Version = "v0.1.0"
