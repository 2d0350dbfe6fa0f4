package op

import "github.com/zitadel/ciba/internal/otel"

var tracer = otel.Tracer("github.com/zitadel/ciba/pkg/op")
