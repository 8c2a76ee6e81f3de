// Package bus implements typed publish/subscribe routing between agents:
// direct and broadcast delivery, fire-and-forget events, and correlated
// request/response with timeouts. Subscriptions carry an optional predicate
// filter and a priority that orders handler invocation for a single message.
//
// The bus keeps a bounded ring-buffer history of routed messages as an
// observability aid; history never causes re-delivery.
package bus
