/*
Package ingress implements the middleware pipeline applied to every
authenticated route:

 1. Correlation ID assignment (inbound X-Request-Id or a fresh UUID)
 2. Security headers and permissive CORS
 3. JSON body cap (1 MB)
 4. Per-client rate limiting (token bucket per remote identity)
 5. API-key authentication (Bearer or X-API-Key; Bearer wins)
 6. Panic recovery
 7. Terminal error rendering

The health and metrics endpoints bypass the pipeline entirely.

Every rejection and every handler error funnels through WriteError, the
single place that renders the {error, name, requestId} envelope. Errors
whose Exposable flag is false have their message replaced with a generic
one; causes for 5xx responses are logged with the correlation ID.
*/
package ingress
