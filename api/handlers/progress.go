package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orderstack/orderstack/internal/tracing"
	"github.com/orderstack/orderstack/interfaces"
)

// StreamProgress serves job progress as server-sent events. One stream
// per owner; opening a second stream for the same owner closes the
// first. The stream ends after a terminal event or client disconnect.
func StreamProgress(registry interfaces.ProgressRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "StreamProgress", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		ownerID := OwnerID(c)
		tracing.TagOwner(span, ownerID)

		events, cancel := registry.Subscribe(ownerID)
		defer cancel()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.WriteHeader(http.StatusOK)
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-clientGone:
				return false
			case event, ok := <-events:
				if !ok {
					return false
				}
				payload, err := json.Marshal(event)
				if err != nil {
					tracing.TraceErr(span, err)
					return false
				}
				if _, err := w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
					return false
				}
				return !event.Done
			}
		})
	}
}
