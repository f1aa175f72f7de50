package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/orderstack/orderstack/dto"
	coreerrors "github.com/orderstack/orderstack/internal/errors"
	"github.com/orderstack/orderstack/internal/tracing"
	"github.com/orderstack/orderstack/interfaces"
)

// FetchOrders runs an ingestion job synchronously and returns the
// result. Progress is streamed separately over the progress endpoint.
func FetchOrders(orderService interfaces.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "FetchOrders", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var request dto.FetchOrdersRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tracing.TagSender(span, request.SenderID)

		ownerID := OwnerID(c)
		tracing.TagOwner(span, ownerID)

		result, err := orderService.Run(ctx, ownerID, request)
		if err != nil {
			tracing.TraceErr(span, err)
			switch {
			case errors.Is(err, coreerrors.ErrInvalidDate):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, coreerrors.ErrSenderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, coreerrors.ErrConnectionRefused):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			case errors.Is(err, coreerrors.ErrDecodeFailed):
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// OwnerID identifies the progress stream a caller owns. EventSource
// clients cannot set headers, so the query parameter wins when present.
func OwnerID(c *gin.Context) string {
	if userID := c.Query("userId"); userID != "" {
		return userID
	}
	if userID := c.GetHeader("X-ORDERSTACK-USER-ID"); userID != "" {
		return userID
	}
	return "default"
}
