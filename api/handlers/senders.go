package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/orderstack/orderstack/internal/models"
	"github.com/orderstack/orderstack/internal/repository"
	"github.com/orderstack/orderstack/internal/tracing"
)

// CreateSender registers a new sender profile
func CreateSender(senderRepository repository.SenderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "CreateSender", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var sender models.Sender
		if err := c.ShouldBindJSON(&sender); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := senderRepository.Create(ctx, &sender); err != nil {
			tracing.TraceErr(span, err)
			switch {
			case errors.Is(err, repository.ErrSenderAlreadyExists):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case isValidationError(err):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusCreated, sender)
	}
}

// GetSender returns one sender profile by id
func GetSender(senderRepository repository.SenderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetSender", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tracing.TagSender(span, c.Param("id"))

		sender, err := senderRepository.GetByID(ctx, c.Param("id"))
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, repository.ErrSenderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, sender)
	}
}

// ListSenders returns all sender profiles
func ListSenders(senderRepository repository.SenderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ListSenders", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		senders, err := senderRepository.List(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, senders)
	}
}

// UpdateSender replaces a sender profile
func UpdateSender(senderRepository repository.SenderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "UpdateSender", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tracing.TagSender(span, c.Param("id"))

		var sender models.Sender
		if err := c.ShouldBindJSON(&sender); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sender.ID = c.Param("id")

		if err := senderRepository.Update(ctx, &sender); err != nil {
			tracing.TraceErr(span, err)
			switch {
			case errors.Is(err, repository.ErrSenderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case isValidationError(err):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, sender)
	}
}

// DeleteSender removes a sender profile
func DeleteSender(senderRepository repository.SenderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "DeleteSender", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tracing.TagSender(span, c.Param("id"))

		if err := senderRepository.Delete(ctx, c.Param("id")); err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, repository.ErrSenderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "sender removed", "id": c.Param("id")})
	}
}

func isValidationError(err error) bool {
	var validation models.ErrValidation
	return errors.As(err, &validation)
}
