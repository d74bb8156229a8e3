package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"multascan/internal/api/validation"
	"multascan/internal/background"
	"multascan/internal/config"
	"multascan/internal/logging"
	"multascan/internal/sources"
	"multascan/internal/workers"
	"multascan/pkg/models"
	"multascan/pkg/utils"
)

var validate = validator.New()

func init() {
	validation.RegisterLookupValidators(validate)
}

// LookupHandler handles synchronous violation lookup requests through the
// worker pool
func LookupHandler(cfg *config.Config, poolManager *workers.PoolManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		requestID := utils.GenerateRequestID()
		logger := logging.LogWithRequestID(requestID)

		var req models.LookupRequest
		if err := c.Bind(&req); err != nil {
			logger.Error("Failed to bind request", map[string]interface{}{"error": err.Error()})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		req.Patente = strings.ToUpper(strings.TrimSpace(req.Patente))

		if err := validate.Struct(&req); err != nil {
			logger.Error("Request validation failed", map[string]interface{}{"error": err.Error()})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   "patente must match AAA999 or AA999AA",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		logger.Info("Processing lookup request", map[string]interface{}{
			"patente": req.Patente,
			"source":  req.Source,
		})

		ctx := c.Request().Context()
		if req.Options != nil && req.Options.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, req.Options.Timeout)
			defer cancel()
		}
		result, err := poolManager.SubmitJob(ctx, req.Source, req.Patente)
		if err != nil {
			logger.Error("Failed to submit lookup job", map[string]interface{}{"error": err.Error()})
			return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error:     "job_submission_failed",
				Message:   fmt.Sprintf("Failed to submit lookup job: %v", err),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		if result.Result.Kind == sources.KindFailed {
			srcErr := result.Result.Err
			logger.Error("Lookup failed", map[string]interface{}{
				"source":       srcErr.Source,
				"failure_code": string(srcErr.Code),
				"reason":       srcErr.Reason,
			})
			return c.JSON(failureHTTPStatus(srcErr.Code), models.ErrorResponse{
				Error:     string(srcErr.Code),
				Message:   srcErr.Reason,
				SourceID:  srcErr.Source,
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		response := models.LookupResponse{
			Success:        true,
			Identifier:     req.Patente,
			SourceID:       result.SourceID,
			Jurisdiction:   result.Jurisdiction,
			Records:        result.Result.Records,
			ProcessingTime: time.Since(startTime),
			RequestID:      requestID,
		}

		logger.Info("Lookup request completed", map[string]interface{}{
			"source":          result.SourceID,
			"records":         len(response.Records),
			"processing_time": time.Since(startTime),
		})

		return c.JSON(http.StatusOK, response)
	}
}

// AsyncLookupHandler accepts a lookup for background processing and returns
// a process ID immediately
func AsyncLookupHandler(cfg *config.Config, poolManager *workers.PoolManager, taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.LogWithRequestID(requestID)

		var req models.LookupRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"invalid_request",
				"Invalid request body: "+err.Error(),
			))
		}

		req.Patente = strings.ToUpper(strings.TrimSpace(req.Patente))

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"validation_failed",
				"patente must match AAA999 or AA999AA",
			))
		}

		processID := utils.GenerateLookupProcessID()

		logger.Info("Submitting lookup task for background processing", map[string]interface{}{
			"process_id": processID,
			"patente":    req.Patente,
			"source":     req.Source,
		})

		ctx := c.Request().Context()
		if err := taskManager.SubmitLookupTask(ctx, processID, req, poolManager); err != nil {
			logger.Error("Failed to submit background lookup task", map[string]interface{}{
				"error": err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, models.CreateAsyncErrorResponse(
				"task_submission_failed",
				fmt.Sprintf("Failed to submit lookup task: %v", err),
				processID,
			))
		}

		return c.JSON(http.StatusAccepted, models.CreateAsyncLookupResponse(processID))
	}
}

// failureHTTPStatus maps the adapter failure taxonomy onto HTTP statuses.
// Format rejections are the caller's problem; everything else is the
// upstream portal's.
func failureHTTPStatus(code sources.FailureCode) int {
	switch code {
	case sources.CodeUnsupportedFormat:
		return http.StatusUnprocessableEntity
	case sources.CodeProviderTimeout:
		return http.StatusGatewayTimeout
	case sources.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
