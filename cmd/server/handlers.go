package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"goldprice-api/internal/aggregator"
	"goldprice-api/internal/margin"
)

const requestTimeout = 15 * time.Second

func (s *Server) handleHealth(c *gin.Context) {
	status := s.aggregator.Status()

	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "goldprice-api",
		"timestamp":     time.Now().Unix(),
		"has_data":      status.HasData,
		"breaker_state": status.BreakerState,
	})
}

func (s *Server) handleGetPrices(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := s.aggregator.GetPrices(ctx)
	if err != nil {
		s.priceError(c, err)
		return
	}

	data := result.Data
	margins, err := s.margins.GetMargins(ctx, c.GetString("user_id"))
	if err != nil {
		s.logger.WithError(err).Error("failed to load margins, serving unadjusted prices")
	} else {
		data = margin.Apply(data, margins)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"source":     result.Source,
		"cached":     result.Cached,
		"stale":      result.Stale,
		"fetched_at": result.FetchedAt.Unix(),
	})
}

// handleGetRawPrices returns upstream values without margin adjustments.
func (s *Server) handleGetRawPrices(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := s.aggregator.GetPrices(ctx)
	if err != nil {
		s.priceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       result.Data,
		"source":     result.Source,
		"cached":     result.Cached,
		"stale":      result.Stale,
		"fetched_at": result.FetchedAt.Unix(),
	})
}

func (s *Server) handleForceRefresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := s.aggregator.ForceRefresh(ctx)
	if err != nil {
		s.priceError(c, err)
		return
	}

	margins, merr := s.margins.GetMargins(ctx, c.GetString("user_id"))
	data := result.Data
	if merr == nil {
		data = margin.Apply(data, margins)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"source":     result.Source,
		"cached":     result.Cached,
		"stale":      result.Stale,
		"fetched_at": result.FetchedAt.Unix(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.aggregator.Status())
}

func (s *Server) handleGetMargins(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	margins, err := s.margins.GetMargins(ctx, c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load margins",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"margins": margins,
		"count":   len(margins),
	})
}

func (s *Server) handleUpdateMargins(c *gin.Context) {
	var req struct {
		Margins map[string]float64 `json:"margins" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	for key := range req.Margins {
		if !margin.IsValidKey(key) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid margin key",
				"message": key,
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	userID := c.GetString("user_id")
	for key, value := range req.Margins {
		if err := s.margins.UpdateMargin(ctx, userID, key, value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to update margin",
				"message": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"updated": len(req.Margins),
	})
}

func (s *Server) priceError(c *gin.Context, err error) {
	if errors.Is(err, aggregator.ErrNoData) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "No price data available",
			"message": "All upstream sources failed and no cached data exists",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Failed to fetch prices",
		"message": err.Error(),
	})
}
