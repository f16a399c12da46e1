package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CountyHandler handles single county lookups
type CountyHandler struct {
	service CountyService
}

// CountyService interface for dependency injection
type CountyService interface {
	CountyForCoordinate(context.Context, float64, float64) (*models.CountyLookup, error)
	CountyForPostalCode(context.Context, string) (*models.CountyLookup, error)
}

// NewCountyHandler creates a new county handler
func NewCountyHandler(svc CountyService) *CountyHandler {
	return &CountyHandler{service: svc}
}

// County handles GET /county requests
//
//	@Summary	Resolve the county for a coordinate
//	@Tags		county
//	@Produce	json
//	@Param		lat	query		number	true	"Latitude"
//	@Param		lon	query		number	true	"Longitude"
//	@Success	200	{object}	models.CountyLookup
//	@Failure	400
//	@Failure	404
//	@Router		/county [get]
func (h *CountyHandler) County(c *gin.Context) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")

	if latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameters 'lat' and 'lon'"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude format"})
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude format"})
		return
	}

	lookup, err := h.service.CountyForCoordinate(c.Request.Context(), lat, lon)
	h.respond(c, lookup, err, "no county found for the specified coordinates")
}

// CountyByPostalCode handles GET /county/zip requests
//
//	@Summary	Resolve the county for a US postal code
//	@Tags		county
//	@Produce	json
//	@Param		zip	query		string	true	"Postal code"
//	@Success	200	{object}	models.CountyLookup
//	@Failure	400
//	@Failure	404
//	@Router		/county/zip [get]
func (h *CountyHandler) CountyByPostalCode(c *gin.Context) {
	zip := c.Query("zip")
	if zip == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'zip'"})
		return
	}

	lookup, err := h.service.CountyForPostalCode(c.Request.Context(), zip)
	h.respond(c, lookup, err, "no county found for the specified postal code")
}

func (h *CountyHandler) respond(c *gin.Context, lookup *models.CountyLookup, err error, notFound string) {
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("county lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if lookup == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}

	c.JSON(http.StatusOK, lookup)
}
