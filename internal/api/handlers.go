package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trader-explorer/internal/archetype"
	"trader-explorer/internal/domain"
	"trader-explorer/internal/storage"
)

type handlers struct {
	log logrus.FieldLogger
}

// fail writes the error response for err.
func (h *handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Detail: "Trader not found"})
	case errors.Is(err, archetype.ErrInvalidK), errors.Is(err, archetype.ErrTooFewTraders):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
	default:
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: "Internal Server Error"})
	}
}

// intQuery parses an optional integer query parameter within [lo, hi].
func intQuery(c *gin.Context, name string, def, lo, hi int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return v, nil
}

func (h *handlers) overview(c *gin.Context) {
	o, err := sessionFrom(c).Overview(c.Request.Context(), domain.TopTradersLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOverviewResponse(o))
}

func (h *handlers) labelSummary(c *gin.Context) {
	labels, err := sessionFrom(c).LabelSummary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newLabelSummaryResponse(labels))
}

func (h *handlers) footprintScatter(c *gin.Context) {
	limit, err := intQuery(c, "limit", domain.FootprintLimitDefault, domain.FootprintLimitMin, domain.FootprintLimitMax)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}

	points, err := sessionFrom(c).FootprintScatter(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newFootprintScatterResponse(points))
}

func (h *handlers) traderTopics(c *gin.Context) {
	topics, err := sessionFrom(c).TraderTopics(c.Request.Context(), c.Param("trader_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTraderTopicResponse(topics))
}

func (h *handlers) archetypeMap(c *gin.Context) {
	archetypes, err := sessionFrom(c).Archetypes(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newArchetypesResponse(archetypes))
}

func (h *handlers) archetypeClusters(c *gin.Context) {
	k, err := intQuery(c, "k", archetype.DefaultK, archetype.MinK, archetype.MaxK)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}

	features, err := sessionFrom(c).ClusterFeatures(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := archetype.Partition(features, k)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newClustersResponse(k, result))
}

func (h *handlers) traderProfile(c *gin.Context) {
	p, err := sessionFrom(c).TraderProfile(c.Request.Context(), c.Param("trader_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTraderProfileResponse(p))
}
