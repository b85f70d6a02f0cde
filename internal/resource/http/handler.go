package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/request"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/response"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/resource"
)

type Handler struct {
	service resource.Service
}

func NewHandler(service resource.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListResourcesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	list, err := h.service.List(c.Request.Context(), resource.Filter{
		Location:     req.Location,
		BookableOnly: req.BookableOnly,
		Search:       req.Search,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ResourceResponse, len(list))
	for i, r := range list {
		items[i] = NewResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	res, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
			return
		}
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewResponse(res))
}
