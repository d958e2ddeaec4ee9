package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/pkg/response"
)

type dataTableGridder interface {
	Grid(ctx context.Context, id string) (*dto.DataTableGridResponse, error)
}

// DataTableHandler serves statistical table grids.
type DataTableHandler struct {
	service dataTableGridder
}

// NewDataTableHandler builds the handler.
func NewDataTableHandler(service dataTableGridder) *DataTableHandler {
	return &DataTableHandler{service: service}
}

// Grid godoc
// @Summary Indicator x period grid with a data quality report
// @Tags DataTables
// @Produce json
// @Param id path string true "Data table ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /data-tables/{id}/grid [get]
func (h *DataTableHandler) Grid(c *gin.Context) {
	grid, err := h.service.Grid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}
