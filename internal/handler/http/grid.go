package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/service"
)

// GridHandler serves the raw cell list and the server-side grid actions.
type GridHandler struct {
	cells *service.CellService
	store *service.GridStore
}

func NewGridHandler(cells *service.CellService, store *service.GridStore) *GridHandler {
	if cells == nil {
		panic("CellService cannot be nil for GridHandler")
	}
	if store == nil {
		panic("GridStore cannot be nil for GridHandler")
	}
	return &GridHandler{cells: cells, store: store}
}

type ReplaceResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type AddCellResponse struct {
	Added     bool         `json:"added"`
	Cell      *domain.Cell `json:"cell,omitempty"`
	Dimension int          `json:"dimension"`
}

// ListCells handles GET /api/grid.
func (h *GridHandler) ListCells(c *gin.Context) {
	cells, err := h.cells.List(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, cells)
}

// ReplaceCells handles POST /api/grid. The body must be a JSON array of cells.
func (h *GridHandler) ReplaceCells(c *gin.Context) {
	var cells []domain.Cell
	if err := c.ShouldBindJSON(&cells); err != nil {
		logrus.WithError(err).Warn("Handler.ReplaceCells: body is not a cell list")
		ErrorResponse(c, http.StatusBadRequest, "Body must be a JSON array of cells")
		return
	}
	if cells == nil {
		// JSON null
		ErrorResponse(c, http.StatusBadRequest, "Body must be a JSON array of cells")
		return
	}
	if err := h.cells.Replace(c.Request.Context(), cells); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, ReplaceResponse{Message: "Grid saved", Count: len(cells)})
}

// State handles GET /api/grid/state. A failed reload still answers with the
// in-memory grid.
func (h *GridHandler) State(c *gin.Context) {
	if err := h.store.Load(c.Request.Context()); err != nil {
		logrus.WithError(err).Warn("Handler.State: reload failed, serving in-memory grid")
	}
	SuccessResponse(c, http.StatusOK, h.store.State())
}

// AddCell handles POST /api/grid/cells. It reloads first so raw writes from other
// clients are planned against; without a fresh list nothing is added.
func (h *GridHandler) AddCell(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.store.Load(ctx); err != nil {
		HandleServiceError(c, err)
		return
	}

	cell, added, err := h.store.AddCell(ctx)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	state := h.store.State()
	if !added {
		SuccessResponse(c, http.StatusOK, AddCellResponse{Added: false, Dimension: state.Dimension})
		return
	}
	SuccessResponse(c, http.StatusCreated, AddCellResponse{Added: true, Cell: &cell, Dimension: state.Dimension})
}

// Clear handles DELETE /api/grid. The store write happens in the background.
func (h *GridHandler) Clear(c *gin.Context) {
	h.store.Clear(c.Request.Context())
	SuccessResponse(c, http.StatusAccepted, gin.H{"message": "Grid cleared"})
}
