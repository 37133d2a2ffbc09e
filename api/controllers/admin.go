package controllers

import (
	"net/http"

	"github.com/Kambolo/Picksy/api/models"
	"github.com/Kambolo/Picksy/api/transport"
	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/room"
	"github.com/gin-gonic/gin"
)

type AdminController struct {
	registry *room.Registry
}

func NewAdminController(registry *room.Registry) *AdminController {
	return &AdminController{
		registry: registry,
	}
}

func (c *AdminController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api/admin", transport.AdminAuthMiddleware())

	group.GET("/rooms", c.listRooms)
	group.DELETE("/rooms/:code", c.evictRoom)
}

// @Security AdminToken
// listRooms godoc
// @Summary List all live rooms
// @Tags admin
// @Produce json
// @Success 200 {array} models.RoomSummary
// @Router /api/admin/rooms [get]
func (c *AdminController) listRooms(g *gin.Context) {
	codes := c.registry.Codes()
	summaries := make([]models.RoomSummary, 0, len(codes))
	for _, code := range codes {
		r, err := c.registry.Get(code)
		if err != nil {
			// evicted between listing and lookup
			continue
		}
		summaries = append(summaries, models.TransformRoomToSummary(r))
	}

	logging.Log.Infof("ADMIN: listed %d rooms", len(summaries))
	g.JSON(http.StatusOK, summaries)
}

// @Security AdminToken
// evictRoom godoc
// @Summary Force-evict a room from memory
// @Tags admin
// @Produce json
// @Param code path string true "Room code"
// @Success 200 {object} map[string]string
// @Failure 404 {object} models.ErrorResponse
// @Router /api/admin/rooms/{code} [delete]
func (c *AdminController) evictRoom(g *gin.Context) {
	code := g.Param("code")
	if _, err := c.registry.Get(code); err != nil {
		g.JSON(http.StatusNotFound, &models.ErrorResponse{Error: "room not found"})
		return
	}

	c.registry.Evict(code)
	logging.Log.Warnf("ADMIN: force-evicted room %s", code)
	g.JSON(http.StatusOK, gin.H{"evicted": code})
}
