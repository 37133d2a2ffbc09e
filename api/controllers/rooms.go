package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Kambolo/Picksy/api/models"
	"github.com/Kambolo/Picksy/broadcast"
	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/room"
	"github.com/Kambolo/Picksy/storage"
	"github.com/gin-gonic/gin"
)

type RoomsController struct {
	session *room.Session
	catalog storage.CatalogStorage
	hub     *broadcast.Hub
}

func NewRoomsController(session *room.Session, catalog storage.CatalogStorage, hub *broadcast.Hub) *RoomsController {
	return &RoomsController{
		session: session,
		catalog: catalog,
		hub:     hub,
	}
}

func (c *RoomsController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api/rooms")

	group.POST("", c.createRoom)
	group.GET("/:code", c.getRoom)
	group.POST("/:code/join", c.joinRoom)
	group.POST("/:code/leave", c.leaveRoom)
	group.GET("/:code/events", c.streamEvents)
	group.GET("/:code/reconcile", c.reconcile)
	group.GET("/:code/results", c.getResults)
}

// createRoom godoc
// @Summary Create a voting room
// @Description Creates a room from an explicit category sequence or a category set
// @Tags rooms
// @Accept json
// @Produce json
// @Param room body models.CreateRoomRequest true "Room setup"
// @Success 201 {object} models.RoomResponse
// @Failure 400 {object} models.ErrorResponse "Invalid setup"
// @Failure 404 {object} models.ErrorResponse "Unknown category or set"
// @Router /api/rooms [post]
func (c *RoomsController) createRoom(g *gin.Context) {
	var req models.CreateRoomRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request format"})
		return
	}

	seq := make([]room.CategoryRef, 0, len(req.Categories))
	for _, entry := range req.Categories {
		seq = append(seq, room.CategoryRef{CategoryID: entry.CategoryID, SetID: entry.SetID})
	}

	if req.SetID != nil {
		set, err := c.catalog.GetSet(g.Request.Context(), *req.SetID)
		if err != nil {
			if errors.Is(err, storage.ErrSetNotFound) {
				g.JSON(http.StatusNotFound, &models.ErrorResponse{Error: "category set not found"})
				return
			}
			logging.Log.Errorf("ROOMS: failed to expand set %d: %v", *req.SetID, err)
			g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not resolve category set"})
			return
		}
		for _, catID := range set.CategoryIDs {
			seq = append(seq, room.CategoryRef{CategoryID: catID, SetID: req.SetID})
		}
	}

	r, err := c.session.Create(g.Request.Context(), req.OwnerID, req.Name, seq)
	if err != nil {
		c.writeError(g, err)
		return
	}

	g.JSON(http.StatusCreated, models.TransformRoomToResponse(r))
}

// getRoom godoc
// @Summary Get a room by code
// @Tags rooms
// @Produce json
// @Param code path string true "Room code"
// @Success 200 {object} models.RoomResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rooms/{code} [get]
func (c *RoomsController) getRoom(g *gin.Context) {
	r, err := c.session.Registry().Get(g.Param("code"))
	if err != nil {
		c.writeError(g, err)
		return
	}
	g.JSON(http.StatusOK, models.TransformRoomToResponse(r))
}

// joinRoom godoc
// @Summary Join a room
// @Description Adds a participant (or reattaches a reconnecting one). A zero userId requests a guest identity.
// @Tags rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param join body models.JoinRoomRequest true "Participant"
// @Success 200 {object} models.JoinRoomResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Room closed or voting already started"
// @Router /api/rooms/{code}/join [post]
func (c *RoomsController) joinRoom(g *gin.Context) {
	var req models.JoinRoomRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request format"})
		return
	}

	code := g.Param("code")
	id, err := c.session.Join(g.Request.Context(), code, req.UserID, req.Username)
	if err != nil {
		c.writeError(g, err)
		return
	}

	r, err := c.session.Registry().Get(code)
	if err != nil {
		c.writeError(g, err)
		return
	}

	g.JSON(http.StatusOK, models.JoinRoomResponse{
		ParticipantID: id,
		Room:          models.TransformRoomToResponse(r),
	})
}

// leaveRoom godoc
// @Summary Leave a room
// @Description Removes a participant. Leaving twice is not an error.
// @Tags rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param leave body models.LeaveRoomRequest true "Participant"
// @Success 204 "Left"
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rooms/{code}/leave [post]
func (c *RoomsController) leaveRoom(g *gin.Context) {
	var req models.LeaveRoomRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request format"})
		return
	}

	if err := c.session.Leave(g.Request.Context(), g.Param("code"), req.UserID); err != nil {
		c.writeError(g, err)
		return
	}
	g.Status(http.StatusNoContent)
}

// streamEvents godoc
// @Summary Stream room events over SSE
// @Description Server-sent event stream of the room's broadcast feed. The stream ends when the room is closed or the subscriber falls too far behind.
// @Tags rooms
// @Produce text/event-stream
// @Param code path string true "Room code"
// @Param participantId query int true "Participant id"
// @Success 200 {object} room.Event
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rooms/{code}/events [get]
func (c *RoomsController) streamEvents(g *gin.Context) {
	participantID, err := strconv.ParseInt(g.Query("participantId"), 10, 64)
	if err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "participantId is required"})
		return
	}

	code := g.Param("code")
	if _, err := c.session.Registry().Get(code); err != nil {
		c.writeError(g, err)
		return
	}

	sub := c.hub.Subscribe(code, participantID)
	defer c.hub.Unsubscribe(sub)
	logging.Log.Infof("ROOMS: participant %d streaming events for %s", participantID, code)

	g.Writer.Header().Set("Cache-Control", "no-cache")
	for {
		select {
		case <-g.Request.Context().Done():
			return
		case event, ok := <-sub.C:
			if !ok {
				// room evicted or subscriber dropped for falling behind
				return
			}
			g.SSEvent(string(event.Type), event)
			g.Writer.Flush()
		}
	}
}

// reconcile godoc
// @Summary Rebuild a client's view after (re)connecting
// @Tags rooms
// @Produce json
// @Param code path string true "Room code"
// @Param participantId query int true "Participant id"
// @Success 200 {object} room.View
// @Failure 404 {object} models.ErrorResponse "Room no longer exists"
// @Router /api/rooms/{code}/reconcile [get]
func (c *RoomsController) reconcile(g *gin.Context) {
	participantID, err := strconv.ParseInt(g.Query("participantId"), 10, 64)
	if err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "participantId is required"})
		return
	}

	view, err := c.session.Reconcile(g.Request.Context(), g.Param("code"), participantID)
	if err != nil {
		c.writeError(g, err)
		return
	}
	g.JSON(http.StatusOK, view)
}

// getResults godoc
// @Summary Get the final results of a finished room
// @Tags rooms
// @Produce json
// @Param code path string true "Room code"
// @Success 200 {object} room.ResultSet
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Voting not finished"
// @Router /api/rooms/{code}/results [get]
func (c *RoomsController) getResults(g *gin.Context) {
	rs, err := c.session.Results(g.Request.Context(), g.Param("code"))
	if err != nil {
		if errors.Is(err, storage.ErrResultNotFound) {
			g.JSON(http.StatusNotFound, &models.ErrorResponse{Error: "no results for this room"})
			return
		}
		c.writeError(g, err)
		return
	}
	g.JSON(http.StatusOK, rs)
}

// writeError maps core errors onto HTTP statuses following the taxonomy:
// not-found is terminal, precondition failures are 409, authorization is
// 403, everything unexpected is 500.
func (c *RoomsController) writeError(g *gin.Context, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		g.JSON(http.StatusNotFound, &models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrCategoryNotFound):
		g.JSON(http.StatusNotFound, &models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, room.ErrNotOwner):
		g.JSON(http.StatusForbidden, &models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, room.ErrInvalidSetup):
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, room.ErrRoomClosed),
		errors.Is(err, room.ErrVotingStarted),
		errors.Is(err, room.ErrInvalidTransition),
		errors.Is(err, room.ErrInsufficientParticipants),
		errors.Is(err, room.ErrCategoryAlreadyOpen),
		errors.Is(err, room.ErrNoOpenPoll),
		errors.Is(err, room.ErrParticipantNotInRoom),
		errors.Is(err, room.ErrResultsNotReady):
		g.JSON(http.StatusConflict, &models.ErrorResponse{Error: err.Error()})
	default:
		logging.Log.Errorf("ROOMS: unexpected error: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "unexpected internal error"})
	}
}
