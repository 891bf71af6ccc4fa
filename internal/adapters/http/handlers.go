package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/app/orch"
	"github.com/dkeye/tempvoice/internal/domain"
)

type UserRequest struct {
	UserID domain.UserID `json:"user_id"`
}

type KeepAliveRequest struct {
	KeepAlive bool `json:"keep_alive"`
}

type CreateRoomResponse struct {
	Room   *domain.ActiveRoom `json:"room"`
	Name   string             `json:"name"`
	Failed []string           `json:"failed_steps,omitempty"`
}

type handlers struct {
	svc Service
}

func guildParam(c *gin.Context) domain.GuildID  { return domain.GuildID(c.Param("guild")) }
func roomParam(c *gin.Context) domain.ChannelID { return domain.ChannelID(c.Param("room")) }
func userParam(c *gin.Context) domain.UserID    { return domain.UserID(c.Param("user")) }

func bindUser(c *gin.Context) (domain.UserID, bool) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid user_id"})
		return "", false
	}
	return req.UserID, true
}

// writeError maps lifecycle errors onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrUnknownChannel),
		errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, domain.ErrHubNotConfigured):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCustomizationDisabled):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrCannotDenyOwner):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Error().Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).
			Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handlers) getConfig(c *gin.Context) {
	cfg, err := h.svc.GetOrCreateConfig(c.Request.Context(), guildParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *handlers) updateConfig(c *gin.Context) {
	var u domain.ConfigUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config update"})
		return
	}
	cfg, err := h.svc.UpdateConfig(c.Request.Context(), guildParam(c), u)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms, err := h.svc.ListActiveRooms(c.Request.Context(), guildParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *handlers) listUserRooms(c *gin.Context) {
	rooms, err := h.svc.ListUserRooms(c.Request.Context(), guildParam(c), userParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *handlers) createRoom(c *gin.Context) {
	user, ok := bindUser(c)
	if !ok {
		return
	}
	res, err := h.svc.CreateRoom(c.Request.Context(), guildParam(c), user)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := CreateRoomResponse{Room: res.Room, Name: res.Name}
	for _, s := range res.Decoration.Failed() {
		resp.Failed = append(resp.Failed, s.Step)
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handlers) updateRoom(c *gin.Context) {
	var u orch.RoomUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room update"})
		return
	}
	room, err := h.svc.UpdateRoom(c.Request.Context(), guildParam(c), roomParam(c), u)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) deleteRoom(c *gin.Context) {
	if err := h.svc.DeleteRoom(c.Request.Context(), guildParam(c), roomParam(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) allow(c *gin.Context) {
	user, ok := bindUser(c)
	if !ok {
		return
	}
	room, err := h.svc.Allow(c.Request.Context(), guildParam(c), roomParam(c), user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) deny(c *gin.Context) {
	user, ok := bindUser(c)
	if !ok {
		return
	}
	room, err := h.svc.Deny(c.Request.Context(), guildParam(c), roomParam(c), user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) transfer(c *gin.Context) {
	user, ok := bindUser(c)
	if !ok {
		return
	}
	changed, err := h.svc.TransferOwnership(c.Request.Context(), guildParam(c), roomParam(c), user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transferred": changed})
}

func (h *handlers) keepAlive(c *gin.Context) {
	var req KeepAliveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing keep_alive"})
		return
	}
	room, err := h.svc.SetKeepAlive(c.Request.Context(), guildParam(c), roomParam(c), req.KeepAlive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) savePreference(c *gin.Context) {
	pref, err := h.svc.SavePreferenceFromRoom(c.Request.Context(), guildParam(c), roomParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (h *handlers) resetPreference(c *gin.Context) {
	if err := h.svc.ResetPreference(c.Request.Context(), guildParam(c), userParam(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) sweep(c *gin.Context) {
	destroyed, ran := h.svc.Sweep(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"destroyed": destroyed, "ran": ran})
}
