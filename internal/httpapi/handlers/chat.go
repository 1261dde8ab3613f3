package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/common"
	"github.com/artinalushaku/onlineStore-sub000/internal/models"
	"github.com/artinalushaku/onlineStore-sub000/internal/push"
	"github.com/gin-gonic/gin"
)

type sendMessageReq struct {
	ReceiverID uint64 `json:"receiver_id"`
	Content    string `json:"content"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	m, err := h.ChatSvc.SendMessage(c.Request.Context(), currentUser(c), req.ReceiverID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyContent):
			common.Fail(c, http.StatusBadRequest, 10010, "content must not be empty")
		case errors.Is(err, chat.ErrBadReceiver):
			common.Fail(c, http.StatusBadRequest, 10011, "invalid receiver")
		default:
			common.Fail(c, http.StatusInternalServerError, 20001, "failed to store message")
		}
		return
	}
	common.OK(c, m)
}

func (h *Handler) ListMessages(c *gin.Context) {
	counterpartID, err := strconv.ParseUint(c.Param("counterpart_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid counterpart id")
		return
	}

	msgs, err := h.ChatSvc.History(c.Request.Context(), currentUser(c), counterpartID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to fetch messages")
		return
	}
	common.OK(c, msgs)
}

func (h *Handler) ListConversations(c *gin.Context) {
	if c.GetString("role") != models.RoleStaff {
		common.Fail(c, http.StatusForbidden, 40300, "staff only")
		return
	}
	summaries, err := h.ChatSvc.Summaries(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to fetch conversations")
		return
	}
	common.OK(c, summaries)
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	if c.GetString("role") != models.RoleStaff {
		common.Fail(c, http.StatusForbidden, 40300, "staff only")
		return
	}
	shopperID, err := strconv.ParseUint(c.Param("counterpart_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid counterpart id")
		return
	}
	if err := h.ChatSvc.DeleteConversation(c.Request.Context(), shopperID); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to delete conversation")
		return
	}
	common.OK(c, gin.H{"deleted": shopperID})
}

func (h *Handler) AnyStaff(c *gin.Context) {
	u, err := h.ChatSvc.AnyStaff(c.Request.Context())
	if err != nil {
		if errors.Is(err, chat.ErrNoStaff) {
			common.Fail(c, http.StatusNotFound, 40402, "no staff available")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "staff lookup failed")
		return
	}
	common.OK(c, gin.H{"id": u.ID, "display_name": u.DisplayName})
}

// WS upgrades the authenticated request into a push-channel connection.
func (h *Handler) WS(c *gin.Context) {
	userID := c.GetUint64("user_id")
	role := c.GetString("role")
	if err := push.ServeWS(h.Hub, c.Writer, c.Request, userID, role); err != nil {
		// the upgrader has already written the error response
		c.Abort()
	}
}
