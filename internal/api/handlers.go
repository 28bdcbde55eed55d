package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/crateguide/crateguide/internal/conversation"
	"github.com/crateguide/crateguide/pkg/models"
)

type createPortraitRequest struct {
	UserID  string   `json:"userId"`
	Artists []string `json:"artists"`
}

type startConversationRequest struct {
	PortraitID string `json:"portraitId"`
	UserID     string `json:"userId"`
}

type startConversationResponse struct {
	ConversationID string `json:"conversationId"`
	InitialMessage string `json:"initialMessage"`
}

type continueConversationRequest struct {
	Message string `json:"message"`
}

type continueConversationResponse struct {
	Response             string `json:"response"`
	ConversationComplete bool   `json:"conversationComplete"`
}

type recommendationsResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

func errorResponse(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (s *Server) createPortrait(c echo.Context) error {
	var req createPortraitRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return errorResponse(c, http.StatusBadRequest, "userId is required")
	}
	if len(req.Artists) == 0 {
		return errorResponse(c, http.StatusBadRequest, "artists must not be empty")
	}

	p, err := s.portraits.Build(c.Request().Context(), req.UserID, req.Artists)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "failed to build portrait")
	}

	return c.JSON(http.StatusCreated, p)
}

func (s *Server) startConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.PortraitID) == "" {
		return errorResponse(c, http.StatusBadRequest, "portraitId is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return errorResponse(c, http.StatusBadRequest, "userId is required")
	}

	conv, err := s.engine.Start(c.Request().Context(), req.PortraitID, req.UserID)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "failed to start conversation")
	}

	return c.JSON(http.StatusCreated, startConversationResponse{
		ConversationID: conv.ID,
		InitialMessage: conv.Transcript[0].Content,
	})
}

func (s *Server) continueConversation(c echo.Context) error {
	conversationID := c.Param("id")

	var req continueConversationRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errorResponse(c, http.StatusBadRequest, "message must not be empty")
	}

	conv, err := s.engine.Continue(c.Request().Context(), conversationID, req.Message)
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return errorResponse(c, http.StatusNotFound, "conversation not found")
	case errors.Is(err, conversation.ErrConversationComplete):
		return errorResponse(c, http.StatusConflict, "conversation is already complete")
	case errors.Is(err, conversation.ErrVersionConflict):
		return errorResponse(c, http.StatusConflict, "conversation was updated concurrently, retry")
	case err != nil:
		return errorResponse(c, http.StatusInternalServerError, "failed to continue conversation")
	}

	last := conv.Transcript[len(conv.Transcript)-1]
	return c.JSON(http.StatusOK, continueConversationResponse{
		Response:             last.Content,
		ConversationComplete: conv.Complete(),
	})
}

func (s *Server) generateRecommendations(c echo.Context) error {
	conversationID := c.Param("id")

	recs, err := s.orchestrator.Generate(c.Request().Context(), conversationID)
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return errorResponse(c, http.StatusNotFound, "conversation not found")
	case err != nil:
		return errorResponse(c, http.StatusInternalServerError, "failed to generate recommendations")
	}

	return c.JSON(http.StatusOK, recommendationsResponse{Recommendations: recs})
}
