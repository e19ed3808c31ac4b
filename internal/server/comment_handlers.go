package server

import (
	"clubhouse/internal/middleware"
	"clubhouse/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Body     string  `json:"body" validate:"comment_body"`
	ParentID *string `json:"parent_id" validate:"omitempty,max=32"`
}

type updateCommentRequest struct {
	Body string `json:"body" validate:"comment_body"`
}

// GetThreadPage returns one page of an entity's comment threads (public)
func (s *Server) GetThreadPage(c *fiber.Ctx) error {
	kind, err := parseEntityKind(c)
	if err != nil {
		return respondError(c, err)
	}
	entityID, err := requireParam(c, "id", "Entity ID")
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.threadService.GetThreadPage(c.UserContext(), service.ThreadPageInput{
		ViewerID:  middleware.Viewer(c),
		Kind:      kind,
		EntityID:  entityID,
		Page:      c.QueryInt("page", 1),
		PageSize:  c.QueryInt("page_size", service.DefaultPageSize),
		Highlight: c.Query("highlight"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CreateComment adds a root comment or a reply to an entity (protected)
func (s *Server) CreateComment(c *fiber.Ctx) error {
	kind, err := parseEntityKind(c)
	if err != nil {
		return respondError(c, err)
	}
	entityID, err := requireParam(c, "id", "Entity ID")
	if err != nil {
		return respondError(c, err)
	}

	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	created, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		ViewerID: middleware.Viewer(c),
		Kind:     kind,
		EntityID: entityID,
		Body:     req.Body,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateComment replaces a comment's body (author only)
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := requireParam(c, "commentId", "Comment ID")
	if err != nil {
		return respondError(c, err)
	}

	var req updateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	updated, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		ViewerID:  middleware.Viewer(c),
		CommentID: commentID,
		Body:      req.Body,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment removes a comment (author only)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := requireParam(c, "commentId", "Comment ID")
	if err != nil {
		return respondError(c, err)
	}

	err = s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		ViewerID:  middleware.Viewer(c),
		CommentID: commentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
