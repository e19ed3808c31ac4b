package server

import (
	"clubhouse/internal/interaction"
	"clubhouse/internal/middleware"
	"clubhouse/internal/models"

	"github.com/gofiber/fiber/v2"
)

type toggleLikeRequest struct {
	CurrentlyLiked bool `json:"currently_liked"`
}

type toggleBookmarkRequest struct {
	CurrentlyBookmarked bool `json:"currently_bookmarked"`
}

func parseSubject(c *fiber.Ctx) (models.Subject, error) {
	kind, err := models.ParseSubjectKind(c.Params("subjectKind"))
	if err != nil {
		return models.Subject{}, err
	}
	id, err := requireParam(c, "subjectId", "Subject ID")
	if err != nil {
		return models.Subject{}, err
	}
	return models.Subject{Kind: kind, ID: id}, nil
}

// ToggleLike inserts or removes the viewer's like and returns the
// authoritative count.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	subject, err := parseSubject(c)
	if err != nil {
		return respondError(c, err)
	}
	var req toggleLikeRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := s.interactionService.Toggle(c.UserContext(), middleware.Viewer(c), interaction.NamespaceLike, subject, req.CurrentlyLiked)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": res.Count, "liked": res.Active})
}

// ToggleBookmark is ToggleLike for the bookmark namespace.
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	subject, err := parseSubject(c)
	if err != nil {
		return respondError(c, err)
	}
	var req toggleBookmarkRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := s.interactionService.Toggle(c.UserContext(), middleware.Viewer(c), interaction.NamespaceBookmark, subject, req.CurrentlyBookmarked)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": res.Count, "bookmarked": res.Active})
}
