package server

import (
	"github.com/gofiber/fiber/v2"
)

// SuggestMentions lists profiles whose username starts with q.
func (s *Server) SuggestMentions(c *fiber.Ctx) error {
	profiles, err := s.mentionService.Suggest(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profiles)
}
