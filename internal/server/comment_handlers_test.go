package server

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"testing"

	"clubhouse/internal/mention"
	"clubhouse/internal/models"
	"clubhouse/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentsPath(entry models.Log) string {
	return fmt.Sprintf("/api/entities/log/%s/comments", entry.ID)
}

func TestCommentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.user(t, "alice")
	bob, bobToken := env.user(t, "bob")
	entry := env.log(t, alice)

	var created models.Comment
	resp := env.do(t, http.MethodPost, commentsPath(entry), aliceToken, fiber.Map{"body": "hey @bob"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "hey "+mention.Token(bob.ID), created.Body)

	var reply models.Comment
	resp = env.do(t, http.MethodPost, commentsPath(entry), bobToken, fiber.Map{"body": "hi!", "parent_id": created.ID}, &reply)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, reply.ParentID)

	var page service.ThreadPage
	resp = env.do(t, http.MethodGet, commentsPath(entry), "", nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, page.TotalRoots)
	require.Len(t, page.Threads, 1)
	root := page.Threads[0].Comment
	require.NotNil(t, root.Author)
	assert.Equal(t, "alice", root.Author.Username)
	assert.Equal(t, "hey @bob", mention.PlainText(slices.Values(root.Segments)))
	require.Len(t, page.Threads[0].Replies, 1)

	var problem models.ErrorResponse
	resp = env.do(t, http.MethodPut, "/api/comments/"+created.ID, bobToken, fiber.Map{"body": "mine now"}, &problem)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodePermission, problem.Code)

	var updated models.Comment
	resp = env.do(t, http.MethodPut, "/api/comments/"+created.ID, aliceToken, fiber.Map{"body": "edited"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "edited", updated.Body)

	// The root has a reply, so it becomes a placeholder.
	resp = env.do(t, http.MethodDelete, "/api/comments/"+created.ID, aliceToken, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	page = service.ThreadPage{}
	env.do(t, http.MethodGet, commentsPath(entry), "", nil, &page)
	require.Len(t, page.Threads, 1)
	assert.True(t, page.Threads[0].Comment.Deleted)
	assert.Equal(t, models.DeletedPlaceholder, mention.PlainText(slices.Values(page.Threads[0].Comment.Segments)))

	resp = env.do(t, http.MethodDelete, "/api/comments/"+reply.ID, bobToken, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	page = service.ThreadPage{}
	env.do(t, http.MethodGet, commentsPath(entry), "", nil, &page)
	assert.Empty(t, page.Threads)
	assert.Equal(t, 0, page.TotalRoots)
}

func TestCommentErrors(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.user(t, "alice")
	entry := env.log(t, alice)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"create without token", http.MethodPost, commentsPath(entry), "", fiber.Map{"body": "hi"}, http.StatusUnauthorized, models.CodeUnauthenticated},
		{"create with bad token", http.MethodPost, commentsPath(entry), "garbage", fiber.Map{"body": "hi"}, http.StatusUnauthorized, models.CodeUnauthenticated},
		{"empty body", http.MethodPost, commentsPath(entry), token, fiber.Map{"body": "   "}, http.StatusBadRequest, models.CodeValidation},
		{"missing body", http.MethodPost, commentsPath(entry), token, nil, http.StatusBadRequest, models.CodeValidation},
		{"body too long", http.MethodPost, commentsPath(entry), token, fiber.Map{"body": strings.Repeat("y", 10001)}, http.StatusBadRequest, models.CodeValidation},
		{"unknown kind", http.MethodPost, "/api/entities/poll/x/comments", token, fiber.Map{"body": "hi"}, http.StatusBadRequest, models.CodeValidation},
		{"missing entity", http.MethodPost, "/api/entities/log/nope/comments", token, fiber.Map{"body": "hi"}, http.StatusNotFound, models.CodeNotFound},
		{"missing parent", http.MethodPost, commentsPath(entry), token, fiber.Map{"body": "hi", "parent_id": "123"}, http.StatusNotFound, models.CodeNotFound},
		{"page size zero", http.MethodGet, commentsPath(entry) + "?page_size=0", "", nil, http.StatusBadRequest, models.CodeValidation},
		{"page zero", http.MethodGet, commentsPath(entry) + "?page=0", "", nil, http.StatusBadRequest, models.CodeValidation},
		{"read missing entity", http.MethodGet, "/api/entities/showcase/nope/comments", "", nil, http.StatusNotFound, models.CodeNotFound},
		{"update missing comment", http.MethodPut, "/api/comments/404", token, fiber.Map{"body": "x"}, http.StatusNotFound, models.CodeNotFound},
		{"delete without token", http.MethodDelete, "/api/comments/404", "", nil, http.StatusUnauthorized, models.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var problem models.ErrorResponse
			resp := env.do(t, tt.method, tt.path, tt.token, tt.body, &problem)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, problem.Code)
			assert.NotEmpty(t, problem.Error)
		})
	}
}

func TestGetThreadPage_Pagination(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.user(t, "alice")
	entry := env.log(t, alice)

	for i := range 3 {
		resp := env.do(t, http.MethodPost, commentsPath(entry), token, fiber.Map{"body": fmt.Sprintf("comment %d", i)}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var page service.ThreadPage
	resp := env.do(t, http.MethodGet, commentsPath(entry)+"?page=2&page_size=2", "", nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 3, page.TotalRoots)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Threads, 1)
	assert.Equal(t, "comment 2", page.Threads[0].Comment.Body)

	page = service.ThreadPage{}
	env.do(t, http.MethodGet, commentsPath(entry)+"?highlight=comment", "", nil, &page)
	require.Len(t, page.Threads, 3)
	assert.Equal(t, service.DefaultPageSize, page.PageSize)
	assert.Equal(t, mention.SegmentHighlight, page.Threads[0].Comment.Segments[0].Kind)
}
