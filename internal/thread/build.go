// Package thread turns a flat, parent-referencing comment set into
// two-level threads and pages over them.
//
// Only two levels are materialized: a root and its replies. Replies to
// replies are attached to their nearest root ancestor, so the shape never
// grows deeper than Thread.Replies.
package thread

import (
	"slices"
	"strings"

	"clubhouse/internal/models"
)

// Thread is a root comment with every reply that flattens into it.
type Thread struct {
	Root    models.Comment   `json:"comment"`
	Replies []models.Comment `json:"replies"`
}

// Build groups comments into threads. Input order does not matter. A comment
// whose parent is not in the input becomes a root of its own rather than
// being dropped, and so does any comment caught in a parent cycle. Roots and
// each reply list are ordered by CreatedAt, then ID.
func Build(comments []models.Comment) []Thread {
	byID := make(map[string]int, len(comments))
	for i := range comments {
		byID[comments[i].ID] = i
	}

	rootOf := make(map[string]string, len(comments))
	for i := range comments {
		rootOf[comments[i].ID] = resolveRoot(comments, byID, rootOf, i)
	}

	threads := make([]Thread, 0, len(comments))
	index := make(map[string]int, len(comments))
	for i := range comments {
		c := comments[i]
		if rootOf[c.ID] == c.ID {
			index[c.ID] = len(threads)
			threads = append(threads, Thread{Root: c, Replies: []models.Comment{}})
		}
	}
	for i := range comments {
		c := comments[i]
		root := rootOf[c.ID]
		if root == c.ID {
			continue
		}
		t := &threads[index[root]]
		t.Replies = append(t.Replies, c)
	}

	slices.SortFunc(threads, func(a, b Thread) int { return compare(a.Root, b.Root) })
	for i := range threads {
		slices.SortFunc(threads[i].Replies, compare)
	}
	return threads
}

// resolveRoot walks parent links from comments[i] up to the topmost ancestor
// present in the set.
func resolveRoot(comments []models.Comment, byID map[string]int, known map[string]string, i int) string {
	start := comments[i].ID
	seen := map[string]struct{}{start: {}}
	cur := i
	for {
		c := comments[cur]
		if c.IsRoot() {
			return c.ID
		}
		if r, ok := known[c.ID]; ok {
			return r
		}
		next, ok := byID[*c.ParentID]
		if !ok {
			return c.ID
		}
		if _, loop := seen[comments[next].ID]; loop {
			return start
		}
		seen[comments[next].ID] = struct{}{}
		cur = next
	}
}

func compare(a, b models.Comment) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	// Snowflake ids are decimal strings; shorter means older.
	if len(a.ID) != len(b.ID) {
		return len(a.ID) - len(b.ID)
	}
	return strings.Compare(a.ID, b.ID)
}

// Count returns the number of comments across all threads.
func Count(threads []Thread) int {
	n := 0
	for _, t := range threads {
		n += 1 + len(t.Replies)
	}
	return n
}

// CommentIDs lists every comment id in threads, roots first within each
// thread.
func CommentIDs(threads []Thread) []string {
	ids := make([]string, 0, Count(threads))
	for _, t := range threads {
		ids = append(ids, t.Root.ID)
		for _, r := range t.Replies {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
