// Package legacy resolves tool names from the pre-gateway naming scheme.
// Old integrations invoke tools as wp_<verb>_<noun>; the translator maps
// those onto the same content operations the current core tools use, so the
// router can serve both vocabularies without the handlers knowing.
package legacy

import (
	"context"
	"log/slog"

	"toolgate/internal/domain"
)

type legacyFunc func(ctx context.Context, params map[string]any, callerID int64) (map[string]any, error)

// Translator implements domain.LegacyTranslator over a ContentStore.
type Translator struct {
	store  domain.ContentStore
	logger *slog.Logger
	table  map[string]legacyFunc
}

// New creates a Translator with the built-in alias table.
func New(store domain.ContentStore, logger *slog.Logger) *Translator {
	t := &Translator{store: store, logger: logger}
	t.table = map[string]legacyFunc{
		"wp_create_post": t.createPost,
		"wp_update_post": t.updatePost,
		"wp_get_post":    t.getPost,
		"wp_list_posts":  t.listPosts,
	}
	return t
}

// TranslateAndExecute runs the legacy tool if name is in the alias table.
// Returns (nil, nil) for names the table does not know.
func (t *Translator) TranslateAndExecute(ctx context.Context, name string, params map[string]any, callerID int64) (map[string]any, error) {
	fn, ok := t.table[name]
	if !ok {
		return nil, nil
	}
	t.logger.Debug("legacy tool name translated", "tool", name, "caller_id", callerID)
	return fn(ctx, params, callerID)
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func intParam(params map[string]any, key string) int64 {
	switch v := params[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func (t *Translator) createPost(ctx context.Context, params map[string]any, callerID int64) (map[string]any, error) {
	title := stringParam(params, "title")
	if title == "" {
		return nil, domain.NewDomainError("legacy.createPost", domain.ErrInvalidInput, "title is required")
	}
	status := domain.PostStatus(stringParam(params, "status"))
	if status == "" {
		status = domain.PostStatusDraft
	}
	created, err := t.store.CreatePost(ctx, &domain.Post{
		Title:    title,
		Content:  stringParam(params, "content"),
		Status:   status,
		AuthorID: callerID,
	})
	if err != nil {
		return nil, err
	}
	// Old callers expect the flat {ok, post_id} shape.
	return map[string]any{"ok": true, "post_id": created.ID}, nil
}

func (t *Translator) updatePost(ctx context.Context, params map[string]any, callerID int64) (map[string]any, error) {
	id := intParam(params, "post_id")
	if id <= 0 {
		return nil, domain.NewDomainError("legacy.updatePost", domain.ErrInvalidInput, "post_id is required")
	}
	updated, err := t.store.UpdatePost(ctx, &domain.Post{
		ID:      id,
		Title:   stringParam(params, "title"),
		Content: stringParam(params, "content"),
		Status:  domain.PostStatus(stringParam(params, "status")),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"ok": true, "post_id": updated.ID}, nil
}

func (t *Translator) getPost(ctx context.Context, params map[string]any, _ int64) (map[string]any, error) {
	id := intParam(params, "post_id")
	if id <= 0 {
		return nil, domain.NewDomainError("legacy.getPost", domain.ErrInvalidInput, "post_id is required")
	}
	p, err := t.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"ok":      true,
		"post_id": p.ID,
		"title":   p.Title,
		"content": p.Content,
		"status":  string(p.Status),
	}, nil
}

func (t *Translator) listPosts(ctx context.Context, params map[string]any, _ int64) (map[string]any, error) {
	q := domain.PostQuery{
		Status:  domain.PostStatus(stringParam(params, "status")),
		Search:  stringParam(params, "search"),
		PerPage: int(intParam(params, "per_page")),
		Page:    int(intParam(params, "page")),
	}
	posts, err := t.store.ListPosts(ctx, q)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(posts))
	for _, p := range posts {
		items = append(items, map[string]any{
			"post_id": p.ID,
			"title":   p.Title,
			"status":  string(p.Status),
		})
	}
	return map[string]any{"ok": true, "count": len(items), "posts": items}, nil
}

// Names returns the legacy alias names, for diagnostics.
func (t *Translator) Names() []string {
	names := make([]string, 0, len(t.table))
	for name := range t.table {
		names = append(names, name)
	}
	return names
}

var _ domain.LegacyTranslator = (*Translator)(nil)
