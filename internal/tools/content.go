package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"toolgate/internal/domain"
)

// decodeParams round-trips the loose param map into a typed struct.
func decodeParams[P any](params map[string]any) (P, error) {
	var p P
	data, err := json.Marshal(params)
	if err != nil {
		return p, domain.NewDomainError("tools.decodeParams", domain.ErrInvalidInput, err.Error())
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, domain.NewDomainError("tools.decodeParams", domain.ErrInvalidInput, err.Error())
	}
	return p, nil
}

func postPayload(p *domain.Post) map[string]any {
	return map[string]any{
		"post_id": p.ID,
		"title":   p.Title,
		"content": p.Content,
		"status":  string(p.Status),
	}
}

// CreatePostTool creates a post in the content platform.
type CreatePostTool struct {
	store domain.ContentStore
}

func NewCreatePostTool(store domain.ContentStore) *CreatePostTool {
	return &CreatePostTool{store: store}
}

func (t *CreatePostTool) Name() string        { return "create_post" }
func (t *CreatePostTool) Description() string { return "Create a new post." }

func (t *CreatePostTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"required": ["title"],
			"properties": {
				"title":   {"type": "string", "minLength": 1},
				"content": {"type": "string"},
				"status":  {"type": "string", "enum": ["draft", "publish", "private"]},
				"meta":    {"type": "object", "additionalProperties": {"type": "string"}}
			},
			"additionalProperties": false
		}`),
	}
}

type createPostParams struct {
	Title   string            `json:"title"`
	Content string            `json:"content"`
	Status  string            `json:"status"`
	Meta    map[string]string `json:"meta"`
}

func (t *CreatePostTool) Invoke(ctx context.Context, params map[string]any, callerID int64) (*domain.Envelope, error) {
	p, err := decodeParams[createPostParams](params)
	if err != nil {
		return domain.Fail(domain.ErrKindValidation, err.Error()), nil
	}
	if p.Title == "" {
		return domain.Fail(domain.ErrKindValidation, "title is required"), nil
	}

	status := domain.PostStatus(p.Status)
	if status == "" {
		status = domain.PostStatusDraft
	}

	created, err := t.store.CreatePost(ctx, &domain.Post{
		Title:    p.Title,
		Content:  p.Content,
		Status:   status,
		AuthorID: callerID,
		Meta:     p.Meta,
	})
	if err != nil {
		return nil, err
	}
	return domain.OK(postPayload(created)), nil
}

// UpdatePostTool updates an existing post.
type UpdatePostTool struct {
	store domain.ContentStore
}

func NewUpdatePostTool(store domain.ContentStore) *UpdatePostTool {
	return &UpdatePostTool{store: store}
}

func (t *UpdatePostTool) Name() string        { return "update_post" }
func (t *UpdatePostTool) Description() string { return "Update an existing post." }

func (t *UpdatePostTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"required": ["post_id"],
			"properties": {
				"post_id": {"type": "integer", "minimum": 1},
				"title":   {"type": "string"},
				"content": {"type": "string"},
				"status":  {"type": "string", "enum": ["draft", "publish", "private"]}
			},
			"additionalProperties": false
		}`),
	}
}

type updatePostParams struct {
	PostID  int64  `json:"post_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

func (t *UpdatePostTool) Invoke(ctx context.Context, params map[string]any, _ int64) (*domain.Envelope, error) {
	p, err := decodeParams[updatePostParams](params)
	if err != nil {
		return domain.Fail(domain.ErrKindValidation, err.Error()), nil
	}
	if p.PostID <= 0 {
		return domain.Fail(domain.ErrKindValidation, "post_id is required"), nil
	}

	updated, err := t.store.UpdatePost(ctx, &domain.Post{
		ID:      p.PostID,
		Title:   p.Title,
		Content: p.Content,
		Status:  domain.PostStatus(p.Status),
	})
	if err != nil {
		return nil, err
	}
	return domain.OK(postPayload(updated)), nil
}

// GetPostTool fetches a single post.
type GetPostTool struct {
	store domain.ContentStore
}

func NewGetPostTool(store domain.ContentStore) *GetPostTool {
	return &GetPostTool{store: store}
}

func (t *GetPostTool) Name() string        { return "get_post" }
func (t *GetPostTool) Description() string { return "Fetch a post by id." }

func (t *GetPostTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"required": ["post_id"],
			"properties": {
				"post_id": {"type": "integer", "minimum": 1}
			},
			"additionalProperties": false
		}`),
	}
}

func (t *GetPostTool) Invoke(ctx context.Context, params map[string]any, _ int64) (*domain.Envelope, error) {
	p, err := decodeParams[updatePostParams](params)
	if err != nil {
		return domain.Fail(domain.ErrKindValidation, err.Error()), nil
	}
	if p.PostID <= 0 {
		return domain.Fail(domain.ErrKindValidation, "post_id is required"), nil
	}

	post, err := t.store.GetPost(ctx, p.PostID)
	if err != nil {
		return domain.Fail(domain.ErrKindNotFound, fmt.Sprintf("post %d: %v", p.PostID, err)), nil
	}
	return domain.OK(postPayload(post)), nil
}

// ListPostsTool lists posts with optional filters.
type ListPostsTool struct {
	store domain.ContentStore
}

func NewListPostsTool(store domain.ContentStore) *ListPostsTool {
	return &ListPostsTool{store: store}
}

func (t *ListPostsTool) Name() string        { return "list_posts" }
func (t *ListPostsTool) Description() string { return "List posts, optionally filtered." }

func (t *ListPostsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"status":   {"type": "string", "enum": ["draft", "publish", "private"]},
				"search":   {"type": "string"},
				"per_page": {"type": "integer", "minimum": 1, "maximum": 100},
				"page":     {"type": "integer", "minimum": 1}
			},
			"additionalProperties": false
		}`),
	}
}

type listPostsParams struct {
	Status  string `json:"status"`
	Search  string `json:"search"`
	PerPage int    `json:"per_page"`
	Page    int    `json:"page"`
}

func (t *ListPostsTool) Invoke(ctx context.Context, params map[string]any, _ int64) (*domain.Envelope, error) {
	p, err := decodeParams[listPostsParams](params)
	if err != nil {
		return domain.Fail(domain.ErrKindValidation, err.Error()), nil
	}

	posts, err := t.store.ListPosts(ctx, domain.PostQuery{
		Status:  domain.PostStatus(p.Status),
		Search:  p.Search,
		PerPage: p.PerPage,
		Page:    p.Page,
	})
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(posts))
	for i := range posts {
		items = append(items, postPayload(&posts[i]))
	}
	return domain.OK(map[string]any{"count": len(items), "posts": items}), nil
}
