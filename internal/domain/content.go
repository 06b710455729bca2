package domain

import "context"

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostStatusDraft   PostStatus = "draft"
	PostStatusPublish PostStatus = "publish"
	PostStatusPrivate PostStatus = "private"
)

// Post is the subset of the content platform's post entity the tools touch.
type Post struct {
	ID       int64             `json:"id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Status   PostStatus        `json:"status"`
	AuthorID int64             `json:"author_id,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// PostQuery filters a post listing.
type PostQuery struct {
	Status  PostStatus
	Search  string
	PerPage int
	Page    int
}

// ContentStore is the narrow contract against the platform's post storage.
type ContentStore interface {
	CreatePost(ctx context.Context, p *Post) (*Post, error)
	UpdatePost(ctx context.Context, p *Post) (*Post, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	ListPosts(ctx context.Context, q PostQuery) ([]Post, error)
	// Health reports whether the platform is reachable.
	Health(ctx context.Context) error
}
