package model

import "time"

type Sort string

const (
	SortCreatedAtDesc Sort = "created_at_desc"
	SortCreatedAtAsc  Sort = "created_at_asc"
)

type Comment struct {
	ID        int64     `json:"id"`
	PostSlug  string    `json:"post_slug"`
	ParentID  int64     `json:"parent_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is a top-level comment with its replies, oldest reply first.
type Thread struct {
	Comment
	Replies []Comment `json:"replies"`
}

type ThreadPage struct {
	Items []Thread `json:"items"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
	Total int      `json:"total"`
}

type NewComment struct {
	PostSlug string
	ParentID int64
	AuthorID string
	Text     string
	ImageURL string
}

// CommentRef is the projection needed to authorize a delete and clean up
// attachments.
type CommentRef struct {
	ID       int64
	AuthorID string
	ImageURL string
	Replies  []CommentRef
}

// ImageURLs lists the attachments of the comment and its replies.
func (c CommentRef) ImageURLs() []string {
	var urls []string
	if c.ImageURL != "" {
		urls = append(urls, c.ImageURL)
	}
	for _, r := range c.Replies {
		if r.ImageURL != "" {
			urls = append(urls, r.ImageURL)
		}
	}
	return urls
}
