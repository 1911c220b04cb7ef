package model

import "time"

type Post struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	SourceURL string    `json:"source_url,omitempty"`
	Views     int64     `json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PostPage struct {
	Items []Post `json:"items"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int    `json:"total"`
}

type NewPost struct {
	Slug      string
	Title     string
	Excerpt   string
	Content   string
	AuthorID  string
	SourceURL string
	CreatedAt time.Time
}

type PostChanges struct {
	Title   *string
	Excerpt *string
	Content *string
}

// ViewResult is nil Views when the view was not counted.
type ViewResult struct {
	Accepted bool
	Views    *int64
}
