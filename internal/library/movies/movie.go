package movies

import "time"

// Movie represents a movie in the local library.
type Movie struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PosterURL   string    `json:"posterUrl,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	Year        *int      `json:"year,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Duration    *int      `json:"duration,omitempty"` // minutes
	FilePath    string    `json:"filePath,omitempty"`
	StreamURL   string    `json:"streamUrl,omitempty"`
	IsLocal     bool      `json:"isLocal"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateMovieInput contains fields for creating a movie.
type CreateMovieInput struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	PosterURL   string   `json:"posterUrl,omitempty" validate:"omitempty,url"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,min=0,max=10"`
	Year        *int     `json:"year,omitempty" validate:"omitempty,min=1900,max=2099"`
	Genre       string   `json:"genre,omitempty"`
	Duration    *int     `json:"duration,omitempty" validate:"omitempty,min=0"`
	FilePath    string   `json:"filePath,omitempty"`
	StreamURL   string   `json:"streamUrl,omitempty"`
}

// ListMoviesOptions contains options for listing movies.
type ListMoviesOptions struct {
	Search   string `query:"search" validate:"max=200"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"pageSize" validate:"omitempty,min=1,max=500"`
}
