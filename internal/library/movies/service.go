package movies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrMovieNotFound = errors.New("movie not found")
	ErrInvalidMovie  = errors.New("invalid movie data")
)

// Broadcaster sends events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// WebSocket event types for library changes.
const (
	EventMovieAdded   = "movie:added"
	EventMovieDeleted = "movie:deleted"
)

const movieColumns = `id, title, description, poster_url, rating, year, genre, duration,
	file_path, stream_url, is_local, created_at, updated_at`

// Service provides movie library operations.
type Service struct {
	db     *sql.DB
	hub    Broadcaster
	logger zerolog.Logger
}

// NewService creates a new movie service. hub may be nil.
func NewService(db *sql.DB, hub Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		hub:    hub,
		logger: logger.With().Str("component", "movies").Logger(),
	}
}

// Get retrieves a movie by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Movie, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	movie, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return movie, nil
}

// List returns movies ordered by title with optional title filtering.
func (s *Service) List(ctx context.Context, opts ListMoviesOptions) ([]*Movie, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	offset := (opts.Page - 1) * opts.PageSize

	query := `SELECT ` + movieColumns + ` FROM movies`
	args := []any{}
	if opts.Search != "" {
		query += ` WHERE title LIKE ? ESCAPE '\'`
		args = append(args, likePattern(opts.Search))
	}
	query += ` ORDER BY title COLLATE NOCASE, id LIMIT ? OFFSET ?`
	args = append(args, opts.PageSize, offset)

	return s.query(ctx, query, args...)
}

// Search returns up to limit movies whose title, description or genre contains
// the query, case-insensitively, in insertion order.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Movie{}, nil
	}
	if limit <= 0 {
		limit = 500
	}

	pattern := likePattern(query)
	return s.query(ctx,
		`SELECT `+movieColumns+` FROM movies
		WHERE title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR genre LIKE ? ESCAPE '\'
		ORDER BY id LIMIT ?`,
		pattern, pattern, pattern, limit)
}

// Count returns the number of movies in the library.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return n, nil
}

// Create creates a new movie.
func (s *Service) Create(ctx context.Context, input CreateMovieInput) (*Movie, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrInvalidMovie
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO movies (title, description, poster_url, rating, year, genre, duration,
			file_path, stream_url, is_local, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		strings.TrimSpace(input.Title), input.Description, input.PosterURL,
		nullFloat(input.Rating), nullInt(input.Year), input.Genre, nullInt(input.Duration),
		input.FilePath, input.StreamURL, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create movie: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read movie id: %w", err)
	}

	movie, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("id", movie.ID).Str("title", movie.Title).Msg("Movie added")
	s.broadcast(EventMovieAdded, movie)

	return movie, nil
}

// Delete removes a movie.
func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}

	s.logger.Info().Int64("id", id).Msg("Movie deleted")
	s.broadcast(EventMovieDeleted, map[string]int64{"id": id})
	return nil
}

func (s *Service) query(ctx context.Context, query string, args ...any) ([]*Movie, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	movies := []*Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movies: %w", err)
	}
	return movies, nil
}

func (s *Service) broadcast(msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(msgType, payload); err != nil {
		s.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to broadcast event")
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*Movie, error) {
	var (
		m        Movie
		rating   sql.NullFloat64
		year     sql.NullInt64
		duration sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.PosterURL, &rating, &year, &m.Genre,
		&duration, &m.FilePath, &m.StreamURL, &m.IsLocal, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		r := rating.Float64
		m.Rating = &r
	}
	if year.Valid {
		y := int(year.Int64)
		m.Year = &y
	}
	if duration.Valid {
		d := int(duration.Int64)
		m.Duration = &d
	}
	return &m, nil
}

// likePattern escapes LIKE wildcards so the query is matched literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
