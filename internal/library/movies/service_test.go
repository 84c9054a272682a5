package movies

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/lo"

	"github.com/reelhouse/reelhouse/internal/testutil"
)

func TestMovieService_Create(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	hub := &testutil.RecordingBroadcaster{}
	service := NewService(tdb.Conn, hub, tdb.Logger)
	ctx := context.Background()

	input := CreateMovieInput{
		Title:       "The Matrix",
		Description: "A computer hacker learns about the true nature of reality.",
		Rating:      lo.ToPtr(8.7),
		Year:        lo.ToPtr(1999),
		Genre:       "Sci-Fi",
		Duration:    lo.ToPtr(136),
		FilePath:    "/media/matrix.mkv",
	}

	movie, err := service.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if movie.ID == 0 {
		t.Error("Create() movie.ID = 0, want non-zero")
	}
	if movie.Title != input.Title {
		t.Errorf("Create() movie.Title = %q, want %q", movie.Title, input.Title)
	}
	if movie.Year == nil || *movie.Year != 1999 {
		t.Errorf("Create() movie.Year = %v, want 1999", movie.Year)
	}
	if movie.Rating == nil || *movie.Rating != 8.7 {
		t.Errorf("Create() movie.Rating = %v, want 8.7", movie.Rating)
	}
	if !movie.IsLocal {
		t.Error("Create() movie.IsLocal = false, want true")
	}
	if movie.CreatedAt.IsZero() {
		t.Error("Create() movie.CreatedAt is zero")
	}

	if types := hub.Types(); len(types) != 1 || types[0] != EventMovieAdded {
		t.Errorf("broadcast events = %v, want [%s]", types, EventMovieAdded)
	}
}

func TestMovieService_Create_EmptyTitle(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	service := NewService(tdb.Conn, nil, tdb.Logger)

	_, err := service.Create(context.Background(), CreateMovieInput{Title: "   "})
	if !errors.Is(err, ErrInvalidMovie) {
		t.Errorf("Create() error = %v, want %v", err, ErrInvalidMovie)
	}
}

func TestMovieService_Get_NotFound(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	service := NewService(tdb.Conn, nil, tdb.Logger)

	_, err := service.Get(context.Background(), 999)
	if !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("Get() error = %v, want %v", err, ErrMovieNotFound)
	}
}

func TestMovieService_Search(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	service := NewService(tdb.Conn, nil, tdb.Logger)
	ctx := context.Background()

	seed := []CreateMovieInput{
		{Title: "Alien", Genre: "Horror"},
		{Title: "Aliens", Description: "The marines return."},
		{Title: "Heat", Description: "A heist thriller about an alien-free LA."},
		{Title: "Up", Genre: "Animation"},
		{Title: "100%_Wolf"},
	}
	for _, in := range seed {
		if _, err := service.Create(ctx, in); err != nil {
			t.Fatalf("Create(%q) error = %v", in.Title, err)
		}
	}

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"title and description", "ALIEN", 0, []string{"Alien", "Aliens", "Heat"}},
		{"genre", "animation", 0, []string{"Up"}},
		{"limit", "alien", 2, []string{"Alien", "Aliens"}},
		{"wildcards matched literally", "%_", 0, []string{"100%_Wolf"}},
		{"no match", "zzz", 0, []string{}},
		{"blank", "  ", 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.Search(ctx, tt.query, tt.limit)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			titles := lo.Map(got, func(m *Movie, _ int) string { return m.Title })
			if len(titles) != len(tt.want) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, titles, tt.want)
			}
			for i := range titles {
				if titles[i] != tt.want[i] {
					t.Errorf("Search(%q)[%d] = %q, want %q", tt.query, i, titles[i], tt.want[i])
				}
			}
		})
	}
}

func TestMovieService_ListCountDelete(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	service := NewService(tdb.Conn, nil, tdb.Logger)
	ctx := context.Background()

	for _, title := range []string{"b movie", "A Movie", "c movie"} {
		if _, err := service.Create(ctx, CreateMovieInput{Title: title}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := service.List(ctx, ListMoviesOptions{PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Title != "A Movie" || list[1].Title != "b movie" {
		t.Errorf("List() page 1 = %v", lo.Map(list, func(m *Movie, _ int) string { return m.Title }))
	}

	count, err := service.Count(ctx)
	if err != nil || count != 3 {
		t.Errorf("Count() = %d, %v; want 3, nil", count, err)
	}

	if err := service.Delete(ctx, list[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := service.Delete(ctx, list[0].ID); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("Delete() twice error = %v, want %v", err, ErrMovieNotFound)
	}
}
