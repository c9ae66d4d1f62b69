package model

// Movie is a catalog entry. Title is the natural key used by the booking and
// admin flows and is unique in storage. GenreID is nil when the movie has
// no genre or its genre was deleted.
type Movie struct {
	ID              uint64  // movies.id
	Title           string  // movies.title
	Description     string  // movies.description
	DurationMinutes uint32  // movies.duration_minutes
	GenreID         *uint64 // movies.genre_id (nullable)
	PosterURL       string  // movies.poster_url
}

// MovieListing is a movie joined with its genre and sessions, as shown in
// the public catalog.
type MovieListing struct {
	Movie
	Genre    *Genre
	Sessions []Session
}
