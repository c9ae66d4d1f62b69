package model

import "strings"

// Genre groups movies. Name and Slug are both unique.
type Genre struct {
	ID   uint64 // genres.id
	Name string // genres.name
	Slug string // genres.slug
}

// GenreSlug derives the slug stored for a genre name: the lower-cased name
// with every space replaced by a hyphen.
func GenreSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
