// Package catalog holds the library's fixed book records.
package catalog

import "github.com/library-assistant-poc/server/internal/agent/model"

// ListBooks returns the catalog in its fixed order. Every call builds a new
// slice, so callers are free to modify what they get back.
func ListBooks() []model.BookRecord {
	return []model.BookRecord{
		{BookName: "Python Programming", BookID: 1, Quantity: 5},
		{BookName: "Learning JavaScript", BookID: 2, Quantity: 3},
		{BookName: "Introduction to Machine Learning", BookID: 3, Quantity: 0},
		{BookName: "Data Science Handbook", BookID: 4, Quantity: 2},
	}
}
