// Package library implements the assistant's capability functions.
// Every function answers with text meant for both the model and the user;
// none of them return errors or mutate the catalog.
package library

import (
	"fmt"
	"strings"

	"github.com/library-assistant-poc/server/internal/agent/catalog"
	"github.com/library-assistant-poc/server/internal/agent/model"
)

const (
	authorizedName = "Tayyab"
	authorizedID   = 12345

	InvalidBookNameMessage = "⚠ Please provide a valid book name."
)

// Authenticate accepts only the registered (name, user id) pair.
func Authenticate(user model.UserIdentity) string {
	if user.Name == authorizedName && user.UserID == authorizedID {
		return fmt.Sprintf("✅ User %s is authenticated.", user.Name)
	}
	return fmt.Sprintf("❌ User %s is not authenticated. Please check your credentials.", user.Name)
}

func Greet(user model.UserIdentity) string {
	return fmt.Sprintf("Hello %s, How can I assist you today?", user.Name)
}

// SearchBook reports whether a book with exactly this name (ignoring case and
// surrounding spaces) is in the catalog.
func SearchBook(query string) string {
	book, ok, valid := lookup(query)
	switch {
	case !valid:
		return InvalidBookNameMessage
	case !ok:
		return fmt.Sprintf("❌ The book \"%s\" is not found in our database.", query)
	default:
		return fmt.Sprintf("The book \"%s\" is available.", book.BookName)
	}
}

// CheckAvailability reports how many copies of the named book can be lent.
func CheckAvailability(query string) string {
	book, ok, valid := lookup(query)
	switch {
	case !valid:
		return InvalidBookNameMessage
	case !ok:
		return fmt.Sprintf("❌ The book '%s' is not found in our database.", query)
	case book.Quantity > 0:
		return fmt.Sprintf("✅ The book '%s' is available with %d copies.", book.BookName, book.Quantity)
	default:
		return fmt.Sprintf("❌ The book '%s' is currently out of stock.", book.BookName)
	}
}

// lookup scans the whole catalog for the first exact, case-insensitive match.
// valid is false for blank queries.
func lookup(query string) (book model.BookRecord, ok bool, valid bool) {
	target := strings.TrimSpace(query)
	if target == "" {
		return model.BookRecord{}, false, false
	}
	for _, b := range catalog.ListBooks() {
		if strings.EqualFold(b.BookName, target) {
			return b, true, true
		}
	}
	return model.BookRecord{}, false, true
}
