package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBooks_FixedOrder(t *testing.T) {
	books := ListBooks()
	require.Len(t, books, 4)

	names := make([]string, 0, len(books))
	for _, b := range books {
		names = append(names, b.BookName)
	}
	assert.Equal(t, []string{
		"Python Programming",
		"Learning JavaScript",
		"Introduction to Machine Learning",
		"Data Science Handbook",
	}, names)
	assert.Equal(t, 5, books[0].Quantity)
	assert.Equal(t, 0, books[2].Quantity)
}

func TestListBooks_FreshSliceEachCall(t *testing.T) {
	first := ListBooks()
	first[0].Quantity = 0
	first[1].BookName = "changed"

	second := ListBooks()
	assert.Equal(t, 5, second[0].Quantity)
	assert.Equal(t, "Learning JavaScript", second[1].BookName)
}
