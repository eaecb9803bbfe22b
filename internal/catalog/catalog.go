package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBookNotFound is returned when a book id has no catalog entry.
var ErrBookNotFound = errors.New("book not found")

// Book is one catalog entry.
type Book struct {
	ID       string
	Title    string
	Author   string
	Category string
	Price    decimal.Decimal
	Stock    int
}

// PriceBook is a read-only price lookup. It is loaded once at startup and
// injected where pricing is needed; nothing mutates it afterwards.
type PriceBook struct {
	books map[string]Book
}

// NewPriceBook builds a price book from a fixed set of entries.
func NewPriceBook(books []Book) *PriceBook {
	byID := make(map[string]Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	return &PriceBook{books: byID}
}

// FromConfig builds a price book from the catalog config section, where each
// key is a book id and each value a decimal price.
func FromConfig(prices map[string]string) (*PriceBook, error) {
	books := make([]Book, 0, len(prices))
	for id, raw := range prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for book %s: %w", raw, id, err)
		}
		books = append(books, Book{ID: id, Price: price})
	}
	return NewPriceBook(books), nil
}

// Seed returns the default development price book.
func Seed() *PriceBook {
	return NewPriceBook([]Book{
		{
			ID:       "978-1491904244",
			Title:    "Designing Data-Intensive Applications",
			Author:   "Martin Kleppmann",
			Category: "Databases",
			Price:    decimal.NewFromFloat(59.99),
			Stock:    150,
		},
		{
			ID:       "978-0132350884",
			Title:    "Clean Code: A Handbook of Agile Software Craftsmanship",
			Author:   "Robert C. Martin",
			Category: "Software Engineering",
			Price:    decimal.NewFromFloat(49.99),
			Stock:    200,
		},
		{
			ID:       "978-0201633610",
			Title:    "Design Patterns: Elements of Reusable Object-Oriented Software",
			Author:   "Erich Gamma",
			Category: "Software Design",
			Price:    decimal.NewFromFloat(54.99),
			Stock:    120,
		},
	})
}

// Price returns the unit price of a book.
func (pb *PriceBook) Price(bookID string) (decimal.Decimal, error) {
	book, ok := pb.books[bookID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
	}
	return book.Price, nil
}

// Book returns the full catalog entry for a book id.
func (pb *PriceBook) Book(bookID string) (Book, error) {
	book, ok := pb.books[bookID]
	if !ok {
		return Book{}, fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
	}
	return book, nil
}

// Available reports whether the catalog has enough stock for a quantity.
func (pb *PriceBook) Available(bookID string, quantity int) bool {
	book, ok := pb.books[bookID]
	return ok && book.Stock >= quantity
}
