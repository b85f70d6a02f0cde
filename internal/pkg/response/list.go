package response

import "time"

// WindowResponse is the envelope for listings bounded by a time window.
type WindowResponse[T any] struct {
	Items []T       `json:"items"`
	Total int       `json:"total"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// NewWindowResponse wraps items, never serializing a null list.
func NewWindowResponse[T any](items []T, from, to time.Time) WindowResponse[T] {
	if items == nil {
		items = []T{}
	}
	return WindowResponse[T]{
		Items: items,
		Total: len(items),
		From:  from,
		To:    to,
	}
}
