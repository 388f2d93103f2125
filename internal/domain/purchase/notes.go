package purchase

import (
	"strconv"
	"strings"
)

// Keys of the metadata pinned into every provider order.
const (
	NoteContentType = "content_type"
	NoteContentID   = "content_id"
	NoteProductID   = "product_id"
	NoteUserID      = "user_id"
	NoteAmountUnits = "amount_units"
)

// OrderNotes is the immutable metadata embedded in a provider order at creation.
// Verification trusts these values over anything the client sends.
type OrderNotes struct {
	ContentType string
	ContentID   string
	ProductID   string
	UserID      string
	AmountUnits int64
}

func (n OrderNotes) ToMap() map[string]string {
	m := map[string]string{
		NoteUserID:      n.UserID,
		NoteAmountUnits: strconv.FormatInt(n.AmountUnits, 10),
	}
	if n.ProductID != "" {
		m[NoteProductID] = n.ProductID
	} else {
		m[NoteContentType] = n.ContentType
		m[NoteContentID] = n.ContentID
	}
	return m
}

// ParseOrderNotes reads notes back. ok is false when amount_units is missing
// or not a positive integer.
func ParseOrderNotes(m map[string]string) (notes OrderNotes, ok bool) {
	notes = OrderNotes{
		ContentType: strings.TrimSpace(m[NoteContentType]),
		ContentID:   strings.TrimSpace(m[NoteContentID]),
		ProductID:   strings.TrimSpace(m[NoteProductID]),
		UserID:      strings.TrimSpace(m[NoteUserID]),
	}
	raw := strings.TrimSpace(m[NoteAmountUnits])
	if raw == "" {
		return notes, false
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount <= 0 {
		return notes, false
	}
	notes.AmountUnits = amount
	return notes, true
}

// IsPlan reports whether the order buys a plan tier rather than content.
func (n OrderNotes) IsPlan() bool {
	return n.ProductID != ""
}
