package orders

import (
	"time"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
)

// ListParams describe the inputs supported by the order lists.
type ListParams struct {
	Limit  int
	Cursor string

	// State filters by the canonical status prefix ("Delivered",
	// "Cancelled", ...) ignoring any trailing reason.
	State *enums.DeliveryState

	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderPage is one page of orders plus the cursor for the next page.
type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
