package accounts

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Account models a chart of accounts node as the engine consumes it: an
// identifier that journal lines must reference while active.
type Account struct {
	ID        int64
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrAccountNotFound indicates the account does not exist.
var ErrAccountNotFound = fmt.Errorf("accounts: account %w", shared.ErrNotFound)
