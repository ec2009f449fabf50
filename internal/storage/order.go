package storage

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"petprint-bot/internal/session"
)

const (
	StatusPaymentReported = "payment_reported"
	StatusPaid            = "paid"
	StatusInProduction    = "in_production"
	StatusShipped         = "shipped"
	StatusCancelled       = "cancelled"
)

var ErrOrderNotFound = errors.New("order not found")

// Statuses lists every order status an admin may set.
var Statuses = []string{
	StatusPaymentReported,
	StatusPaid,
	StatusInProduction,
	StatusShipped,
	StatusCancelled,
}

func ValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Order is the archived copy of a completed conversation.
type Order struct {
	ID            int64     `db:"id"`
	Reference     string    `db:"reference"`
	UserID        string    `db:"user_id"`
	Lines         Lines     `db:"lines"`
	Total         int       `db:"total"`
	PaymentMethod string    `db:"payment_method"`
	PaymentLink   string    `db:"payment_link"`
	CustomerName  string    `db:"customer_name"`
	Phone         string    `db:"phone"`
	Postal        string    `db:"postal"`
	Address1      string    `db:"address1"`
	Address2      string    `db:"address2"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
}

// NewOrder snapshots a completed session.
func NewOrder(reference string, s *session.Session, createdAt time.Time) Order {
	return Order{
		Reference:     reference,
		UserID:        s.UserID,
		Lines:         Lines(append([]session.OrderLine(nil), s.Order...)),
		Total:         s.Total(),
		PaymentMethod: s.PaymentMethod,
		PaymentLink:   s.PaymentLink,
		CustomerName:  s.Customer.Name,
		Phone:         s.Customer.Phone,
		Postal:        s.Customer.Postal,
		Address1:      s.Customer.Address1,
		Address2:      s.Customer.Address2,
		Status:        StatusPaymentReported,
		CreatedAt:     createdAt,
	}
}

// Lines is stored as a jsonb column.
type Lines []session.OrderLine

func (l Lines) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal([]session.OrderLine(l))
	if err != nil {
		return nil, fmt.Errorf("marshal order lines: %w", err)
	}
	return data, nil
}

func (l *Lines) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported order lines type %T", src)
	}
	var lines []session.OrderLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("unmarshal order lines: %w", err)
	}
	*l = lines
	return nil
}
