// Package session contains the per-user conversational state of an order and
// the store abstraction it is persisted through.
package session

import "time"

type Session struct {
	UserID        string          `json:"user_id"`
	Step          Step            `json:"step"`
	Order         []OrderLine     `json:"order"`
	Pending       *PendingBuilder `json:"pending,omitempty"`
	Customer      CustomerDraft   `json:"customer"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	PaymentLink   string          `json:"payment_link,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

const (
	PaymentBank = "bank"
	PaymentCard = "card"
)

func New(userID string) *Session {
	return &Session{
		UserID: userID,
		Step:   StepIdle,
	}
}

// Reset drops everything collected so far and returns the session to idle.
func (s *Session) Reset() {
	s.Step = StepIdle
	s.Order = nil
	s.Pending = nil
	s.Customer = CustomerDraft{}
	s.PaymentMethod = ""
	s.PaymentLink = ""
}

// Append adds finalized lines in order and clears the pending builder.
func (s *Session) Append(lines ...OrderLine) {
	s.Order = append(s.Order, lines...)
	s.Pending = nil
}

// Total sums the frozen line amounts.
func (s *Session) Total() int { return LinesTotal(s.Order) }

func LinesTotal(lines []OrderLine) int {
	total := 0
	for _, l := range lines {
		total += l.Amount
	}
	return total
}

// CurrentUnit returns the apparel unit under construction, or nil.
func (s *Session) CurrentUnit() *UnitBuilder {
	if s.Pending == nil {
		return nil
	}
	return s.Pending.Current()
}

type CustomerDraft struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Postal   string `json:"postal"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
}

// Complete reports whether every mandatory field is filled. Address2 may be
// empty when the customer answered that there is none.
func (c CustomerDraft) Complete() bool {
	return c.Name != "" && c.Phone != "" && c.Postal != "" && c.Address1 != ""
}
