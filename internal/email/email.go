package email

import (
	"context"
	"fmt"

	"github.com/vpetrenko/courtbooking/internal/notify"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(_ context.Context, event notify.Event) error {
	if event.Code != "" {
		fmt.Printf("send email to %s: your login code is %s\n", event.Email, event.Code)
		return nil
	}
	fmt.Printf("send email to %s about %s (reservation %s, court %s, %s %s)\n",
		event.Email, event.Type, event.ReservationID, event.CourtID, event.Date, event.Slot)
	return nil
}
