package sms

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
	if event.Phone == "" {
		return nil
	}
	if event.Code != "" {
		fmt.Printf("send sms to %s: your login code is %s\n", event.Phone, event.Code)
		return nil
	}
	fmt.Printf("send sms to %s about %s\n", event.Phone, event.Type)
	return nil
}
