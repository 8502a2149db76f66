package conversation

import (
	"context"

	"chatshop/pkg/domain/model"
)

// Event is one inbound update from the chat transport. Exactly one of Text,
// PhotoRef, Token or Contact is normally set.
type Event struct {
	UserID     model.UserID
	ChatID     int64
	Text       string
	PhotoRef   string
	Token      string
	CallbackID string
	Contact    *Contact
	Profile    Profile
}

type Contact struct {
	PhoneNumber string
	UserID      model.UserID
}

type Profile struct {
	FirstName string
	LastName  string
	Username  string
	Language  string
}

type Choice struct {
	Label string
	Token string
}

// Reply is one outbound message. Alert replies answer the originating
// callback as a pop-up instead of a chat message when possible.
type Reply struct {
	To             model.UserID
	Text           string
	PhotoRef       string
	Choices        [][]Choice
	Menu           [][]string
	RequestContact string
	Alert          bool
}

// Sender delivers replies that are not a direct answer to an event, such as
// order notifications.
type Sender interface {
	Send(ctx context.Context, reply Reply) error
}
