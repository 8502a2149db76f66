package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chatshop/pkg/conversation"
	"chatshop/pkg/domain/model"
)

const captionLimit = 1024

// toEvent maps an update onto the engine's event. Updates the bot does not
// act on yield false.
func toEvent(update tgbotapi.Update) (conversation.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if query.From == nil {
			return conversation.Event{}, false
		}
		ev := conversation.Event{
			UserID:     model.UserID(query.From.ID),
			ChatID:     query.From.ID,
			Token:      query.Data,
			CallbackID: query.ID,
			Profile:    profileOf(query.From),
		}
		if query.Message != nil && query.Message.Chat != nil {
			ev.ChatID = query.Message.Chat.ID
		}
		return ev, true

	case update.Message != nil:
		message := update.Message
		if message.From == nil || message.Chat == nil {
			return conversation.Event{}, false
		}
		ev := conversation.Event{
			UserID:  model.UserID(message.From.ID),
			ChatID:  message.Chat.ID,
			Text:    message.Text,
			Profile: profileOf(message.From),
		}
		if len(message.Photo) > 0 {
			// The last size is the largest.
			ev.PhotoRef = message.Photo[len(message.Photo)-1].FileID
			if ev.Text == "" {
				ev.Text = message.Caption
			}
		}
		if message.Contact != nil {
			ev.Contact = &conversation.Contact{
				PhoneNumber: message.Contact.PhoneNumber,
				UserID:      model.UserID(message.Contact.UserID),
			}
		}
		return ev, true
	}
	return conversation.Event{}, false
}

func profileOf(user *tgbotapi.User) conversation.Profile {
	return conversation.Profile{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.UserName,
		Language:  user.LanguageCode,
	}
}

// toChattable renders a reply as a Telegram message. Photo replies carry the
// text as a caption when it fits.
func toChattable(reply conversation.Reply) tgbotapi.Chattable {
	chatID := int64(reply.To)
	markup := markupOf(reply)

	if reply.PhotoRef != "" && len([]rune(reply.Text)) <= captionLimit {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(reply.PhotoRef))
		photo.Caption = reply.Text
		if markup != nil {
			photo.ReplyMarkup = markup
		}
		return photo
	}

	message := tgbotapi.NewMessage(chatID, reply.Text)
	if markup != nil {
		message.ReplyMarkup = markup
	}
	return message
}

func markupOf(reply conversation.Reply) interface{} {
	switch {
	case len(reply.Choices) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Choices))
		for _, choices := range reply.Choices {
			row := make([]tgbotapi.InlineKeyboardButton, 0, len(choices))
			for _, choice := range choices {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Token))
			}
			rows = append(rows, row)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)

	case reply.RequestContact != "":
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(reply.RequestContact)),
		)
		keyboard.ResizeKeyboard = true
		keyboard.OneTimeKeyboard = true
		return keyboard

	case len(reply.Menu) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(reply.Menu))
		for _, labels := range reply.Menu {
			row := make([]tgbotapi.KeyboardButton, 0, len(labels))
			for _, label := range labels {
				row = append(row, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, row)
		}
		keyboard := tgbotapi.NewReplyKeyboard(rows...)
		keyboard.ResizeKeyboard = true
		return keyboard
	}
	return nil
}
