package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Router handles message routing and command parsing
type Router struct {
	logger   *logrus.Logger
	handlers map[string]CommandHandler
	text     TextHandler
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error
}

// TextHandler handles messages that are not commands
type TextHandler interface {
	HandleText(bot *tgbotapi.BotAPI, message *tgbotapi.Message) error
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:   logger,
		handlers: make(map[string]CommandHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.WithField("command", command).Debug("Registered command")
}

// SetTextHandler sets the handler for plain text messages
func (r *Router) SetTextHandler(handler TextHandler) {
	r.text = handler
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	// Message text is user health data; only its length is logged.
	r.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    message.From.ID,
		"message_id": message.MessageID,
		"text_len":   len(message.Text),
	}).Info("Received message")

	// Only process text messages
	if message.Text == "" {
		return
	}

	if !message.IsCommand() {
		r.handleText(bot, message)
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	// Find and execute handler
	if handler, exists := r.handlers[command]; exists {
		if err := handler.Handle(bot, message, args); err != nil {
			r.logger.WithFields(logrus.Fields{
				"command": command,
				"chat_id": message.Chat.ID,
				"user_id": message.From.ID,
				"error":   err,
			}).Error("Command handler failed")

			// Send error message to user
			errorMsg := tgbotapi.NewMessage(message.Chat.ID, "❌ An error occurred while processing your command. Please try again.")
			bot.Send(errorMsg)
		}
	} else {
		// Unknown command
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).Warn("Unknown command")

		unknownMsg := tgbotapi.NewMessage(message.Chat.ID, "❓ Unknown command. Use /help to see available commands.")
		bot.Send(unknownMsg)
	}
}

func (r *Router) handleText(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	if r.text == nil {
		return
	}
	if err := r.text.HandleText(bot, message); err != nil {
		r.logger.WithFields(logrus.Fields{
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
			"error":   err,
		}).Error("Text handler failed")

		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ Something went wrong while I was thinking about that. Please try again."))
	}
}
