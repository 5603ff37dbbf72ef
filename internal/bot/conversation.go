package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageCategory
	stagePriority
	stageDueDate
)

type conversationState struct {
	stage conversationStage
	draft model.TaskDraft
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	s := b.session(ctx, msg.Chat.ID)
	if len(s.dash.Categories()) == 0 {
		return b.sendText(msg.Chat.ID, "There are no categories yet, so a task has nowhere to go.")
	}
	b.log.Info("start new task conversation", "chat", msg.Chat.ID)
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	s := b.session(ctx, chatID)

	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "Please enter a task title", cancelKeyboard())
		}
		state.draft.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(chatID, "✏️ Add a short description (or press Skip).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.draft.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(chatID, "🏷 Pick a category.", categoryKeyboard(s.dash.Categories()))
	case stageCategory:
		c, ok := matchCategory(s.dash.Categories(), text)
		if !ok {
			return b.sendWithReplyMarkup(chatID, "Please select a category", categoryKeyboard(s.dash.Categories()))
		}
		state.draft.CategoryID = c.ID
		state.stage = stagePriority
		return b.sendWithReplyMarkup(chatID, "⚡ Priority? (Skip keeps medium)", priorityKeyboard())
	case stagePriority:
		priority := model.PriorityMedium
		if !isSkipInput(text) {
			p, ok := model.ParsePriority(stripIcon(text))
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Choose low, medium, high or urgent.", priorityKeyboard())
			}
			priority = p
		}
		state.draft.Priority = priority
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(chatID, "⏰ Due date? <code>2026-11-30</code>, \"tomorrow\" or \"next friday\" (or Skip).", skipKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := model.ParseDueDate(text, b.now())
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "I can't read that date. Try <code>2026-11-30</code> or Skip.", skipKeyboard())
			}
			state.draft.DueDate = &due
		}
		b.clearConversation(chatID)
		return b.finishTaskCreation(ctx, chatID, s, state.draft)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "Input reset. Start again with /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, s *session, draft model.TaskDraft) error {
	task, ok := s.dash.CreateTask(ctx, draft)
	if !ok {
		return nil
	}
	b.log.Info("task created", "chat", chatID, "id", task.ID)

	msg := tgbotapi.NewMessage(chatID, summaryCard(task, s.dash.Categories()))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.out.Send(msg); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID)
}

// matchCategory accepts a category name (with or without its label icon) or id.
func matchCategory(categories []model.Category, input string) (model.Category, bool) {
	name := strings.ToLower(stripIcon(input))
	if name == "" {
		return model.Category{}, false
	}
	for _, c := range categories {
		if strings.ToLower(strings.TrimSpace(c.Name)) == name {
			return c, true
		}
	}
	if id, err := parseID(name); err == nil {
		return service.FindCategory(categories, id)
	}
	return model.Category{}, false
}

// stripIcon drops a leading emoji label such as "💼 Work".
func stripIcon(input string) string {
	input = strings.TrimSpace(input)
	if first, rest, ok := strings.Cut(input, " "); ok && !hasLetterOrDigit(first) {
		return strings.TrimSpace(rest)
	}
	return input
}
