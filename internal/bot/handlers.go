package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbConfirmPrefix  = "confirm:"
	cbCancelPrefix   = "cancel:"
)

type confirmationAction int

const (
	actionToggle confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	taskID int64
	action confirmationAction
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID
	b.session(ctx, chatID)

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Cancelled. What next?")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info("command", "chat", chatID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(chatID); state != nil {
		b.log.Debug("conversation step", "chat", chatID, "stage", state.stage)
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(chatID, "I didn't get that. Send /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.sendTaskList(ctx, msg.Chat.ID)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "category":
		return b.handleCategoryFilter(ctx, msg)
	case "search":
		return b.handleSearch(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "clear":
		return b.handleClear(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	s := b.session(ctx, msg.Chat.ID)
	if err := s.dash.Load(ctx); err != nil {
		return nil
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your tasks in order.</b>\n\n%s", escape(name), commandList)
	return b.sendText(msg.Chat.ID, text)
}

const commandList = "Commands:\n" +
	"• /newtask — add a task step by step\n" +
	"• /tasks — show tasks with buttons to complete or delete\n" +
	"• /categories — list categories\n" +
	"• /category &lt;id|all&gt; — filter by category\n" +
	"• /search &lt;text&gt; — search titles and descriptions\n" +
	"• /done &lt;id&gt; — mark a task done (or reopen it)\n" +
	"• /delete &lt;id&gt; — delete a task\n" +
	"• /clear — delete all completed tasks\n" +
	"• /report — daily report\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+commandList)
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	s := b.session(ctx, msg.Chat.ID)
	categories := s.dash.Categories()
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "No categories yet.")
	}

	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	active := s.dash.ActiveCategory()
	for _, c := range categories {
		marker := ""
		if active != nil && *active == c.ID {
			marker = " ◀️"
		}
		builder.WriteString(fmt.Sprintf("• %s <i>(#%d, %d open)</i>%s\n", categoryLabel(c.Name), c.ID, c.TaskCount, marker))
	}
	builder.WriteString("\nFilter with /category &lt;id&gt;, reset with /category all.")
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) handleCategoryFilter(ctx context.Context, msg *tgbotapi.Message) error {
	s := b.session(ctx, msg.Chat.ID)
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" || strings.EqualFold(args, "all") {
		s.dash.SetActiveCategory(nil)
		return b.sendTaskList(ctx, msg.Chat.ID)
	}
	id, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Category id must be a number, e.g. /category 2")
	}
	s.dash.SetActiveCategory(&id)
	return b.sendTaskList(ctx, msg.Chat.ID)
}

func (b *Bot) handleSearch(ctx context.Context, msg *tgbotapi.Message) error {
	s := b.session(ctx, msg.Chat.ID)
	s.dash.SetSearchQuery(msg.CommandArguments())
	return b.sendTaskList(ctx, msg.Chat.ID)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give a task id: /done 12")
	}
	return b.toggleTaskAndRefresh(ctx, msg.Chat.ID, id)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give a task id: /delete 12")
	}
	return b.askConfirmation(ctx, msg.Chat.ID, confirmationRequest{taskID: id, action: actionDelete})
}

func (b *Bot) handleClear(ctx context.Context, msg *tgbotapi.Message) error {
	s := b.session(ctx, msg.Chat.ID)
	if s.dash.ClearCompleted(ctx) == 0 {
		return nil
	}
	return b.sendTaskList(ctx, msg.Chat.ID)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	s := b.session(ctx, msg.Chat.ID)
	return b.sendText(msg.Chat.ID, escape(s.dash.Summary(b.now())))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.sendTaskList(ctx, msg.Chat.ID)
	case strings.ToLower(menuLabelCategories):
		return true, b.handleCategories(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	defer b.ack(cb)

	chatID := cb.Message.Chat.ID
	b.session(ctx, chatID)
	data := cb.Data
	b.log.Info("callback", "chat", chatID, "data", data)

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		id, err := parseID(strings.TrimPrefix(data, cbCompletePrefix))
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, confirmationRequest{taskID: id, action: actionToggle})
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseID(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, confirmationRequest{taskID: id, action: actionDelete})
	case strings.HasPrefix(data, cbConfirmPrefix):
		req, ok := parseConfirmation(strings.TrimPrefix(data, cbConfirmPrefix))
		if !ok {
			return nil
		}
		b.clearConfirmation(chatID)
		return b.runConfirmed(ctx, chatID, req)
	case strings.HasPrefix(data, cbCancelPrefix):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "↩️ Nothing changed.")
	default:
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, req confirmationRequest) error {
	s := b.session(ctx, chatID)
	task, ok := s.dash.Task(req.taskID)
	if !ok {
		return b.sendText(chatID, "Task not found.")
	}

	var text string
	switch {
	case req.action == actionDelete:
		text = fmt.Sprintf("Delete task \"%s\" (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	case task.Completed:
		text = fmt.Sprintf("Reopen task \"%s\" (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	default:
		text = fmt.Sprintf("Mark task \"%s\" (#%d) as done?", escape(normalizeTitle(task.Title)), task.ID)
	}
	b.setConfirmation(chatID, req)
	return b.sendWithReplyMarkup(chatID, text, confirmInlineKeyboard(req))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.Chat.ID)
		return b.runConfirmed(ctx, msg.Chat.ID, req)
	case isCancelInput(text):
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "↩️ Nothing changed.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel first.", confirmKeyboard())
	}
}

func (b *Bot) runConfirmed(ctx context.Context, chatID int64, req confirmationRequest) error {
	if req.action == actionDelete {
		return b.deleteTaskAndRefresh(ctx, chatID, req.taskID)
	}
	return b.toggleTaskAndRefresh(ctx, chatID, req.taskID)
}

func (b *Bot) toggleTaskAndRefresh(ctx context.Context, chatID, taskID int64) error {
	s := b.session(ctx, chatID)
	if _, ok := s.dash.ToggleTask(ctx, taskID); !ok {
		return nil
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID, taskID int64) error {
	s := b.session(ctx, chatID)
	if !s.dash.DeleteTask(ctx, taskID) {
		return nil
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	s := b.session(ctx, chatID)
	text, buttons := renderTaskList(s.dash.Header(), s.dash.Groups(), b.now())

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	} else {
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err := b.out.Send(msg)
	return err
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

func confirmationData(req confirmationRequest) string {
	action := "toggle"
	if req.action == actionDelete {
		action = "delete"
	}
	return fmt.Sprintf("%s%s:%d", cbConfirmPrefix, action, req.taskID)
}

func parseConfirmation(raw string) (confirmationRequest, bool) {
	action, rawID, ok := strings.Cut(raw, ":")
	if !ok {
		return confirmationRequest{}, false
	}
	id, err := parseID(rawID)
	if err != nil {
		return confirmationRequest{}, false
	}
	switch action {
	case "toggle":
		return confirmationRequest{taskID: id, action: actionToggle}, true
	case "delete":
		return confirmationRequest{taskID: id, action: actionDelete}, true
	default:
		return confirmationRequest{}, false
	}
}

// summaryCard renders a freshly created task.
func summaryCard(task model.Task, categories []model.Category) string {
	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(normalizeTitle(task.Title))))
	if task.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(task.Description)))
	}
	if c, ok := service.FindCategory(categories, task.CategoryID); ok {
		summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s\n", categoryLabel(c.Name)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Priority:</b> %s\n", priorityLabel(task.Priority)))
	if task.DueDate != nil {
		summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", model.FormatDate(*task.DueDate)))
	}
	return strings.TrimSpace(summary.String())
}
