package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "colony-counter/internal/application"
	"colony-counter/internal/domain/entity"
	"colony-counter/internal/infrastructure/report"
)

const (
	msgStart = `👋 Привет! Я считаю колонии на фотографиях чашек Петри с мягким агаром.

📸 Отправьте фото чашки, и я пришлю число колоний и снимок с отмеченными колониями.

📋 Команды:
/count — посчитать колонии на чашке
/report — CSV по всем чашкам этой сессии
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте фото чашки
2️⃣ Бот найдёт колонии с параметрами по умолчанию
3️⃣ Вы получите число колоний и фото с обведёнными колониями

💡 Рекомендации:
• Снимайте чашку сверху на тёмном фоне
• Избегайте бликов на крышке
• Чашка должна занимать большую часть кадра

📋 Команды:
/count — посчитать колонии
/report — отчёт по сессии
/cancel — отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото чашки для подсчёта колоний."
	msgCancelled       = "❌ Операция отменена. Отправьте /count для нового подсчёта."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото чашки для подсчёта колоний."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Считаю колонии..."
	msgNoReport        = "📭 В этой сессии ещё нет обработанных чашек."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
)

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	operators *app.OperatorService
	counting  *app.CountingService
	params    entity.Parameters
	logger    *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, operators *app.OperatorService, counting *app.CountingService,
	params entity.Parameters, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	return &Bot{
		api:       api,
		operators: operators,
		counting:  counting,
		params:    params,
		logger:    logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	operator, err := b.operators.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("failed to get operator", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, operator)
		return
	}

	// Фото или изображение, отправленное файлом
	if len(msg.Photo) > 0 || (msg.Document != nil && entity.IsSupportedImage(msg.Document.FileName)) {
		b.handlePhoto(ctx, msg, operator)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, operator *entity.Operator) {
	switch msg.Command() {
	case "start":
		b.setState(ctx, operator, entity.StateMainMenu)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "count":
		b.setState(ctx, operator, entity.StateAwaitingPhoto)
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)

	case "report":
		b.sendReport(ctx, msg.Chat.ID, operator)

	case "cancel":
		b.setState(ctx, operator, entity.StateMainMenu)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handlePhoto сохраняет фото в сессию оператора, считает колонии и отвечает подсветкой
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, operator *entity.Operator) {
	b.setState(ctx, operator, entity.StateProcessing)
	defer b.setState(ctx, operator, entity.StateMainMenu)

	b.sendMessage(msg.Chat.ID, msgProcessing)

	fileID, filename := photoFile(msg)
	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.logger.Error("failed to download photo", zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	uploaded, err := b.counting.Upload(ctx, operator.SessionID, []app.UploadFile{{Filename: filename, Data: imageData}})
	if err != nil {
		b.logger.Warn("failed to store photo", zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}
	if uploaded.SessionID != operator.SessionID {
		if _, err := b.operators.BindSession(ctx, operator.ID, operator.ChatID, uploaded.SessionID); err != nil {
			b.logger.Error("failed to bind session", zap.Error(err))
		}
		operator.SessionID = uploaded.SessionID
	}

	imageID := uploaded.Images[0].ImageID
	result, err := b.counting.Process(ctx, imageID, b.params, false)
	if err != nil {
		b.logger.Warn("failed to count colonies", zap.String("image_id", imageID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	overlay, err := b.counting.Overlay(ctx, imageID, &result.Parameters)
	if err != nil {
		b.logger.Warn("failed to render overlay", zap.String("image_id", imageID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, resultCaption(result.Count))
		return
	}

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{Name: "colonies.png", Bytes: overlay})
	photo.Caption = resultCaption(result.Count)
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("failed to send overlay", zap.Error(err))
	}
}

// sendReport отправляет CSV по сессии оператора
func (b *Bot) sendReport(ctx context.Context, chatID int64, operator *entity.Operator) {
	if operator.SessionID == "" {
		b.sendMessage(chatID, msgNoReport)
		return
	}

	rows, err := b.counting.SessionReport(ctx, operator.SessionID)
	if err != nil || len(rows) == 0 {
		if err != nil {
			b.logger.Warn("failed to build report", zap.String("session_id", operator.SessionID), zap.Error(err))
		}
		b.sendMessage(chatID, msgNoReport)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rows); err != nil {
		b.logger.Error("failed to write report", zap.Error(err))
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "colonies.csv", Bytes: buf.Bytes()})
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("failed to send report", zap.Error(err))
	}
}

func (b *Bot) setState(ctx context.Context, operator *entity.Operator, state entity.OperatorState) {
	updated, err := b.operators.SetState(ctx, operator.ID, operator.ChatID, state)
	if err != nil {
		b.logger.Error("failed to save operator state", zap.Int64("user_id", operator.ID), zap.Error(err))
		return
	}
	*operator = *updated
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// photoFile выбирает фото с максимальным разрешением или присланный документ
func photoFile(msg *tgbotapi.Message) (fileID, filename string) {
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		return photo.FileID, photo.FileUniqueID + ".jpg"
	}
	return msg.Document.FileID, msg.Document.FileName
}

func resultCaption(count int) string {
	if count == 0 {
		return "🔍 Колонии не найдены."
	}
	return fmt.Sprintf("🧫 Найдено колоний: %d", count)
}
