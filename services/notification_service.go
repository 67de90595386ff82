package services

import (
	"PinguinTube/interfaces"
	"PinguinTube/repositories"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// MessageSender часть *messaging.Client, которая нужна нотификатору
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier отправляет событие всем родителям семьи, у которых есть токен устройства
type FCMNotifier struct {
	Sender     MessageSender
	ParentRepo repositories.ParentRepository
	Logger     *zap.Logger
}

func NewFCMNotifier(sender MessageSender, parentRepo repositories.ParentRepository, logger *zap.Logger) *FCMNotifier {
	return &FCMNotifier{Sender: sender, ParentRepo: parentRepo, Logger: logger}
}

func (n *FCMNotifier) Notify(ctx context.Context, event interfaces.Event) {
	parents, err := n.ParentRepo.ListByFamily(ctx, event.FamilyID)
	if err != nil {
		n.Logger.Error("failed to load family parents", zap.Uint("family_id", event.FamilyID), zap.Error(err))
		return
	}

	for _, parent := range parents {
		if parent.DeviceToken == "" {
			continue // Пропускаем отправку, если нет токена устройства
		}
		title, body := notificationText(event, parent.Lang)
		message := &messaging.Message{
			Notification: &messaging.Notification{Title: title, Body: body},
			Data:         eventData(event),
			Token:        parent.DeviceToken,
		}
		id, err := n.Sender.Send(ctx, message)
		if err != nil {
			n.Logger.Warn("[FCM] failed to send notification",
				zap.String("parent_uid", parent.FirebaseUID),
				zap.String("event", string(event.Type)),
				zap.Error(err))
			continue
		}
		n.Logger.Debug("[FCM] notification sent", zap.String("message_id", id), zap.String("event", string(event.Type)))
	}
}

func eventData(event interfaces.Event) map[string]string {
	data := map[string]string{
		"type":     string(event.Type),
		"child_id": strconv.FormatUint(uint64(event.ChildID), 10),
	}
	if event.CommandID != "" {
		data["command_id"] = event.CommandID
		data["kind"] = event.Kind
	}
	if event.Reason != "" {
		data["reason"] = event.Reason
	}
	if event.Type == interfaces.EventLimitExceeded {
		data["total_today"] = strconv.Itoa(event.TotalToday)
		data["limit"] = strconv.Itoa(event.Limit)
		if event.WeeklyTotal > 0 {
			data["weekly_total"] = strconv.Itoa(event.WeeklyTotal)
		}
	}
	return data
}

// notificationText заголовок и текст на языке родителя (ru по умолчанию, как в приложении)
func notificationText(event interfaces.Event, lang string) (string, string) {
	name := event.ChildName
	if name == "" {
		name = "#" + strconv.FormatUint(uint64(event.ChildID), 10)
	}
	switch event.Type {
	case interfaces.EventLimitExceeded:
		if event.Reason == BlockReasonWeekly {
			switch lang {
			case "en":
				return "Weekly screen time limit reached", fmt.Sprintf("%s has used %d of %d minutes this week", name, event.WeeklyTotal, event.Limit)
			case "kz":
				return "Апталық экран уақыты шегіне жетті", fmt.Sprintf("%s осы аптада %d / %d минут пайдаланды", name, event.WeeklyTotal, event.Limit)
			default:
				return "Недельный лимит экранного времени исчерпан", fmt.Sprintf("%s за неделю использовал(а) %d из %d минут", name, event.WeeklyTotal, event.Limit)
			}
		}
		switch lang {
		case "en":
			return "Screen time limit reached", fmt.Sprintf("%s has used %d of %d minutes", name, event.TotalToday, event.Limit)
		case "kz":
			return "Экран уақыты шегіне жетті", fmt.Sprintf("%s %d / %d минут пайдаланды", name, event.TotalToday, event.Limit)
		default:
			return "Лимит экранного времени исчерпан", fmt.Sprintf("%s использовал(а) %d из %d минут", name, event.TotalToday, event.Limit)
		}
	case interfaces.EventCommandFailed:
		switch lang {
		case "en":
			return "Command failed", fmt.Sprintf("%s could not be executed on %s's device", event.Kind, name)
		case "kz":
			return "Команда орындалмады", fmt.Sprintf("%s құрылғысында %s орындалмады", name, event.Kind)
		default:
			return "Команда не выполнена", fmt.Sprintf("Устройство %s не выполнило %s", name, event.Kind)
		}
	}
	return string(event.Type), ""
}

// LogNotifier используется, когда Firebase не настроен
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Notify(_ context.Context, event interfaces.Event) {
	n.Logger.Info("notification event",
		zap.String("type", string(event.Type)),
		zap.Uint("family_id", event.FamilyID),
		zap.Uint("child_id", event.ChildID),
		zap.String("command_id", event.CommandID),
		zap.String("reason", event.Reason),
		zap.Int("total_today", event.TotalToday),
		zap.Int("limit", event.Limit),
	)
}

// AsyncNotifier ставит события в буферизованную очередь и доставляет их
// в отдельной горутине. При переполненной очереди событие отбрасывается.
type AsyncNotifier struct {
	sink    interfaces.Notifier
	queue   chan interfaces.Event
	logger  *zap.Logger
	timeout time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewAsyncNotifier(sink interfaces.Notifier, buffer int, logger *zap.Logger) *AsyncNotifier {
	if buffer <= 0 {
		buffer = 256
	}
	n := &AsyncNotifier{
		sink:    sink,
		queue:   make(chan interfaces.Event, buffer),
		logger:  logger,
		timeout: 10 * time.Second,
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *AsyncNotifier) Notify(_ context.Context, event interfaces.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("notification queue is full, dropping event",
			zap.String("type", string(event.Type)),
			zap.Uint("child_id", event.ChildID))
	}
}

func (n *AsyncNotifier) run() {
	defer n.wg.Done()
	for event := range n.queue {
		n.deliver(event)
	}
}

func (n *AsyncNotifier) deliver(event interfaces.Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("[PANIC] recovered in notifier", zap.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	n.sink.Notify(ctx, event)
}

// Close перестаёт принимать события и дожидается доставки уже поставленных
func (n *AsyncNotifier) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
		n.wg.Wait()
	})
}
