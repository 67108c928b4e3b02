// backend/src/services/reminder_service.go
package services

import (
	"context"

	"github.com/username/tofuledger/backend/src/line"
	"github.com/username/tofuledger/backend/src/logger"
	"github.com/username/tofuledger/backend/src/store"
)

// Pusher delivers messages outside of a reply context.
type Pusher interface {
	Push(ctx context.Context, to string, messages ...line.Message) error
}

// ReminderService fans the monthly reminder template out to every known
// user. Scheduling and delivery guarantees belong to the external cron;
// this only performs one pass when triggered.
type ReminderService struct {
	store        store.Store
	pusher       Pusher
	dashboardURL string
}

func NewReminderService(st store.Store, pusher Pusher, dashboardURL string) *ReminderService {
	return &ReminderService{store: st, pusher: pusher, dashboardURL: dashboardURL}
}

// SendMonthlyReminders pushes the reminder to all users and returns how
// many deliveries succeeded. Individual push failures are logged and
// skipped; one unreachable user never aborts the fan-out.
func (s *ReminderService) SendMonthlyReminders(ctx context.Context) (int, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return 0, err
	}

	message := s.monthlyReminderMessage()
	sent := 0
	for _, user := range users {
		if err := s.pusher.Push(ctx, user.LineUserID, message); err != nil {
			logger.FromContext(ctx).Error("Monthly reminder push failed",
				"userID", user.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *ReminderService) monthlyReminderMessage() line.TemplateMessage {
	return line.NewTemplateMessage("每月記帳提醒 - 記帳小豆腐",
		line.NewCarouselTemplate(
			line.CarouselColumn{
				Title: "📊 每月記帳提醒",
				Text:  "該記錄本月收入和資產了！",
				Actions: []line.Action{
					line.NewPostbackAction("記錄收入", postbackMonthlyIncome),
					line.NewPostbackAction("更新資產", postbackMonthlyAssets),
					line.NewURIAction("查看報表", s.dashboardURL+"/report"),
				},
			},
			line.CarouselColumn{
				Title: "💰 本月統計",
				Text:  "快速查看本月記帳狀況",
				Actions: []line.Action{
					line.NewPostbackAction("支出統計", postbackExpenseSummary),
					line.NewPostbackAction("未知支出", postbackUnknownExpense),
					line.NewPostbackAction("設定提醒", "setting_reminder"),
				},
			},
		))
}
