// backend/src/services/conversation_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/username/tofuledger/backend/src/line"
	"github.com/username/tofuledger/backend/src/logger"
	"github.com/username/tofuledger/backend/src/models"
	"github.com/username/tofuledger/backend/src/parser"
	"github.com/username/tofuledger/backend/src/security/validation"
	"github.com/username/tofuledger/backend/src/store"
)

// Replier sends the single outbound reply an inbound event is allowed.
type Replier interface {
	Reply(ctx context.Context, replyToken string, messages ...line.Message) error
}

// TokenIssuer mints the dashboard tokens embedded in report links.
type TokenIssuer interface {
	IssueDashboardToken(userID int64) (string, error)
}

// Chat commands recognized in any state.
const (
	commandStart       = "記帳"
	commandStartLong   = "開始記帳"
	commandReport      = "報表"
	commandSettings    = "設定"
	commandFinishSetup = "完成設定"
)

// Postback payloads.
const (
	postbackDisclaimerAccept  = "disclaimer_accept"
	postbackDisclaimerDecline = "disclaimer_decline"
	postbackIncomeSalary      = "income_salary"
	postbackIncomeStock       = "income_stock"
	postbackIncomeOther       = "income_other"
	postbackAssetBank         = "asset_bank"
	postbackAssetStock        = "asset_stock"
	postbackDebtCredit        = "debt_credit"
	postbackMonthlyIncome     = "monthly_income"
	postbackMonthlyAssets     = "monthly_assets"
	postbackExpenseSummary    = "expense_summary"
	postbackUnknownExpense    = "unknown_expense"
)

// ConversationService is the per-message state machine. It holds no
// in-process state of its own: every event reads the user from the
// store, decides, writes back at most once, and replies exactly once.
type ConversationService struct {
	store        store.Store
	replier      Replier
	reports      ReportService
	tokens       TokenIssuer
	dashboardURL string
}

func NewConversationService(st store.Store, replier Replier, reports ReportService, tokens TokenIssuer, dashboardURL string) *ConversationService {
	return &ConversationService{
		store:        st,
		replier:      replier,
		reports:      reports,
		tokens:       tokens,
		dashboardURL: dashboardURL,
	}
}

// HandleEvents processes one webhook batch. Events are independent; a
// failure in one never blocks the rest.
func (s *ConversationService) HandleEvents(ctx context.Context, events []line.Event) {
	for _, event := range events {
		if err := s.handleEvent(ctx, event); err != nil {
			logger.FromContext(ctx).Error("Event handling failed",
				"eventType", event.Type, "lineUserID", event.Source.UserID, "error", err)
		}
	}
}

func (s *ConversationService) handleEvent(ctx context.Context, event line.Event) error {
	switch event.Type {
	case line.EventTypeFollow:
		return s.handleFollow(ctx, event)
	case line.EventTypeMessage:
		if event.Message == nil || event.Message.Type != line.MessageTypeText {
			return nil
		}
		return s.handleText(ctx, event)
	case line.EventTypePostback:
		if event.Postback == nil {
			return nil
		}
		return s.handlePostback(ctx, event)
	default:
		return nil
	}
}

func (s *ConversationService) handleFollow(ctx context.Context, event line.Event) error {
	_, err := s.store.GetOrCreateUser(event.Source.UserID, "")
	if err != nil {
		return s.replyStoreError(ctx, event.ReplyToken, err)
	}
	return s.reply(ctx, event.ReplyToken, line.NewTextMessage(
		"歡迎使用記帳小豆腐！🧾\n輸入「記帳」開始使用。"))
}

func (s *ConversationService) handleText(ctx context.Context, event line.Event) error {
	user, err := s.store.GetOrCreateUser(event.Source.UserID, "")
	if err != nil {
		return s.replyStoreError(ctx, event.ReplyToken, err)
	}

	text := event.Message.Text

	switch text {
	case commandStart, commandStartLong:
		return s.handleStartCommand(ctx, event.ReplyToken, user)
	case commandReport:
		return s.handleReportCommand(ctx, event.ReplyToken, user)
	case commandSettings:
		return s.reply(ctx, event.ReplyToken, settingsMenu())
	}

	switch user.State {
	case models.StateAwaitingInitialSetup:
		return s.handleSetupText(ctx, event.ReplyToken, user, text)
	case models.StateActive:
		return s.handleActiveText(ctx, event.ReplyToken, user, text)
	default:
		return s.reply(ctx, event.ReplyToken, helpMessage())
	}
}

func (s *ConversationService) handleStartCommand(ctx context.Context, replyToken string, user *models.User) error {
	if !user.DisclaimerAccepted {
		state := models.StateAwaitingDisclaimer
		if err := s.store.UpdateUser(user.ID, store.UserUpdate{State: &state}); err != nil {
			return s.replyStoreError(ctx, replyToken, err)
		}
		return s.reply(ctx, replyToken, disclaimerPrompt())
	}
	if !user.SetupCompleted {
		return s.reply(ctx, replyToken, setupPrompt())
	}
	return s.reply(ctx, replyToken, line.NewTextMessage(
		"您可以：\n• 直接輸入「項目 金額」記錄支出\n• 例如：午餐 120\n• 輸入「報表」查看本月統計\n• 輸入「設定」進行個人設定"))
}

func (s *ConversationService) handleReportCommand(ctx context.Context, replyToken string, user *models.User) error {
	summary, err := s.reports.GetSummary(user.ID)
	if err != nil {
		return s.replyStoreError(ctx, replyToken, err)
	}

	reportURL := s.dashboardURL + "/report"
	if token, err := s.tokens.IssueDashboardToken(user.ID); err != nil {
		logger.FromContext(ctx).Error("Dashboard token issuance failed", "userID", user.ID, "error", err)
	} else {
		reportURL += "?token=" + token
	}

	text := fmt.Sprintf(
		"📊 本月記帳報表\n\n💰 總收入：NT$ %d\n💸 總支出：NT$ %d\n💳 未知支出：NT$ %d\n💎 淨資產：NT$ %d\n\n詳細報表請查看：%s",
		summary.TotalIncome, summary.TotalExpense, summary.UnknownExpense, summary.NetAsset, reportURL)
	return s.reply(ctx, replyToken, line.NewTextMessage(text))
}

func (s *ConversationService) handleSetupText(ctx context.Context, replyToken string, user *models.User, text string) error {
	if text == commandFinishSetup {
		state := models.StateActive
		completed := true
		if err := s.store.UpdateUser(user.ID, store.UserUpdate{State: &state, SetupCompleted: &completed}); err != nil {
			return s.replyStoreError(ctx, replyToken, err)
		}
		return s.reply(ctx, replyToken, line.NewTextMessage(
			"🎉 初始設定完成！\n之後直接輸入「項目 金額」記錄支出即可。"))
	}

	parsed := parser.Parse(text)
	if parsed == nil {
		return s.reply(ctx, replyToken, line.NewTextMessage(
			"請輸入資產或負債：\n格式：名稱 金額\n例如：台新 50000、信用卡 15000\n\n都輸入完後，請輸入「完成設定」"))
	}

	kind := parser.Classify(parsed.Category, models.KindAsset)
	return s.persistAndConfirm(ctx, replyToken, user, parsed, kind)
}

func (s *ConversationService) handleActiveText(ctx context.Context, replyToken string, user *models.User, text string) error {
	parsed := parser.Parse(text)
	if parsed == nil {
		return s.reply(ctx, replyToken, helpMessage())
	}

	// Day-to-day entries default to expenses; labels that read like a
	// balance update ("台新銀行 50000", "信用卡 15000") take the
	// asset-like path instead.
	kind := models.KindExpense
	if parser.LooksLikeBalance(parsed.Category) {
		kind = parser.Classify(parsed.Category, models.KindAsset)
	}
	return s.persistAndConfirm(ctx, replyToken, user, parsed, kind)
}

func (s *ConversationService) persistAndConfirm(ctx context.Context, replyToken string, user *models.User, parsed *parser.ParsedRecord, kind models.RecordKind) error {
	category := validation.StripUnprintable(validation.SanitizeText(parsed.Category))
	record := &models.Record{
		UserID:     user.ID,
		Category:   category,
		Amount:     parsed.Amount,
		Kind:       kind,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.store.InsertRecord(record); err != nil {
		return s.replyStoreError(ctx, replyToken, err)
	}
	s.reports.InvalidateUserCache(user.ID)

	text := fmt.Sprintf("✅ 記錄成功！\n\n項目：%s\n金額：NT$ %d\n類型：%s\n\n輸入「報表」查看統計",
		category, parsed.Amount, kindLabel(kind))
	return s.reply(ctx, replyToken, line.NewTextMessage(text))
}

func (s *ConversationService) handlePostback(ctx context.Context, event line.Event) error {
	user, err := s.store.GetOrCreateUser(event.Source.UserID, "")
	if err != nil {
		return s.replyStoreError(ctx, event.ReplyToken, err)
	}

	switch event.Postback.Data {
	case postbackDisclaimerAccept:
		state := models.StateAwaitingInitialSetup
		accepted := true
		if err := s.store.UpdateUser(user.ID, store.UserUpdate{State: &state, DisclaimerAccepted: &accepted}); err != nil {
			return s.replyStoreError(ctx, event.ReplyToken, err)
		}
		return s.reply(ctx, event.ReplyToken, setupPrompt())

	case postbackDisclaimerDecline:
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(
			"好的，如果改變主意，隨時輸入「記帳」再回來找我！👋"))

	case postbackIncomeSalary:
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(
			"請輸入薪資收入金額：\n格式：薪資 金額\n例如：薪資 45000"))
	case postbackIncomeStock:
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(
			"請輸入股票收入金額：\n格式：股票 金額\n例如：股票 3000"))
	case postbackIncomeOther:
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(
			"請輸入其他收入金額：\n格式：項目 金額\n例如：獎金 10000"))

	case postbackAssetBank, postbackMonthlyAssets:
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(
			"請選擇要更新的銀行：\n• 台新銀行\n• 聯邦銀行\n• 國泰銀行\n• 永豐銀行\n\n格式：銀行名稱 餘額\n例如：台新銀行 50000"))
	case postbackAssetStock:
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(
			"請輸入股票基金現值：\n格式：名稱 金額\n例如：股票基金 120000"))
	case postbackDebtCredit:
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(
			"請輸入信用卡債金額：\n格式：名稱 金額\n例如：信用卡 15000"))

	case postbackMonthlyIncome:
		return s.reply(ctx, event.ReplyToken, monthlyIncomeMenu())

	case postbackExpenseSummary:
		summary, err := s.reports.GetSummary(user.ID)
		if err != nil {
			return s.replyStoreError(ctx, event.ReplyToken, err)
		}
		text := fmt.Sprintf("💸 本月支出統計：NT$ %d", summary.TotalExpense)
		for _, c := range summary.ExpenseByCategory {
			text += fmt.Sprintf("\n• %s：NT$ %d（%s%%）", c.Category, c.Amount, c.Share)
		}
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(text))

	case postbackUnknownExpense:
		summary, err := s.reports.GetSummary(user.ID)
		if err != nil {
			return s.replyStoreError(ctx, event.ReplyToken, err)
		}
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage(fmt.Sprintf(
			"💳 未知支出：NT$ %d\n（總收入減去已記錄支出的差額）", summary.UnknownExpense)))

	default:
		return s.reply(ctx, event.ReplyToken, line.NewTextMessage("功能開發中，敬請期待！"))
	}
}

// reply sends the event's single outbound message. Send failures are
// surfaced to the caller's log only; there is nothing left to roll back.
func (s *ConversationService) reply(ctx context.Context, replyToken string, messages ...line.Message) error {
	if err := s.replier.Reply(ctx, replyToken, messages...); err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	return nil
}

// replyStoreError degrades a persistence failure to a "try again" reply.
// No retry, no partial state.
func (s *ConversationService) replyStoreError(ctx context.Context, replyToken string, cause error) error {
	logger.FromContext(ctx).Error("Store operation failed during event handling", "error", cause)
	if err := s.replier.Reply(ctx, replyToken, line.NewTextMessage("系統忙碌中，請稍後再試 🙏")); err != nil {
		return fmt.Errorf("sending error reply after %v: %w", cause, err)
	}
	return cause
}

func kindLabel(kind models.RecordKind) string {
	switch kind {
	case models.KindIncome:
		return "收入"
	case models.KindAsset:
		return "資產"
	case models.KindDebt:
		return "負債"
	default:
		return "支出"
	}
}

func helpMessage() line.TextMessage {
	return line.NewTextMessage(
		"請輸入正確格式：\n• 項目 金額（例如：午餐 120）\n• 或輸入「記帳」查看使用說明")
}

func disclaimerPrompt() line.TemplateMessage {
	return line.NewTemplateMessage("使用前確認",
		line.NewButtonsTemplate("使用前確認",
			"記帳小豆腐會記錄您輸入的收支與資產資料，僅用於產生個人報表。是否同意開始使用？",
			line.NewPostbackAction("同意", postbackDisclaimerAccept),
			line.NewPostbackAction("不同意", postbackDisclaimerDecline),
		))
}

func setupPrompt() line.TextMessage {
	return line.NewTextMessage(
		"📝 初始設定\n請先輸入您目前的資產與負債：\n格式：名稱 金額\n例如：台新銀行 50000、信用卡 15000\n\n都輸入完後，請輸入「完成設定」")
}

func settingsMenu() line.TemplateMessage {
	return line.NewTemplateMessage("設定選單",
		line.NewButtonsTemplate("個人設定", "請選擇要設定的項目",
			line.NewPostbackAction("銀行帳戶設定", "setting_bank"),
			line.NewPostbackAction("提醒時間設定", "setting_reminder"),
			line.NewPostbackAction("分類設定", "setting_category"),
		))
}

func monthlyIncomeMenu() line.TemplateMessage {
	return line.NewTemplateMessage("收入記錄",
		line.NewButtonsTemplate("收入記錄", "請記錄本月收入項目",
			line.NewPostbackAction("薪資收入", postbackIncomeSalary),
			line.NewPostbackAction("股票收入", postbackIncomeStock),
			line.NewPostbackAction("其他收入", postbackIncomeOther),
		))
}
