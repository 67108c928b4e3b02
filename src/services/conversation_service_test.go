package services

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tofuledger/backend/src/line"
	"github.com/username/tofuledger/backend/src/logger"
	"github.com/username/tofuledger/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestConversation(st *fakeStore) (*ConversationService, *fakeReplier) {
	replier := &fakeReplier{}
	reports := NewReportService(st, cache.New(time.Minute, time.Minute), 0)
	svc := NewConversationService(st, replier, reports, fakeTokenIssuer{}, "http://localhost:3000")
	return svc, replier
}

func textEvent(userID, text string) line.Event {
	return line.Event{
		Type:       line.EventTypeMessage,
		ReplyToken: "rt-" + text,
		Source:     line.EventSource{Type: "user", UserID: userID},
		Message:    &line.EventMessage{Type: line.MessageTypeText, Text: text},
	}
}

func postbackEvent(userID, data string) line.Event {
	return line.Event{
		Type:       line.EventTypePostback,
		ReplyToken: "rt-" + data,
		Source:     line.EventSource{Type: "user", UserID: userID},
		Postback:   &line.Postback{Data: data},
	}
}

func followEvent(userID string) line.Event {
	return line.Event{
		Type:       line.EventTypeFollow,
		ReplyToken: "rt-follow",
		Source:     line.EventSource{Type: "user", UserID: userID},
	}
}

func replyText(t *testing.T, reply sentReply) string {
	t.Helper()
	if len(reply.messages) != 1 {
		t.Fatalf("reply has %d messages, want 1", len(reply.messages))
	}
	msg, ok := reply.messages[0].(line.TextMessage)
	if !ok {
		t.Fatalf("reply message is %T, want TextMessage", reply.messages[0])
	}
	return msg.Text
}

func TestFollowCreatesUserAndWelcomes(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)

	svc.HandleEvents(context.Background(), []line.Event{followEvent("U1")})

	user, ok := st.users["U1"]
	if !ok {
		t.Fatal("follow did not create the user")
	}
	if user.State != models.StateNew {
		t.Errorf("state = %q, want %q", user.State, models.StateNew)
	}
	if len(replier.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replier.replies))
	}
	if !strings.Contains(replyText(t, replier.replies[0]), "歡迎") {
		t.Errorf("welcome reply missing greeting: %q", replyText(t, replier.replies[0]))
	}
}

func TestStartCommandPromptsDisclaimer(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)

	svc.HandleEvents(context.Background(), []line.Event{textEvent("U1", "記帳")})

	user := st.users["U1"]
	if user.State != models.StateAwaitingDisclaimer {
		t.Errorf("state = %q, want %q", user.State, models.StateAwaitingDisclaimer)
	}
	if len(replier.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replier.replies))
	}
	if _, ok := replier.replies[0].messages[0].(line.TemplateMessage); !ok {
		t.Errorf("disclaimer reply is %T, want TemplateMessage", replier.replies[0].messages[0])
	}
}

func TestDisclaimerAcceptMovesToSetup(t *testing.T) {
	st := newFakeStore()
	svc, _ := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateAwaitingDisclaimer

	svc.HandleEvents(context.Background(), []line.Event{postbackEvent("U1", "disclaimer_accept")})

	if !user.DisclaimerAccepted {
		t.Error("disclaimer not marked accepted")
	}
	if user.State != models.StateAwaitingInitialSetup {
		t.Errorf("state = %q, want %q", user.State, models.StateAwaitingInitialSetup)
	}
}

func TestDisclaimerDeclineKeepsState(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateAwaitingDisclaimer

	svc.HandleEvents(context.Background(), []line.Event{postbackEvent("U1", "disclaimer_decline")})

	if user.DisclaimerAccepted {
		t.Error("decline must not accept the disclaimer")
	}
	if user.State != models.StateAwaitingDisclaimer {
		t.Errorf("state = %q, want unchanged %q", user.State, models.StateAwaitingDisclaimer)
	}
	if len(replier.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replier.replies))
	}
}

func TestSetupRecordsAssetAndDebt(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateAwaitingInitialSetup
	user.DisclaimerAccepted = true

	svc.HandleEvents(context.Background(), []line.Event{
		textEvent("U1", "台新銀行 50000"),
		textEvent("U1", "信用卡 15000"),
	})

	records := st.records[user.ID]
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Kind != models.KindAsset || records[0].Amount != 50000 {
		t.Errorf("first record = %+v, want asset 50000", records[0])
	}
	if records[1].Kind != models.KindDebt || records[1].Amount != 15000 {
		t.Errorf("second record = %+v, want debt 15000", records[1])
	}
	if user.State != models.StateAwaitingInitialSetup {
		t.Errorf("state = %q, setup must not complete until the finish command", user.State)
	}
	if len(replier.replies) != 2 {
		t.Errorf("replies = %d, want one per event", len(replier.replies))
	}
}

func TestSetupUnparsedTextRemindsFormat(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateAwaitingInitialSetup

	svc.HandleEvents(context.Background(), []line.Event{textEvent("U1", "這是什麼")})

	if len(st.records[user.ID]) != 0 {
		t.Error("unparsed text must not persist a record")
	}
	if !strings.Contains(replyText(t, replier.replies[0]), "格式") {
		t.Errorf("reply should remind the format: %q", replyText(t, replier.replies[0]))
	}
}

func TestFinishSetupActivates(t *testing.T) {
	st := newFakeStore()
	svc, _ := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateAwaitingInitialSetup
	user.DisclaimerAccepted = true

	svc.HandleEvents(context.Background(), []line.Event{textEvent("U1", "完成設定")})

	if !user.SetupCompleted {
		t.Error("setup not marked complete")
	}
	if user.State != models.StateActive {
		t.Errorf("state = %q, want %q", user.State, models.StateActive)
	}
}

func TestActiveTextRecordsExpense(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateActive

	svc.HandleEvents(context.Background(), []line.Event{textEvent("U1", "午餐 120")})

	records := st.records[user.ID]
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Kind != models.KindExpense || records[0].Category != "午餐" || records[0].Amount != 120 {
		t.Errorf("record = %+v, want expense 午餐 120", records[0])
	}
	if !strings.Contains(replyText(t, replier.replies[0]), "記錄成功") {
		t.Errorf("confirmation reply = %q", replyText(t, replier.replies[0]))
	}
}

func TestActiveBalanceLabelTakesAssetPath(t *testing.T) {
	st := newFakeStore()
	svc, _ := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateActive

	svc.HandleEvents(context.Background(), []line.Event{
		textEvent("U1", "台新銀行 60000"),
		textEvent("U1", "信用卡 9000"),
	})

	records := st.records[user.ID]
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Kind != models.KindAsset {
		t.Errorf("bank balance kind = %q, want asset", records[0].Kind)
	}
	if records[1].Kind != models.KindDebt {
		t.Errorf("credit card kind = %q, want debt", records[1].Kind)
	}
}

func TestActiveUnrecognizedTextGetsHelp(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateActive

	svc.HandleEvents(context.Background(), []line.Event{textEvent("U1", "哈囉")})

	if len(st.records[user.ID]) != 0 {
		t.Error("help path must not persist a record")
	}
	if !strings.Contains(replyText(t, replier.replies[0]), "記帳") {
		t.Errorf("help reply = %q", replyText(t, replier.replies[0]))
	}
}

func TestReportCommandRendersSummary(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateActive
	st.records[user.ID] = []models.Record{
		{Category: "收入", Amount: 45000, Kind: models.KindIncome},
		{Category: "伙食", Amount: 25680, Kind: models.KindExpense},
	}

	svc.HandleEvents(context.Background(), []line.Event{textEvent("U1", "報表")})

	text := replyText(t, replier.replies[0])
	for _, want := range []string{"45000", "25680", "19320", "token=test-token"} {
		if !strings.Contains(text, want) {
			t.Errorf("report reply missing %q: %q", want, text)
		}
	}
}

func TestStoreFailureDegradesToRetryReply(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateActive
	st.failInsert = true

	svc.HandleEvents(context.Background(), []line.Event{textEvent("U1", "午餐 120")})

	if len(st.records[user.ID]) != 0 {
		t.Error("failed insert must not leave partial state")
	}
	if len(replier.replies) != 1 {
		t.Fatalf("replies = %d, want exactly 1 error reply", len(replier.replies))
	}
	if !strings.Contains(replyText(t, replier.replies[0]), "稍後再試") {
		t.Errorf("error reply = %q", replyText(t, replier.replies[0]))
	}
}

func TestOneReplyPerEvent(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	user := st.seedUser("U1")
	user.State = models.StateActive

	svc.HandleEvents(context.Background(), []line.Event{
		textEvent("U1", "午餐 120"),
		textEvent("U1", "哈囉"),
		postbackEvent("U1", "expense_summary"),
	})

	if len(replier.replies) != 3 {
		t.Errorf("replies = %d, want one per event", len(replier.replies))
	}
}

func TestUnknownPostbackGetsPlaceholder(t *testing.T) {
	st := newFakeStore()
	svc, replier := newTestConversation(st)
	st.seedUser("U1")

	svc.HandleEvents(context.Background(), []line.Event{postbackEvent("U1", "setting_bank")})

	if !strings.Contains(replyText(t, replier.replies[0]), "開發中") {
		t.Errorf("placeholder reply = %q", replyText(t, replier.replies[0]))
	}
}
