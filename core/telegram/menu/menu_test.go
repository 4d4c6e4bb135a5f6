package menu

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/menubot/core/catalog"
	coremenu "github.com/m3rciful/menubot/core/menu"
	tgsender "github.com/m3rciful/menubot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

type call struct {
	op     string
	chatID int64
	msgID  string
	text   string
	markup *tele.ReplyMarkup
}

type fakeAPI struct {
	mu         sync.Mutex
	calls      []call
	respondErr error
	editErr    error
	sendErr    error
}

func (f *fakeAPI) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeAPI) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func markupFrom(opts []interface{}) *tele.ReplyMarkup {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			return so.ReplyMarkup
		}
	}
	return nil
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	text, _ := what.(string)
	f.record(call{op: OpSend, chatID: int64(to.(tele.ChatID)), text: text, markup: markupFrom(opts)})
	return &tele.Message{}, f.sendErr
}

func (f *fakeAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	msgID, chatID := msg.MessageSig()
	text, _ := what.(string)
	f.record(call{op: OpEdit, chatID: chatID, msgID: msgID, text: text, markup: markupFrom(opts)})
	return &tele.Message{}, f.editErr
}

func (f *fakeAPI) Respond(cb *tele.Callback, resp ...*tele.CallbackResponse) error {
	f.record(call{op: OpAck, text: cb.ID})
	return f.respondErr
}

type fakeContext struct {
	tele.Context
	cb     *tele.Callback
	chat   *tele.Chat
	sender *tele.User
	text   string
	store  map[string]interface{}
}

func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Chat() *tele.Chat         { return f.chat }
func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Text() string             { return f.text }
func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 1, Callback: f.cb} }

func (f *fakeContext) Get(key string) interface{} { return f.store[key] }

func (f *fakeContext) Set(key string, val interface{}) {
	if f.store == nil {
		f.store = map[string]interface{}{}
	}
	f.store[key] = val
}

func newTestHandler(t *testing.T, api *fakeAPI) *Handler {
	t.Helper()
	cat, err := catalog.New(catalog.Content{
		Root:  catalog.RootContent{Title: "Главное меню"},
		Texts: catalog.TextsContent{Support: "Напишите @support", Unknown: "Неизвестная команда"},
		Categories: []catalog.CategoryContent{{
			ID:     "main_seo",
			Label:  "SEO",
			Leaves: []catalog.LeafContent{{Label: "Audit", URL: "https://example.com/audit"}},
		}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	router, err := coremenu.NewRouter(cat)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	h, err := NewHandler(router, api, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

func callbackAt(data string, chatID int64, msgID int) *tele.Callback {
	return &tele.Callback{
		ID:      "cb-1",
		Data:    data,
		Message: &tele.Message{ID: msgID, Chat: &tele.Chat{ID: chatID}},
	}
}

func TestDecodeAction(t *testing.T) {
	chat := &tele.Chat{ID: 42}
	tests := []struct {
		name string
		ctx  *fakeContext
		want coremenu.Action
	}{
		{"start", &fakeContext{chat: chat, text: "/start"},
			coremenu.Start().WithMessage(coremenu.MessageRef{ChatID: 42})},
		{"start with bot name and payload", &fakeContext{chat: chat, text: "/start@ShodropBot ref"},
			coremenu.Start().WithMessage(coremenu.MessageRef{ChatID: 42})},
		{"menu alias", &fakeContext{chat: chat, text: "/menu"},
			coremenu.Start().WithMessage(coremenu.MessageRef{ChatID: 42})},
		{"plain text", &fakeContext{chat: chat, text: "привет"},
			coremenu.Unrecognized("привет").WithMessage(coremenu.MessageRef{ChatID: 42})},
		{"back", &fakeContext{cb: callbackAt(catalog.BackID, 42, 7)},
			coremenu.Back().WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})},
		{"navigate", &fakeContext{cb: callbackAt("main_seo", 42, 7)},
			coremenu.Navigate("main_seo").WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})},
		{"empty data", &fakeContext{cb: callbackAt("", 42, 7)},
			coremenu.Unrecognized("").WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})},
		{"foreign payload", &fakeContext{cb: callbackAt("main_seo|1", 42, 7)},
			coremenu.Unrecognized("main_seo|1").WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})},
		{"telebot unique", &fakeContext{cb: &tele.Callback{Unique: "buy", Data: "1", Message: &tele.Message{ID: 7, Chat: chat}}},
			coremenu.Unrecognized("buy|1").WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})},
		{"telebot unique without payload", &fakeContext{cb: &tele.Callback{Unique: "main_seo", Message: &tele.Message{ID: 7, Chat: chat}}},
			coremenu.Unrecognized("main_seo").WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})},
		{"callback without message", &fakeContext{cb: &tele.Callback{Data: "main_seo"}, sender: &tele.User{ID: 9}},
			coremenu.Navigate("main_seo").WithMessage(coremenu.MessageRef{ChatID: 9})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeAction(tt.ctx); got != tt.want {
				t.Fatalf("DecodeAction = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeActionNilContext(t *testing.T) {
	if got := DecodeAction(nil); got.Kind != coremenu.KindUnrecognized {
		t.Fatalf("got %+v", got)
	}
}

func TestProcessNavigateAcksThenEdits(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHandler(t, api)
	action := coremenu.Navigate("main_seo").WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})

	if err := h.Process(context.Background(), action, &tele.Callback{ID: "cb-1"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	calls := api.snapshot()
	if len(calls) != 2 || calls[0].op != OpAck || calls[1].op != OpEdit {
		t.Fatalf("calls = %+v", calls)
	}
	edit := calls[1]
	if edit.chatID != 42 || edit.msgID != "7" || edit.text != "SEO" {
		t.Fatalf("edit = %+v", edit)
	}
	rows := edit.markup.InlineKeyboard
	if len(rows) != 3 || rows[0][0].URL != "https://example.com/audit" ||
		rows[1][0].Data != "support_main_seo" || rows[2][0].Data != catalog.BackID {
		t.Fatalf("keyboard = %+v", rows)
	}
}

func TestProcessStartSendsFreshMessage(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHandler(t, api)
	action := coremenu.Start().WithMessage(coremenu.MessageRef{ChatID: 42})

	if err := h.Process(context.Background(), action, nil); err != nil {
		t.Fatalf("process: %v", err)
	}
	calls := api.snapshot()
	if len(calls) != 1 || calls[0].op != OpSend || calls[0].chatID != 42 || calls[0].text != "Главное меню" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestProcessAckFailureSkipsRender(t *testing.T) {
	api := &fakeAPI{respondErr: errors.New("query is too old")}
	h := newTestHandler(t, api)
	action := coremenu.Back().WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})

	err := h.Process(context.Background(), action, &tele.Callback{ID: "cb-1"})
	var derr *DeliveryError
	if !errors.As(err, &derr) || derr.Op != OpAck || !errors.Is(err, ErrDelivery) {
		t.Fatalf("err = %v", err)
	}
	if calls := api.snapshot(); len(calls) != 1 {
		t.Fatalf("render must not run after ack failure: %+v", calls)
	}
}

func TestProcessEditFailureIsReportedOnce(t *testing.T) {
	api := &fakeAPI{editErr: errors.New("telegram: Bad Request: message to edit not found (400)")}
	h := newTestHandler(t, api)
	action := coremenu.Navigate("main_seo").WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})

	err := h.Process(context.Background(), action, &tele.Callback{ID: "cb-1"})
	var derr *DeliveryError
	if !errors.As(err, &derr) || derr.Op != OpEdit {
		t.Fatalf("err = %v", err)
	}
	edits := 0
	for _, c := range api.snapshot() {
		if c.op == OpEdit {
			edits++
		}
	}
	if edits != 1 {
		t.Fatalf("edit attempts = %d, want 1", edits)
	}
}

func TestProcessNotModifiedIsSuccess(t *testing.T) {
	api := &fakeAPI{editErr: errors.New("telegram: Bad Request: message is not modified: specified new message content and reply markup are exactly the same (400)")}
	h := newTestHandler(t, api)
	action := coremenu.Back().WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})

	if err := h.Process(context.Background(), action, &tele.Callback{ID: "cb-1"}); err != nil {
		t.Fatalf("not modified must be treated as success: %v", err)
	}
}

func TestProcessUnrecognizedRendersFallback(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHandler(t, api)
	action := coremenu.Navigate("ghost").WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})

	if err := h.Process(context.Background(), action, &tele.Callback{ID: "cb-1"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	calls := api.snapshot()
	last := calls[len(calls)-1]
	if last.text != "Неизвестная команда" || last.markup.InlineKeyboard[0][0].Data != catalog.BackID {
		t.Fatalf("fallback = %+v", last)
	}
}

func TestProcessWithoutChatFails(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHandler(t, api)
	err := h.Process(context.Background(), coremenu.Start(), nil)
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("err = %v", err)
	}
	if len(api.snapshot()) != 0 {
		t.Fatal("nothing should be sent without a chat")
	}
}

func TestProcessThroughDispatcherKeepsChatOrder(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHandler(t, api)
	d := tgsender.NewDispatcher(tgsender.Options{Workers: 2})
	defer d.Close()
	h.dispatcher = d

	ids := []string{"main_seo", "support_main_seo", catalog.BackID}
	for i, id := range ids {
		a := coremenu.Navigate(id)
		if id == catalog.BackID {
			a = coremenu.Back()
		}
		a = a.WithMessage(coremenu.MessageRef{ChatID: 42, MessageID: 7})
		if err := h.Process(context.Background(), a, &tele.Callback{ID: string(rune('a' + i))}); err != nil {
			t.Fatalf("process %s: %v", id, err)
		}
	}

	var texts []string
	for _, c := range api.snapshot() {
		if c.op == OpEdit {
			texts = append(texts, c.text)
		}
	}
	want := []string{"SEO", "Напишите @support", "Главное меню"}
	if strings.Join(texts, ";") != strings.Join(want, ";") {
		t.Fatalf("render order = %v, want %v", texts, want)
	}
}

func TestHandleDecodesAndCountsMessage(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHandler(t, api)
	c := &fakeContext{cb: callbackAt("main_seo", 42, 7)}

	if err := h.Handle(c); err != nil {
		t.Fatalf("handle: %v", err)
	}
	calls := api.snapshot()
	if len(calls) != 2 || calls[0].op != OpAck || calls[1].op != OpEdit || calls[1].text != "SEO" {
		t.Fatalf("calls = %+v", calls)
	}
	if c.Get("messages") != 1 || c.Get("kb") != true {
		t.Fatalf("counters = %v / %v", c.Get("messages"), c.Get("kb"))
	}
}

func TestNewHandlerRequiresDeps(t *testing.T) {
	if _, err := NewHandler(nil, &fakeAPI{}, nil); err == nil {
		t.Fatal("expected error for nil router")
	}
	router := newTestHandler(t, &fakeAPI{}).router
	if _, err := NewHandler(router, nil, nil); err == nil {
		t.Fatal("expected error for nil api")
	}
}

func TestVersionText(t *testing.T) {
	text := VersionText()
	if !strings.Contains(text, "version: ") || !strings.Contains(text, "go: go") {
		t.Fatalf("version text = %q", text)
	}
}
