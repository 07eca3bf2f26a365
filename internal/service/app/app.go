package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"stegochat/internal/model"
	convRepo "stegochat/internal/repository/conversation"
	userRepo "stegochat/internal/repository/user"
	"stegochat/internal/service/chat"
	"stegochat/internal/utils/log"
)

type (
	App struct {
		app     *tview.Application
		chatbox *tview.TextView
		input   *tview.InputField

		chatService *chat.Service
		userRepo    *userRepo.UserRepo
		convRepo    *convRepo.ConversationRepo

		user     *model.User
		speaker  model.Speaker
		toName   string
		password string

		// history is the resolved conversation, strictly ordered. Every
		// encode and decode conditions on it, so it only ever grows at
		// the end. mu serializes the send path against the websocket
		// listener.
		mu      sync.Mutex
		history []model.Message

		conn *websocket.Conn
	}
)

func NewApp(chatService *chat.Service, userRepo *userRepo.UserRepo, convRepo *convRepo.ConversationRepo) *App {
	return &App{
		app:         tview.NewApplication(),
		chatService: chatService,
		userRepo:    userRepo,
		convRepo:    convRepo,
	}
}

func (c *App) Run(ctx context.Context, name string) {
	user, err := c.getUserAndCreateIfNotExist(ctx, name)
	if err != nil {
		log.Fatal("get user info failed", zap.Error(err))
	}
	c.user = user

	var toName string
	fmt.Print("Enter recipient's name: ")
	if _, err := fmt.Scan(&toName); err != nil {
		fmt.Println("error:", err)
		return
	}
	c.toName = toName

	fmt.Print("Enter conversation password: ")
	if _, err := fmt.Scan(&c.password); err != nil {
		fmt.Println("error:", err)
		return
	}

	if _, err := c.getRemoteUser(c.toName); err != nil {
		log.Fatal("recipient lookup failed", zap.Error(err))
	}

	c.speaker = assignSpeaker(c.user.Name, c.toName)

	if err := c.loadConversation(ctx); err != nil {
		log.Fatal("load conversation failed", zap.Error(err))
	}

	c.conn, err = c.initWebhook(c.user.Name)
	if err != nil {
		log.Fatal("init webhook to server failed", zap.Error(err))
	}

	go c.listenOnWebhook()
	c.renderUI()
}

func (c *App) Stop() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// assignSpeaker maps the two participants onto the protocol's fixed A/B
// tags: both clients must agree, so the lexicographically first name is A.
func assignSpeaker(self, peer string) model.Speaker {
	names := []string{self, peer}
	sort.Strings(names)
	if names[0] == self {
		return model.SpeakerA
	}
	return model.SpeakerB
}

// loadConversation replays the stored wire-form conversation through the
// decrypt pipeline. Messages that were never encrypted under this password
// simply come back unresolved; they stay readable as plain text.
func (c *App) loadConversation(ctx context.Context) error {
	stored, err := c.convRepo.Load(ctx, c.user.Name, c.toName)
	if err != nil {
		return err
	}

	resolved, err := c.chatService.DecryptAll(c.password, stored)
	if err != nil {
		return err
	}
	c.history = resolved
	return nil
}

// blocking function
func (c *App) renderUI() {
	c.chatbox = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	c.chatbox.SetBorder(true).SetTitle(fmt.Sprintf(" Chat with %s ", c.toName))

	c.input = tview.NewInputField().
		SetLabel("Message: ").
		SetFieldWidth(0)
	c.input.SetBorder(true).SetTitle(" New Message ")

	for _, m := range c.history {
		fmt.Fprint(c.chatbox, c.formatMessage(m))
	}
	c.chatbox.ScrollToEnd()

	c.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			text := c.input.GetText()
			if text == "" {
				return
			}

			go func(msg string) {
				err := c.SendMessage(msg)
				if err != nil {
					c.app.Suspend(func() {
						log.Error("Send message failed", zap.Error(err))
					})
				}
			}(text)
		}
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.chatbox, 0, 1, false).
		AddItem(c.input, 3, 0, true)

	if err := c.app.SetRoot(layout, true).SetFocus(c.input).Run(); err != nil {
		log.Fatal("cannot init app", zap.Error(err))
	}
}

func (c *App) listenOnWebhook() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug("worker web socket closed", zap.Error(err))
			c.conn.Close()
			break
		}

		var envelope model.Envelope
		err = json.Unmarshal(data, &envelope)
		if err != nil {
			log.Error("Unmarshal envelope failed", zap.Error(err))
			continue
		}

		if err := c.ReceiveMessage(&envelope); err != nil {
			c.app.Suspend(func() {
				log.Error("receive message failed", zap.Error(err))
			})
		}
	}
}

func (c *App) SendMessage(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	enc, err := c.chatService.EncryptNew(c.password, c.history, c.speaker, msg)
	if err != nil {
		return err
	}

	// only the disguised form leaves this process or touches storage
	wire := model.NewMessage(enc.Speaker, enc.Content)
	if err := c.convRepo.Append(context.TODO(), c.user.Name, c.toName, wire); err != nil {
		return err
	}
	c.history = append(c.history, enc)

	if err := c.conn.WriteJSON(&model.Envelope{
		From:    c.user.Name,
		To:      c.toName,
		Message: wire,
	}); err != nil {
		return err
	}

	c.app.QueueUpdateDraw(func() {
		fmt.Fprintf(c.chatbox, "[yellow]You:[-] %s\n", enc.DecryptedContent)
		c.input.SetText("")
		c.chatbox.ScrollToEnd()
	})
	return nil
}

func (c *App) ReceiveMessage(envelope *model.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.convRepo.Append(context.TODO(), c.user.Name, c.toName, envelope.Message); err != nil {
		return err
	}

	attempt := append(append([]model.Message(nil), c.history...), envelope.Message)
	resolved, err := c.chatService.DecryptAll(c.password, attempt)
	if err != nil {
		return err
	}
	c.history = resolved

	last := resolved[len(resolved)-1]
	c.printMessage(last)
	return nil
}

func (c *App) printMessage(m model.Message) {
	line := c.formatMessage(m)
	c.app.QueueUpdateDraw(func() {
		fmt.Fprint(c.chatbox, line)
		c.chatbox.ScrollToEnd()
	})
}

func (c *App) formatMessage(m model.Message) string {
	label := "[green]" + c.peerLabel(m.Speaker) + ":[-]"
	if m.Speaker == c.speaker {
		label = "[yellow]You:[-]"
	}

	text := m.Resolved()
	if !m.Decrypted {
		text += " [gray](not decryptable with this password)[-]"
	}
	return fmt.Sprintf("%s %s\n", label, text)
}

func (c *App) peerLabel(s model.Speaker) string {
	if s == c.speaker {
		return c.user.Name
	}
	return c.toName
}
