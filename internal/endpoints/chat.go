package endpoints

import (
	"context"
	"net/http"
	"strconv"

	"fuelcoach-go/internal/apiclient"
	"fuelcoach-go/internal/upload"
)

type ChatThread struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	CreatedAt *string `json:"created_at"`
}

type ChatMessage struct {
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Timestamp *string `json:"timestamp"`
}

type ChatSend struct {
	Message         string `json:"message"`
	RunOrchestrator bool   `json:"run_orchestrator,omitempty"`
	ThreadID        *int   `json:"thread_id,omitempty"`
}

type ChatReply struct {
	Reply string `json:"reply"`
}

func (a *API) ChatThreads(ctx context.Context, p Page) (*Paginated[ChatThread], error) {
	return get[Paginated[ChatThread]](ctx, a.c, "/chat/threads", p.apply(nil))
}

func (a *API) CreateChatThread(ctx context.Context, title string) (*ChatThread, error) {
	var body any
	if title != "" {
		body = map[string]string{"title": title}
	}
	return send[ChatThread](ctx, a.c, http.MethodPost, "/chat/threads", body)
}

func (a *API) RenameChatThread(ctx context.Context, id int, title string) (*ChatThread, error) {
	return send[ChatThread](ctx, a.c, http.MethodPatch, "/chat/threads/"+itoa(id), map[string]string{"title": title})
}

func (a *API) DeleteChatThread(ctx context.Context, id int) error {
	_, err := raw(ctx, a.c, http.MethodDelete, "/chat/threads/"+itoa(id), nil)
	return err
}

func (a *API) ClearChatThread(ctx context.Context, id int) error {
	_, err := raw(ctx, a.c, http.MethodPost, "/chat/threads/"+itoa(id)+"/clear", nil)
	return err
}

// ChatHistory returns messages oldest first. threadID 0 means the default thread.
func (a *API) ChatHistory(ctx context.Context, threadID int, p Page) ([]ChatMessage, error) {
	q := p.apply(nil)
	if threadID > 0 {
		q.Set("thread_id", itoa(threadID))
	}
	out, err := get[[]ChatMessage](ctx, a.c, "/chat/history", q)
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}

func (a *API) SendChat(ctx context.Context, msg ChatSend) (*ChatReply, error) {
	return send[ChatReply](ctx, a.c, http.MethodPost, "/chat/send", msg)
}

// SendChatWithFile attaches a photo or FIT file to a message.
func (a *API) SendChatWithFile(ctx context.Context, msg ChatSend, file upload.Reference, saveWorkout bool) (*ChatReply, error) {
	fields := map[string]string{
		"message":          msg.Message,
		"run_orchestrator": strconv.FormatBool(msg.RunOrchestrator),
		"save_workout":     strconv.FormatBool(saveWorkout),
	}
	if msg.ThreadID != nil {
		fields["thread_id"] = itoa(*msg.ThreadID)
	}
	return doUpload[ChatReply](ctx, a.c, apiclient.UploadRequest{
		Path:   "/chat/send-with-file",
		File:   file,
		Fields: fields,
	})
}
