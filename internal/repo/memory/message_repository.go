package memory

import (
	"Campus/internal/db"
	"Campus/internal/model"
	"Campus/internal/repo"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

const messagePageSize = 15

// MessageRepository keeps each conversation as a slice ordered by
// (createdAt, seq).
type MessageRepository struct {
	mu    sync.Mutex
	opts  options
	seq   int64
	convs map[string][]model.Message
	index map[string]string // message id -> conversation id
	subs  subscribers[[]model.Message]
}

var _ repo.MessageRepository = (*MessageRepository)(nil)

func NewMessageRepository(opts ...Option) *MessageRepository {
	return &MessageRepository{
		opts:  buildOptions(opts),
		convs: make(map[string][]model.Message),
		index: make(map[string]string),
		subs:  make(subscribers[[]model.Message]),
	}
}

func (m *MessageRepository) Append(ctx context.Context, conversationID, senderID, receiverID, text string) (*model.Message, error) {
	if conversationID == "" || senderID == "" || receiverID == "" {
		return nil, repo.ErrInvalidMessage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	msg := model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           text,
		CreatedAt:      m.opts.now(),
		DeliveryState:  model.DeliverySent,
		Seq:            m.seq,
	}

	msgs := append(m.convs[conversationID], msg)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Less(msgs[j]) })
	m.convs[conversationID] = msgs
	m.index[msg.ID] = conversationID

	m.notify(conversationID)
	return &msg, nil
}

func (m *MessageRepository) Get(_ context.Context, messageID string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, i, ok := m.locate(messageID)
	if !ok {
		return nil, repo.ErrMessageNotFound
	}
	msg := m.convs[m.index[messageID]][i]
	return &msg, nil
}

func (m *MessageRepository) List(_ context.Context, conversationID string) ([]model.Message, error) {
	if conversationID == "" {
		return nil, repo.ErrInvalidConversationID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(conversationID), nil
}

func (m *MessageRepository) ListPage(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	all, err := m.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	params := db.PaginationParams{Page: page, PageSize: messagePageSize}.Normalize()
	total := int64(len(all))
	start := (params.Page - 1) * params.PageSize
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	return &db.PaginatedResult[model.Message]{
		Data:       all[start:end],
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: params.TotalPages(total),
	}, nil
}

func (m *MessageRepository) MarkDelivered(_ context.Context, conversationID, receiverID string) (int64, error) {
	return m.advance(conversationID, receiverID, model.DeliveryDelivered)
}

func (m *MessageRepository) MarkSeen(_ context.Context, conversationID, receiverID string) (int64, error) {
	return m.advance(conversationID, receiverID, model.DeliverySeen)
}

func (m *MessageRepository) advance(conversationID, receiverID string, target model.DeliveryState) (int64, error) {
	if conversationID == "" {
		return 0, repo.ErrInvalidConversationID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	msgs := m.convs[conversationID]
	for i := range msgs {
		if msgs[i].ReceiverID == receiverID && msgs[i].DeliveryState.Before(target) {
			msgs[i].DeliveryState = target
			n++
		}
	}
	if n > 0 {
		m.notify(conversationID)
	}
	return n, nil
}

func (m *MessageRepository) Edit(_ context.Context, messageID, senderID, text string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, i, ok := m.locate(messageID)
	if !ok {
		return nil, repo.ErrMessageNotFound
	}
	msg := &m.convs[conv][i]
	if msg.SenderID != senderID {
		return nil, repo.ErrNotMessageSender
	}

	edited := m.opts.now()
	msg.Text = text
	msg.EditedAt = &edited

	out := *msg
	m.notify(conv)
	return &out, nil
}

func (m *MessageRepository) Delete(_ context.Context, messageID, requesterID string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, i, ok := m.locate(messageID)
	if !ok {
		return nil, repo.ErrMessageNotFound
	}
	msgs := m.convs[conv]
	msg := msgs[i]
	if msg.SenderID != requesterID && msg.ReceiverID != requesterID {
		return nil, repo.ErrNotParticipant
	}

	m.convs[conv] = append(msgs[:i:i], msgs[i+1:]...)
	delete(m.index, messageID)

	m.notify(conv)
	return &msg, nil
}

func (m *MessageRepository) Subscribe(ctx context.Context, conversationID string) (*repo.Feed[[]model.Message], error) {
	if conversationID == "" {
		return nil, repo.ErrInvalidConversationID
	}

	feed := repo.NewFeed[[]model.Message](ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	feed.Publish(m.snapshot(conversationID))
	m.subs.add(conversationID, feed)
	return feed, nil
}

func (m *MessageRepository) locate(messageID string) (string, int, bool) {
	conv, ok := m.index[messageID]
	if !ok {
		return "", 0, false
	}
	for i, msg := range m.convs[conv] {
		if msg.ID == messageID {
			return conv, i, true
		}
	}
	return "", 0, false
}

func (m *MessageRepository) snapshot(conversationID string) []model.Message {
	msgs := m.convs[conversationID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (m *MessageRepository) notify(conversationID string) {
	if _, ok := m.subs[conversationID]; !ok {
		return
	}
	m.subs.publish(conversationID, m.snapshot(conversationID))
}
