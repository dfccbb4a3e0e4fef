// Package chat implements the per-pair chat channel: the stateless message
// operations and the session that keeps one conversation view live.
package chat

import (
	"Campus/internal/db"
	"Campus/internal/metrics"
	"Campus/internal/model"
	"Campus/internal/repo"
	"Campus/pkg/apperrors"
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const DefaultMaxMessageLength = 4000

// Service holds the message operations shared by the REST API and the
// chat sessions. It is the only writer of inbox summaries.
type Service struct {
	messages  repo.MessageRepository
	summaries repo.SummaryRepository
	maxLength int
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(messages repo.MessageRepository, summaries repo.SummaryRepository, maxLength int, logger *zap.Logger) *Service {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	return &Service{
		messages:  messages,
		summaries: summaries,
		maxLength: maxLength,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.InvalidArg("message text cannot be empty")
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return apperrors.InvalidArg("message text is too long")
	}
	return nil
}

// Send appends a message from senderID to receiverID. A failed append is
// returned as is; the caller decides whether to resend.
func (s *Service) Send(ctx context.Context, senderID, receiverID, text string) (*model.Message, error) {
	if senderID == "" || receiverID == "" {
		return nil, apperrors.InvalidArg("sender and receiver are required")
	}
	if senderID == receiverID {
		return nil, apperrors.InvalidArg("cannot message yourself")
	}
	if err := s.validateText(text); err != nil {
		return nil, err
	}

	conversationID := model.ConversationKey(senderID, receiverID)
	msg, err := s.messages.Append(ctx, conversationID, senderID, receiverID, text)
	if err != nil {
		s.logger.Error("failed to send message",
			zap.String("conversation_id", conversationID),
			zap.String("sender_id", senderID),
			zap.Error(err),
		)
		return nil, toAppError(err)
	}

	metrics.MessagesAppended.Inc()
	s.refreshSummaries(ctx, conversationID, senderID, receiverID)
	return msg, nil
}

// Edit replaces the text of a message sent by editorID.
func (s *Service) Edit(ctx context.Context, editorID, messageID, text string) (*model.Message, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}

	msg, err := s.messages.Edit(ctx, messageID, editorID, text)
	if err != nil {
		return nil, toAppError(err)
	}

	s.refreshSummaries(ctx, msg.ConversationID, msg.SenderID, msg.ReceiverID)
	return msg, nil
}

// Delete removes a message on behalf of either participant.
func (s *Service) Delete(ctx context.Context, requesterID, messageID string) error {
	msg, err := s.messages.Delete(ctx, messageID, requesterID)
	if err != nil {
		return toAppError(err)
	}

	s.refreshSummaries(ctx, msg.ConversationID, msg.SenderID, msg.ReceiverID)
	return nil
}

// History returns one page of the conversation between userID and peerID.
func (s *Service) History(ctx context.Context, userID, peerID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if userID == "" || peerID == "" {
		return nil, apperrors.InvalidArg("user and peer are required")
	}

	result, err := s.messages.ListPage(ctx, model.ConversationKey(userID, peerID), page)
	if err != nil {
		return nil, toAppError(err)
	}
	return result, nil
}

// Summaries returns the owner's inbox, most recent first.
func (s *Service) Summaries(ctx context.Context, ownerID string) ([]model.ChatSummary, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidArg("user is required")
	}

	summaries, err := s.summaries.List(ctx, ownerID)
	if err != nil {
		return nil, toAppError(err)
	}
	return summaries, nil
}

// MarkDelivered advances messages addressed to receiverID to delivered.
func (s *Service) MarkDelivered(ctx context.Context, conversationID, receiverID, peerID string) (int64, error) {
	n, err := s.messages.MarkDelivered(ctx, conversationID, receiverID)
	if err != nil {
		return 0, toAppError(err)
	}
	metrics.RecordDelivery(string(model.DeliveryDelivered), n)
	if n > 0 {
		s.refreshSummaries(ctx, conversationID, receiverID, peerID)
	}
	return n, nil
}

// MarkSeen advances messages addressed to receiverID to seen.
func (s *Service) MarkSeen(ctx context.Context, conversationID, receiverID, peerID string) (int64, error) {
	n, err := s.messages.MarkSeen(ctx, conversationID, receiverID)
	if err != nil {
		return 0, toAppError(err)
	}
	metrics.RecordDelivery(string(model.DeliverySeen), n)
	if n > 0 {
		s.refreshSummaries(ctx, conversationID, receiverID, peerID)
	}
	return n, nil
}

// Subscribe opens a live feed over the conversation.
func (s *Service) Subscribe(ctx context.Context, conversationID string) (*repo.Feed[[]model.Message], error) {
	feed, err := s.messages.Subscribe(ctx, conversationID)
	if err != nil {
		return nil, toAppError(err)
	}
	return feed, nil
}

// refreshSummaries rebuilds both participants' inbox entries from the last
// message in the log. Every write path ends here, so summaries have a single
// source. Failures are logged; the summary is a cache and the next write
// repairs it.
func (s *Service) refreshSummaries(ctx context.Context, conversationID, a, b string) {
	ctx = context.WithoutCancel(ctx)

	msgs, err := s.messages.List(ctx, conversationID)
	if err != nil {
		s.logger.Warn("failed to load conversation for summary",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return
	}

	for _, owner := range []string{a, b} {
		if len(msgs) == 0 {
			peer := b
			if owner == b {
				peer = a
			}
			err = s.summaries.Remove(ctx, owner, peer)
		} else {
			summary := model.SummaryFor(owner, msgs[len(msgs)-1])
			summary.UpdatedAt = s.now()
			err = s.summaries.Upsert(ctx, summary)
		}
		if err != nil {
			s.logger.Warn("failed to refresh chat summary",
				zap.String("conversation_id", conversationID),
				zap.String("owner_id", owner),
				zap.Error(err),
			)
		}
	}
}

// toAppError maps store errors onto the service error taxonomy. Anything
// unrecognised is treated as transient I/O.
func toAppError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repo.ErrInvalidMessage), errors.Is(err, repo.ErrInvalidConversationID):
		return apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	case errors.Is(err, repo.ErrMessageNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, err.Error(), err)
	case errors.Is(err, repo.ErrNotMessageSender), errors.Is(err, repo.ErrNotParticipant):
		return apperrors.Wrap(apperrors.CodePermissionDenied, err.Error(), err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return apperrors.Unavailable("message store unavailable", err)
	}
}
