package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/db"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory stand-in for the Mongo repositories
type memStore struct {
	mu            sync.Mutex
	conversations map[primitive.ObjectID]*model.Conversation
	messages      []*model.Message
	users         map[string]*model.User

	insertErr error
	updateErr error
	markErr   error
}

func newMemStore(users ...*model.User) *memStore {
	s := &memStore{
		conversations: make(map[primitive.ObjectID]*model.Conversation),
		users:         make(map[string]*model.User),
	}
	for _, u := range users {
		s.users[u.UserID] = u
	}
	return s
}

func (s *memStore) conversation(id primitive.ObjectID) model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.conversations[id]
}

// ---- UserRepository ----

func (s *memStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ---- ConversationRepository ----

func (s *memStore) FindByID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, repo.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[oid]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) FindActiveDirect(ctx context.Context, participants []string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.Type != model.ConversationDirect || c.IsArchived || len(c.Participants) != len(participants) {
			continue
		}
		match := true
		for i := range participants {
			if c.Participants[i] != participants[i] {
				match = false
				break
			}
		}
		if match {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *memStore) Insert(ctx context.Context, conv *model.Conversation) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	cp := *conv
	s.conversations[conv.ID] = &cp
	return conv.ID, nil
}

func (s *memStore) UpdateLastMessage(ctx context.Context, conversationID, messageID primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return false, s.updateErr
	}
	c, ok := s.conversations[conversationID]
	if !ok || at.Before(c.LastActivity) {
		return false, nil
	}
	id := messageID
	c.LastMessage = &id
	c.LastActivity = at
	return true, nil
}

func (s *memStore) Archive(ctx context.Context, conversationID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return repo.ErrNotFound
	}
	c.IsArchived = true
	return nil
}

func (s *memStore) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, 0)
	for _, c := range s.conversations {
		if !c.IsArchived && c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (s *memStore) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, c := range s.conversations {
		if c.IsArchived || !c.HasParticipant(userID) {
			continue
		}
		for _, p := range c.OtherParticipants(userID) {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// ---- MessageRepository ----

type memMessages struct{ *memStore }

func (s memMessages) InsertMessage(ctx context.Context, msg *model.Message) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return primitive.NilObjectID, s.insertErr
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	cp := *msg
	cp.ReadBy = append([]model.ReadReceipt{}, msg.ReadBy...)
	s.messages = append(s.messages, &cp)
	return msg.ID, nil
}

func (s memMessages) FindMessage(ctx context.Context, conversationID, messageID primitive.ObjectID) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == messageID && m.ConversationID == conversationID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s memMessages) FilterMessages(ctx context.Context, conversationID primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.Message], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// newest first, insertion order breaking ties
	all := make([]model.Message, 0)
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.ConversationID == conversationID {
			cp := *m
			cp.ReadBy = append([]model.ReadReceipt{}, m.ReadBy...)
			all = append(all, cp)
		}
	}

	total := int64(len(all))
	start := (params.Page - 1) * params.PageSize
	end := start + params.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	pages := total / params.PageSize
	if total%params.PageSize > 0 {
		pages++
	}
	return &db.PaginatedResult[model.Message]{
		Data:       all[start:end],
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: pages,
	}, nil
}

func (s memMessages) MarkRead(ctx context.Context, conversationID primitive.ObjectID, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return 0, s.markErr
	}
	var modified int64
	for _, m := range s.messages {
		if m.ConversationID != conversationID || m.SenderID == userID || m.IsReadBy(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, model.ReadReceipt{UserID: userID, ReadAt: at})
		modified++
	}
	return modified, nil
}

func (s memMessages) CountUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.SenderID != userID && !m.IsReadBy(userID) {
			n++
		}
	}
	return n, nil
}

func (s memMessages) SoftDelete(ctx context.Context, messageID primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == messageID {
			m.IsDeleted = true
			m.DeletedAt = &at
			return nil
		}
	}
	return repo.ErrNotFound
}

func (s *memStore) storedMessages(conversationID primitive.ObjectID) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, 0)
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			cp := *m
			cp.ReadBy = append([]model.ReadReceipt{}, m.ReadBy...)
			out = append(out, cp)
		}
	}
	return out
}
