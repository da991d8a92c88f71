package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dum-man/messenger/internal/domain"
	messenger_errors "github.com/dum-man/messenger/pkg/errors"
)

var errStorage = errors.New("storage blew up")

// fakeConversationRepo is an in-memory ConversationRepository for unit
// tests. Services run it without a transaction (nil db).
type fakeConversationRepo struct {
	conversations map[uuid.UUID]*domain.Conversation
	users         map[uuid.UUID]domain.User

	failCreate bool
	failSave   bool
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[uuid.UUID]*domain.Conversation),
		users:         make(map[uuid.UUID]domain.User),
	}
}

func (r *fakeConversationRepo) addUser(u domain.User) {
	r.users[u.ID] = u
}

func (r *fakeConversationRepo) Create(_ context.Context, c *domain.Conversation) error {
	if r.failCreate {
		return errStorage
	}
	copied := *c
	copied.Participants = append([]domain.Participant(nil), c.Participants...)
	r.conversations[c.ID] = &copied
	return nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Conversation, error) {
	c, ok := r.conversations[id]
	if !ok {
		return domain.Conversation{}, messenger_errors.ErrNotFound
	}
	out := *c
	out.Participants = append([]domain.Participant(nil), c.Participants...)
	for i := range out.Participants {
		if u, ok := r.users[out.Participants[i].UserID]; ok {
			out.Participants[i].User = u
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) GetUserConversations(_ context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for id, c := range r.conversations {
		for _, p := range c.Participants {
			if p.UserID == userID {
				populated, _ := r.GetByID(context.Background(), id)
				out = append(out, populated)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) GetParticipant(_ context.Context, conversationID, userID uuid.UUID) (domain.Participant, error) {
	c, ok := r.conversations[conversationID]
	if !ok {
		return domain.Participant{}, messenger_errors.ErrParticipantNotFound
	}
	for _, p := range c.Participants {
		if p.UserID == userID {
			return p, nil
		}
	}
	return domain.Participant{}, messenger_errors.ErrParticipantNotFound
}

func (r *fakeConversationRepo) SetParticipantSeen(_ context.Context, participantID uuid.UUID, seen bool) error {
	for _, c := range r.conversations {
		for i := range c.Participants {
			if c.Participants[i].ID == participantID {
				c.Participants[i].HasSeenLatestMessage = seen
				return nil
			}
		}
	}
	return messenger_errors.ErrParticipantNotFound
}

func (r *fakeConversationRepo) SaveReadStates(_ context.Context, participants []domain.Participant) error {
	if r.failSave {
		return errStorage
	}
	for _, p := range participants {
		if err := r.SetParticipantSeen(context.Background(), p.ID, p.HasSeenLatestMessage); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeConversationRepo) SetLatestMessage(_ context.Context, conversationID, messageID uuid.UUID, at time.Time) error {
	c, ok := r.conversations[conversationID]
	if !ok {
		return messenger_errors.ErrNotFound
	}
	c.LatestMessageID = uuid.NullUUID{UUID: messageID, Valid: true}
	c.UpdatedAt = at
	return nil
}

func (r *fakeConversationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.conversations[id]; !ok {
		return messenger_errors.ErrNotFound
	}
	delete(r.conversations, id)
	return nil
}

type fakeMessageRepo struct {
	messages map[uuid.UUID]domain.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID]domain.Message)}
}

func (r *fakeMessageRepo) Create(_ context.Context, m *domain.Message) error {
	if _, exists := r.messages[m.ID]; exists {
		return messenger_errors.ErrAlreadyExists
	}
	r.messages[m.ID] = *m
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Message, error) {
	m, ok := r.messages[id]
	if !ok {
		return domain.Message{}, messenger_errors.ErrNotFound
	}
	return m, nil
}

func (r *fakeMessageRepo) GetConversationMessages(_ context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]domain.User)}
}

func (r *fakeUserRepo) addUser(id uuid.UUID, username string) {
	u := domain.User{ID: id}
	if username != "" {
		u.Username = &username
	}
	r.users[id] = u
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, messenger_errors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	for _, u := range r.users {
		if u.Username != nil && *u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, messenger_errors.ErrNotFound
}

func (r *fakeUserRepo) SearchUsers(_ context.Context, query string, excludeUserID uuid.UUID) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.ID == excludeUserID || u.Username == nil {
			continue
		}
		if strings.Contains(strings.ToLower(*u.Username), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateUsername(_ context.Context, userID uuid.UUID, username string) error {
	for _, u := range r.users {
		if u.ID != userID && u.Username != nil && *u.Username == username {
			return messenger_errors.ErrAlreadyExists
		}
	}
	u, ok := r.users[userID]
	if !ok {
		return messenger_errors.ErrNotFound
	}
	u.Username = &username
	r.users[userID] = u
	return nil
}
