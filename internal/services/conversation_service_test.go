package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dum-man/messenger/internal/domain"
	"github.com/dum-man/messenger/internal/events"
	"github.com/dum-man/messenger/internal/session"
	messenger_errors "github.com/dum-man/messenger/pkg/errors"
	"github.com/dum-man/messenger/pkg/logger"
)

func testSession(id uuid.UUID) *session.Session {
	return &session.Session{User: &session.User{ID: id, Username: "tester"}}
}

func testLogger() *logger.Logger {
	return logger.New(logger.DevelopmentMode)
}

// drainEvents collects whatever the subscription has buffered so far.
func drainEvents(sub *events.Subscription) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-sub.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func seedConversation(repo *fakeConversationRepo, userIDs ...uuid.UUID) domain.Conversation {
	conv := domain.Conversation{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for _, id := range userIDs {
		conv.Participants = append(conv.Participants, domain.Participant{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			UserID:         id,
		})
		repo.addUser(domain.User{ID: id})
	}
	_ = repo.Create(context.Background(), &conv)
	return conv
}

func TestConversationCreateSeedsReadState(t *testing.T) {
	repo := newFakeConversationRepo()
	bus := events.NewInProcessBus()
	sub, err := bus.Subscribe(events.AllTypes()...)
	require.NoError(t, err)

	creator := uuid.New()
	other := uuid.New()
	repo.addUser(domain.User{ID: creator})
	repo.addUser(domain.User{ID: other})

	svc := NewConversationService(nil, repo, bus, testLogger())
	id, err := svc.Create(context.Background(), testSession(creator), []uuid.UUID{creator, other})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	stored, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, stored.Participants, 2)
	for _, p := range stored.Participants {
		if p.UserID == creator {
			assert.True(t, p.HasSeenLatestMessage, "creator starts having seen the (absent) latest message")
		} else {
			assert.False(t, p.HasSeenLatestMessage)
		}
	}

	published := drainEvents(sub)
	require.Len(t, published, 1)
	created, ok := published[0].(events.ConversationCreated)
	require.True(t, ok)
	assert.Equal(t, id, created.ConversationID())
	assert.ElementsMatch(t, []uuid.UUID{creator, other}, created.ParticipantIDs())
}

func TestConversationCreateDeduplicatesParticipants(t *testing.T) {
	repo := newFakeConversationRepo()
	creator := uuid.New()
	repo.addUser(domain.User{ID: creator})

	svc := NewConversationService(nil, repo, events.NewInProcessBus(), testLogger())
	id, err := svc.Create(context.Background(), testSession(creator), []uuid.UUID{creator, creator, creator})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, stored.Participants, 1)
}

func TestConversationCreateValidation(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewConversationService(nil, repo, events.NewInProcessBus(), testLogger())

	_, err := svc.Create(context.Background(), nil, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, messenger_errors.ErrUnauthorized)

	_, err = svc.Create(context.Background(), testSession(uuid.New()), nil)
	assert.ErrorIs(t, err, messenger_errors.ErrInvalidInput)
}

func TestConversationCreateStorageFailurePublishesNothing(t *testing.T) {
	repo := newFakeConversationRepo()
	repo.failCreate = true
	bus := events.NewInProcessBus()
	sub, err := bus.Subscribe(events.AllTypes()...)
	require.NoError(t, err)

	svc := NewConversationService(nil, repo, bus, testLogger())
	_, err = svc.Create(context.Background(), testSession(uuid.New()), []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, messenger_errors.ErrOperationFailed)

	assert.Empty(t, drainEvents(sub))
}

func TestConversationMarkAsRead(t *testing.T) {
	repo := newFakeConversationRepo()
	user := uuid.New()
	conv := seedConversation(repo, user, uuid.New())

	svc := NewConversationService(nil, repo, events.NewInProcessBus(), testLogger())
	require.NoError(t, svc.MarkAsRead(context.Background(), testSession(user), user, conv.ID))

	p, err := repo.GetParticipant(context.Background(), conv.ID, user)
	require.NoError(t, err)
	assert.True(t, p.HasSeenLatestMessage)
}

func TestConversationMarkAsReadIdempotent(t *testing.T) {
	repo := newFakeConversationRepo()
	user := uuid.New()
	conv := seedConversation(repo, user)

	svc := NewConversationService(nil, repo, events.NewInProcessBus(), testLogger())
	require.NoError(t, svc.MarkAsRead(context.Background(), testSession(user), user, conv.ID))
	require.NoError(t, svc.MarkAsRead(context.Background(), testSession(user), user, conv.ID))
}

func TestConversationMarkAsReadOnlyOwnFlag(t *testing.T) {
	repo := newFakeConversationRepo()
	user := uuid.New()
	other := uuid.New()
	conv := seedConversation(repo, user, other)

	svc := NewConversationService(nil, repo, events.NewInProcessBus(), testLogger())
	err := svc.MarkAsRead(context.Background(), testSession(user), other, conv.ID)
	assert.ErrorIs(t, err, messenger_errors.ErrUnauthorized)
}

func TestConversationMarkAsReadMissingParticipant(t *testing.T) {
	repo := newFakeConversationRepo()
	outsider := uuid.New()
	conv := seedConversation(repo, uuid.New())

	svc := NewConversationService(nil, repo, events.NewInProcessBus(), testLogger())
	err := svc.MarkAsRead(context.Background(), testSession(outsider), outsider, conv.ID)
	assert.ErrorIs(t, err, messenger_errors.ErrParticipantNotFound)
}

func TestConversationDeletePublishesParticipantSnapshot(t *testing.T) {
	repo := newFakeConversationRepo()
	bus := events.NewInProcessBus()
	sub, err := bus.Subscribe(events.AllTypes()...)
	require.NoError(t, err)

	user := uuid.New()
	other := uuid.New()
	conv := seedConversation(repo, user, other)

	svc := NewConversationService(nil, repo, bus, testLogger())
	require.NoError(t, svc.Delete(context.Background(), testSession(user), conv.ID))

	_, err = repo.GetByID(context.Background(), conv.ID)
	assert.ErrorIs(t, err, messenger_errors.ErrNotFound)

	published := drainEvents(sub)
	require.Len(t, published, 1)
	deleted, ok := published[0].(events.ConversationDeleted)
	require.True(t, ok)
	assert.Equal(t, conv.ID, deleted.ConversationID())
	// The participant set is snapshotted before the rows go away, so
	// routing still works for everyone who was in the conversation.
	assert.ElementsMatch(t, []uuid.UUID{user, other}, deleted.ParticipantIDs())
}

func TestConversationDeleteNotFound(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewConversationService(nil, repo, events.NewInProcessBus(), testLogger())

	err := svc.Delete(context.Background(), testSession(uuid.New()), uuid.New())
	assert.ErrorIs(t, err, messenger_errors.ErrConversationNotFound)
}

// Full read-state lifecycle across both services: create seeds the
// creator as seen, a send flips everyone, an explicit mark-as-read
// restores the reader's row.
func TestReadStateLifecycle(t *testing.T) {
	convRepo := newFakeConversationRepo()
	msgRepo := newFakeMessageRepo()
	bus := events.NewInProcessBus()

	alice := uuid.New()
	bob := uuid.New()
	convRepo.addUser(domain.User{ID: alice})
	convRepo.addUser(domain.User{ID: bob})

	convSvc := NewConversationService(nil, convRepo, bus, testLogger())
	msgSvc := NewMessageService(nil, msgRepo, convRepo, bus, testLogger())

	convID, err := convSvc.Create(context.Background(), testSession(alice), []uuid.UUID{alice, bob})
	require.NoError(t, err)

	seen := func(userID uuid.UUID) bool {
		p, err := convRepo.GetParticipant(context.Background(), convID, userID)
		require.NoError(t, err)
		return p.HasSeenLatestMessage
	}

	assert.True(t, seen(alice))
	assert.False(t, seen(bob))

	require.NoError(t, msgSvc.Send(context.Background(), testSession(bob), SendMessageInput{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       bob,
		Body:           "hey",
	}))
	assert.False(t, seen(alice))
	assert.True(t, seen(bob))

	require.NoError(t, convSvc.MarkAsRead(context.Background(), testSession(alice), alice, convID))
	assert.True(t, seen(alice))
	assert.True(t, seen(bob))
}

func TestConversationList(t *testing.T) {
	repo := newFakeConversationRepo()
	user := uuid.New()
	seedConversation(repo, user, uuid.New())
	seedConversation(repo, uuid.New(), uuid.New())

	svc := NewConversationService(nil, repo, events.NewInProcessBus(), testLogger())
	convs, err := svc.List(context.Background(), testSession(user))
	require.NoError(t, err)
	assert.Len(t, convs, 1)

	_, err = svc.List(context.Background(), &session.Session{})
	assert.ErrorIs(t, err, messenger_errors.ErrUnauthorized)
}
