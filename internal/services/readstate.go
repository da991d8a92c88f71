package services

import (
	"github.com/google/uuid"

	"github.com/dum-man/messenger/internal/domain"
)

// ApplyReadState flips every participant's HasSeenLatestMessage flag as
// a side effect of a message send: true for the sender, false for
// everyone else. Sending is itself an implicit "seen everything so far"
// for the sender and an implicit "something new" for the rest.
//
// This is the single source of truth for unread indicators; the only
// other writer is an explicit mark-as-read on the caller's own row.
func ApplyReadState(participants []domain.Participant, senderID uuid.UUID) {
	for i := range participants {
		participants[i].HasSeenLatestMessage = participants[i].UserID == senderID
	}
}
