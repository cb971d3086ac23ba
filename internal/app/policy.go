package app

import (
	"crypto/subtle"

	"quiz-session-service/internal/domain"
)

// CanManageSession reports whether user may start, advance or end a session.
func CanManageSession(user *domain.User, session domain.Session) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin() || (user.ID != "" && user.ID == session.CreatorID)
}

// CanManageQuiz reports whether user owns quiz or is an admin.
func CanManageQuiz(user *domain.User, quiz domain.Quiz) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin() || (user.ID != "" && user.ID == quiz.CreatorID)
}

// CanJoinSession is the play policy: anyone while pending, managers while
// active so they can test a running quiz, nobody once completed.
func CanJoinSession(user *domain.User, session domain.Session) bool {
	switch session.Status {
	case domain.StatusPending:
		return true
	case domain.StatusActive:
		return CanManageSession(user, session)
	default:
		return false
	}
}

// OwnsParticipant reports whether the caller may act for participant.
// Authenticated players are matched by user ID, anonymous ones by the
// token handed out on join.
func OwnsParticipant(user *domain.User, token string, participant domain.Participant) bool {
	if participant.UserID != "" {
		if user == nil {
			return false
		}
		return user.ID == participant.UserID || user.IsAdmin()
	}
	if token == "" || participant.Token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(participant.Token)) == 1
}
