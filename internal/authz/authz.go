// Package authz centralizes the chat permission rules. Handlers ask the
// Oracle yes/no questions instead of reimplementing role checks inline.
package authz

import (
	"context"
	"errors"
	"time"

	"github.com/wirechat/wirechat/internal/store"
)

// DeleteWindow is how long after sending a message it can still be deleted
// for everyone. Applies to admins as well.
const DeleteWindow = 48 * time.Hour

// ErrDenied is returned by predicates that report why access failed.
var ErrDenied = errors.New("access denied")

// Store is the slice of the storage layer the oracle needs.
type Store interface {
	Membership(ctx context.Context, chatID, userID int64) (store.Role, error)
	ChatByID(ctx context.Context, id int64) (*store.Chat, error)
	MessageMeta(ctx context.Context, id int64) (*store.Message, error)
}

type Oracle struct {
	store Store
	now   func() time.Time
}

func New(s Store) *Oracle {
	return &Oracle{store: s, now: time.Now}
}

// IsMember reports whether the user belongs to the chat. Store failures
// other than a missing membership propagate so handlers can return 500
// instead of a misleading 403.
func (o *Oracle) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	_, err := o.store.Membership(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (o *Oracle) roleIn(ctx context.Context, chatID, userID int64, roles ...store.Role) (bool, error) {
	role, err := o.store.Membership(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, r := range roles {
		if role == r {
			return true, nil
		}
	}
	return false, nil
}

// CanPost allows any member to write in direct and group chats; channels
// restrict posting to owner and admins.
func (o *Oracle) CanPost(ctx context.Context, chatID, userID int64) (bool, error) {
	chat, err := o.store.ChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if chat.Type == store.ChatChannel {
		return o.roleIn(ctx, chatID, userID, store.RoleOwner, store.RoleAdmin)
	}
	return o.IsMember(ctx, chatID, userID)
}

// CanManageChat covers renaming, avatar changes, member role changes and
// deletion of the chat itself.
func (o *Oracle) CanManageChat(ctx context.Context, chatID, userID int64) (bool, error) {
	return o.roleIn(ctx, chatID, userID, store.RoleOwner, store.RoleAdmin)
}

// CanPin: any member may pin in direct and group chats; channels restrict
// pinning to owner and admins, same as posting.
func (o *Oracle) CanPin(ctx context.Context, chatID, userID int64) (bool, error) {
	chat, err := o.store.ChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if chat.Type == store.ChatChannel {
		return o.roleIn(ctx, chatID, userID, store.RoleOwner, store.RoleAdmin)
	}
	return o.IsMember(ctx, chatID, userID)
}

// CanInvite: direct chats never grow, so invites exist only for groups and
// channels, and only managers mint them.
func (o *Oracle) CanInvite(ctx context.Context, chatID, userID int64) (bool, error) {
	chat, err := o.store.ChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if chat.Type == store.ChatDirect {
		return false, nil
	}
	return o.CanManageChat(ctx, chatID, userID)
}

// CanEdit allows the sender to edit their own text messages. Deleted
// messages and non-text types are immutable.
func (o *Oracle) CanEdit(ctx context.Context, userID int64, msg *store.Message) bool {
	return msg.SenderID == userID && msg.Type == store.MsgText && !msg.IsDeleted
}

// CanDeleteForEveryone allows the sender, or a chat owner/admin, to remove a
// message for all members while it is younger than DeleteWindow. Outside the
// window nobody can, server admins included.
func (o *Oracle) CanDeleteForEveryone(ctx context.Context, userID int64, msg *store.Message) (bool, error) {
	if o.now().Sub(msg.CreatedAt) > DeleteWindow {
		return false, nil
	}
	if msg.SenderID == userID {
		return true, nil
	}
	return o.roleIn(ctx, msg.ChatID, userID, store.RoleOwner, store.RoleAdmin)
}
