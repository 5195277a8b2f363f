package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wirechat/wirechat/internal/store"
)

type fakeStore struct {
	roles map[[2]int64]store.Role
	chats map[int64]*store.Chat
	msgs  map[int64]*store.Message
	err   error
}

func (f *fakeStore) Membership(_ context.Context, chatID, userID int64) (store.Role, error) {
	if f.err != nil {
		return "", f.err
	}
	role, ok := f.roles[[2]int64{chatID, userID}]
	if !ok {
		return "", store.ErrNotFound
	}
	return role, nil
}

func (f *fakeStore) ChatByID(_ context.Context, id int64) (*store.Chat, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.chats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) MessageMeta(_ context.Context, id int64) (*store.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.msgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func newFixture() *fakeStore {
	return &fakeStore{
		roles: map[[2]int64]store.Role{
			{1, 10}: store.RoleOwner,
			{1, 11}: store.RoleAdmin,
			{1, 12}: store.RoleMember,
			{2, 10}: store.RoleOwner,
			{2, 12}: store.RoleMember,
		},
		chats: map[int64]*store.Chat{
			1: {ID: 1, Type: store.ChatGroup},
			2: {ID: 2, Type: store.ChatChannel},
			3: {ID: 3, Type: store.ChatDirect},
		},
	}
}

func TestIsMember(t *testing.T) {
	o := New(newFixture())
	ctx := context.Background()

	if ok, _ := o.IsMember(ctx, 1, 12); !ok {
		t.Error("member reported as non-member")
	}
	if ok, _ := o.IsMember(ctx, 1, 99); ok {
		t.Error("stranger reported as member")
	}
}

func TestIsMember_PropagatesStoreErrors(t *testing.T) {
	f := newFixture()
	f.err = errors.New("connection refused")
	o := New(f)

	ok, err := o.IsMember(context.Background(), 1, 12)
	if ok || err == nil {
		t.Errorf("want deny+error, got ok=%v err=%v", ok, err)
	}
}

func TestCanPost_ChannelRestrictsToStaff(t *testing.T) {
	o := New(newFixture())
	ctx := context.Background()

	cases := []struct {
		name   string
		chatID int64
		userID int64
		want   bool
	}{
		{"group member posts", 1, 12, true},
		{"group stranger denied", 1, 99, false},
		{"channel owner posts", 2, 10, true},
		{"channel member denied", 2, 12, false},
		{"missing chat denied", 404, 10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := o.CanPost(ctx, tc.chatID, tc.userID)
			if err != nil {
				t.Fatalf("CanPost: %v", err)
			}
			if got != tc.want {
				t.Errorf("CanPost = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanManageChat(t *testing.T) {
	o := New(newFixture())
	ctx := context.Background()

	for _, userID := range []int64{10, 11} {
		if ok, _ := o.CanManageChat(ctx, 1, userID); !ok {
			t.Errorf("staff %d cannot manage", userID)
		}
	}
	if ok, _ := o.CanManageChat(ctx, 1, 12); ok {
		t.Error("plain member can manage")
	}
}

func TestCanPin_MembersExceptInChannels(t *testing.T) {
	o := New(newFixture())
	ctx := context.Background()

	cases := []struct {
		name   string
		chatID int64
		userID int64
		want   bool
	}{
		{"group member pins", 1, 12, true},
		{"group admin pins", 1, 11, true},
		{"group stranger denied", 1, 99, false},
		{"channel owner pins", 2, 10, true},
		{"channel member denied", 2, 12, false},
		{"missing chat denied", 404, 10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := o.CanPin(ctx, tc.chatID, tc.userID)
			if err != nil {
				t.Fatalf("CanPin: %v", err)
			}
			if got != tc.want {
				t.Errorf("CanPin = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanInvite_NeverForDirectChats(t *testing.T) {
	f := newFixture()
	f.roles[[2]int64{3, 10}] = store.RoleOwner
	o := New(f)

	if ok, _ := o.CanInvite(context.Background(), 3, 10); ok {
		t.Error("direct chat allowed invites")
	}
	if ok, _ := o.CanInvite(context.Background(), 1, 10); !ok {
		t.Error("group owner denied invites")
	}
	if ok, _ := o.CanInvite(context.Background(), 1, 12); ok {
		t.Error("plain member allowed invites")
	}
}

func TestCanEdit(t *testing.T) {
	o := New(newFixture())

	text := &store.Message{SenderID: 12, Type: store.MsgText}
	if !o.CanEdit(context.Background(), 12, text) {
		t.Error("sender cannot edit own text message")
	}
	if o.CanEdit(context.Background(), 11, text) {
		t.Error("admin can edit someone else's message")
	}

	sticker := &store.Message{SenderID: 12, Type: store.MsgSticker}
	if o.CanEdit(context.Background(), 12, sticker) {
		t.Error("non-text message editable")
	}

	deleted := &store.Message{SenderID: 12, Type: store.MsgText, IsDeleted: true}
	if o.CanEdit(context.Background(), 12, deleted) {
		t.Error("deleted message editable")
	}
}

func TestCanDeleteForEveryone_Window(t *testing.T) {
	o := New(newFixture())
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }
	ctx := context.Background()

	fresh := &store.Message{ChatID: 1, SenderID: 12, CreatedAt: now.Add(-time.Hour)}
	stale := &store.Message{ChatID: 1, SenderID: 12, CreatedAt: now.Add(-DeleteWindow - time.Minute)}
	edge := &store.Message{ChatID: 1, SenderID: 12, CreatedAt: now.Add(-DeleteWindow)}

	if ok, _ := o.CanDeleteForEveryone(ctx, 12, fresh); !ok {
		t.Error("sender cannot delete fresh message")
	}
	if ok, _ := o.CanDeleteForEveryone(ctx, 11, fresh); !ok {
		t.Error("admin cannot delete fresh message")
	}
	if ok, _ := o.CanDeleteForEveryone(ctx, 99, fresh); ok {
		t.Error("stranger can delete")
	}
	if ok, _ := o.CanDeleteForEveryone(ctx, 12, edge); !ok {
		t.Error("exactly-at-window delete denied")
	}

	// Nobody gets past the window, chat staff included.
	for _, userID := range []int64{10, 11, 12} {
		if ok, _ := o.CanDeleteForEveryone(ctx, userID, stale); ok {
			t.Errorf("user %d deleted outside the window", userID)
		}
	}
}
