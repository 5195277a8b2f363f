package store

import "time"

// Role of a user inside a chat.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ChatType discriminates conversation semantics: direct chats have exactly
// the two participants, channels restrict writes to owner/admin.
type ChatType string

const (
	ChatDirect  ChatType = "direct"
	ChatGroup   ChatType = "group"
	ChatChannel ChatType = "channel"
)

// Message types.
const (
	MsgText    = "text"
	MsgFile    = "file"
	MsgVoice   = "voice"
	MsgSticker = "sticker"
)

// Last-seen visibility settings.
const (
	VisibilityEveryone   = "everyone"
	VisibilityApproxOnly = "approx_only"
	VisibilityNobody     = "nobody"
)

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	DisplayName  *string    `json:"display_name"`
	Bio          *string    `json:"bio,omitempty"`
	IsAdmin      bool       `json:"is_admin"`
	IsBlocked    bool       `json:"-"`
	IsActive     bool       `json:"-"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	AvatarFileID *int64     `json:"-"`
	AvatarBucket *string    `json:"-"`
	AvatarKey    *string    `json:"-"`
}

type Credentials struct {
	UserID       int64
	PasswordHash string
	IsAdmin      bool
	IsBlocked    bool
	IsActive     bool
}

type Chat struct {
	ID           int64     `json:"id"`
	Type         ChatType  `json:"type"`
	Name         *string   `json:"name,omitempty"`
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	PublicName   *string   `json:"public_name,omitempty"`
	OwnerID      int64     `json:"owner_id"`
	AvatarFileID *int64    `json:"-"`
	AvatarBucket *string   `json:"-"`
	AvatarKey    *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChatSummary is one row of the sidebar listing: the chat plus per-viewer
// state and a preview of the newest message.
type ChatSummary struct {
	Chat
	Role        Role       `json:"role"`
	LastPreview *string    `json:"last_preview"`
	LastType    *string    `json:"last_type"`
	LastAt      *time.Time `json:"last_at"`
	UnreadCount int64      `json:"unread_count"`
	IsFavorite  bool       `json:"is_favorite"`
	IsArchived  bool       `json:"is_archived"`
	IsPinned    bool       `json:"is_pinned"`
	MutedUntil  *time.Time `json:"muted_until,omitempty"`
	MemberCount int64      `json:"member_count"`
}

type Member struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Message is the core row, used by the authorization predicates.
type Message struct {
	ID        int64
	ChatID    int64
	SenderID  int64
	Content   *string
	Type      string
	CreatedAt time.Time
	UpdatedAt *time.Time
	IsEdited  bool
	IsDeleted bool
	ReplyTo   *int64
	FileID    *int64
	StickerID *int64
	Duration  *int
}

// ObjectRef locates a blob in object storage; the HTTP layer turns it into
// a pre-signed URL at serialization time.
type ObjectRef struct {
	Bucket string
	Key    string
}

// ReplyPreview is the inline quote attached to a reply message.
type ReplyPreview struct {
	MessageID  int64   `json:"message_id"`
	Content    *string `json:"content"`
	Type       string  `json:"message_type"`
	SenderName string  `json:"sender_name"`
}

// ForwardOrigin carries the forwarded_from_* columns.
type ForwardOrigin struct {
	ChatID      *int64  `json:"chat_id,omitempty"`
	MessageID   *int64  `json:"message_id,omitempty"`
	UserID      *int64  `json:"user_id,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
}

// EnrichedMessage is a message row joined with sender profile, sticker and
// attachment references, and the reply-to preview.
type EnrichedMessage struct {
	ID                int64
	ChatID            int64
	SenderID          int64
	Content           *string
	Type              string
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	IsEdited          bool
	ReplyTo           *ReplyPreview
	Forwarded         *ForwardOrigin
	FileID            *int64
	StickerID         *int64
	Duration          *int
	SenderUsername    string
	SenderDisplayName string
	SenderAvatar      *ObjectRef
	StickerLabel      *string
	Sticker           *ObjectRef
	Attachment        *ObjectRef
}

// Page selects a history window. Zero values mean "newest".
type Page struct {
	AfterID  int64
	BeforeID int64
	Limit    int
}

type ReactionGroup struct {
	MessageID int64  `json:"message_id"`
	Emoji     string `json:"emoji"`
	Count     int64  `json:"count"`
	Me        bool   `json:"me"`
}

type PinnedMessage struct {
	MessageID int64     `json:"message_id"`
	PinnedBy  int64     `json:"pinned_by"`
	PinnedAt  time.Time `json:"pinned_at"`
}

type ReadReceipt struct {
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	LastReadMsgID int64     `json:"last_read_msg_id"`
	ReadAt        time.Time `json:"read_at"`
}

type Invite struct {
	Token     string     `json:"token"`
	ChatID    int64      `json:"chat_id"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// InvitePreview is what an invitee sees before joining.
type InvitePreview struct {
	ChatID      int64   `json:"chat_id"`
	Title       *string `json:"title"`
	Type        ChatType `json:"type"`
	MemberCount int64   `json:"member_count"`
	Revoked     bool    `json:"-"`
}

type Settings struct {
	Theme                string `json:"theme"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	Language             string `json:"language"`
	ReadReceiptsEnabled  bool   `json:"read_receipts_enabled"`
	LastSeenVisibility   string `json:"last_seen_visibility"`
}

type File struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"-"`
	Bucket      string    `json:"-"`
	ObjectKey   string    `json:"-"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

type Sticker struct {
	ID       int64  `json:"id"`
	PackName string `json:"pack_name"`
	Label    string `json:"label"`
	Bucket   string `json:"-"`
	Key      string `json:"-"`
}
