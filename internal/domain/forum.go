package domain

import (
	"time"

	"github.com/google/uuid"
)

// ForumTopic carries denormalized counters; PostsCount and LikesCount must
// equal the number of rows in forum_posts and forum_likes for the topic.
type ForumTopic struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Body       string    `json:"body" db:"body"`
	AuthorID   uuid.UUID `json:"author_id" db:"author_id"`
	AuthorType UserType  `json:"author_type" db:"author_type"`
	GroupName  *string   `json:"group_name,omitempty" db:"group_name"`
	PostsCount int64     `json:"posts_count" db:"posts_count"`
	LikesCount int64     `json:"likes_count" db:"likes_count"`
	IsLocked   bool      `json:"is_locked" db:"is_locked"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func (t *ForumTopic) Author() Actor {
	return Actor{ID: t.AuthorID, Type: t.AuthorType}
}

type ForumPost struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TopicID      uuid.UUID  `json:"topic_id" db:"topic_id"`
	AuthorID     uuid.UUID  `json:"author_id" db:"author_id"`
	AuthorType   UserType   `json:"author_type" db:"author_type"`
	ParentPostID *uuid.UUID `json:"parent_post_id,omitempty" db:"parent_post_id"`
	Body         string     `json:"body" db:"body"`
	LikesCount   int64      `json:"likes_count" db:"likes_count"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

func (p *ForumPost) Author() Actor {
	return Actor{ID: p.AuthorID, Type: p.AuthorType}
}

type LikeTarget string

const (
	LikeTopic LikeTarget = "topic"
	LikePost  LikeTarget = "post"
)

func (t LikeTarget) IsValid() bool {
	return t == LikeTopic || t == LikePost
}

type ForumLike struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TargetType LikeTarget `json:"target_type" db:"target_type"`
	TargetID   uuid.UUID  `json:"target_id" db:"target_id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	UserType   UserType   `json:"user_type" db:"user_type"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

type ForumSubscription struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TopicID   uuid.UUID `json:"topic_id" db:"topic_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	UserType  UserType  `json:"user_type" db:"user_type"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateTopicInput struct {
	Title     string  `json:"title" validate:"required,min=3,max=255"`
	Body      string  `json:"body" validate:"required,max=20000"`
	GroupName *string `json:"group_name,omitempty" validate:"omitempty,max=64"`
}

type CreatePostInput struct {
	Body         string     `json:"body" validate:"required,min=1,max=20000"`
	ParentPostID *uuid.UUID `json:"parent_post_id,omitempty"`
}

type UpdatePostInput struct {
	Body string `json:"body" validate:"required,min=1,max=20000"`
}

type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

type TopicFilter struct {
	GroupName *string
	Search    string
}
