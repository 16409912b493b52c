package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"campus-erp/internal/domain"
)

type ForumRepository interface {
	CreateTopic(ctx context.Context, topic *domain.ForumTopic) error
	GetTopic(ctx context.Context, id uuid.UUID) (*domain.ForumTopic, error)
	ListTopics(ctx context.Context, filter domain.TopicFilter, params domain.PaginationParams) ([]domain.ForumTopic, int64, error)
	SetTopicLocked(ctx context.Context, id uuid.UUID, locked bool, now time.Time) error
	AdjustTopicPosts(ctx context.Context, topicID uuid.UUID, delta int64) error

	CreatePost(ctx context.Context, post *domain.ForumPost) error
	GetPost(ctx context.Context, id uuid.UUID) (*domain.ForumPost, error)
	ListPosts(ctx context.Context, topicID uuid.UUID, params domain.PaginationParams) ([]domain.ForumPost, int64, error)
	UpdatePostBody(ctx context.Context, id uuid.UUID, body string, now time.Time) error
	DeletePost(ctx context.Context, id uuid.UUID) error
	CountPosts(ctx context.Context, topicID uuid.UUID) (int64, error)

	FindLike(ctx context.Context, target domain.LikeTarget, targetID uuid.UUID, user domain.Actor) (*domain.ForumLike, error)
	CreateLike(ctx context.Context, like *domain.ForumLike) error
	DeleteLike(ctx context.Context, id uuid.UUID) error
	DeleteLikesForTarget(ctx context.Context, target domain.LikeTarget, targetID uuid.UUID) error
	AdjustLikes(ctx context.Context, target domain.LikeTarget, targetID uuid.UUID, delta int64) (int64, error)
	CountLikes(ctx context.Context, target domain.LikeTarget, targetID uuid.UUID) (int64, error)

	UpsertSubscription(ctx context.Context, sub *domain.ForumSubscription) error
	GetSubscription(ctx context.Context, topicID uuid.UUID, user domain.Actor) (*domain.ForumSubscription, error)
	ListActiveSubscribers(ctx context.Context, topicID uuid.UUID) ([]domain.Actor, error)
}

type forumRepository struct {
	db DBTX
}

func NewForumRepository(db DBTX) ForumRepository {
	return &forumRepository{db: db}
}

func likeTable(target domain.LikeTarget) string {
	if target == domain.LikePost {
		return "forum_posts"
	}
	return "forum_topics"
}

func (r *forumRepository) CreateTopic(ctx context.Context, t *domain.ForumTopic) error {
	query := r.db.Rebind(`
		INSERT INTO forum_topics (id, title, body, author_id, author_type, group_name, posts_count, likes_count, is_locked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Body, t.AuthorID, t.AuthorType, t.GroupName, t.PostsCount, t.LikesCount, t.IsLocked, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *forumRepository) GetTopic(ctx context.Context, id uuid.UUID) (*domain.ForumTopic, error) {
	var t domain.ForumTopic
	if err := r.db.GetContext(ctx, &t, r.db.Rebind(`SELECT * FROM forum_topics WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *forumRepository) ListTopics(ctx context.Context, filter domain.TopicFilter, params domain.PaginationParams) ([]domain.ForumTopic, int64, error) {
	params.Validate()

	var conditions []string
	var args []interface{}
	if filter.GroupName != nil {
		conditions = append(conditions, "group_name = ?")
		args = append(args, *filter.GroupName)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(LOWER(title) LIKE ? OR LOWER(body) LIKE ?)")
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM forum_topics"+where), args...); err != nil {
		return nil, 0, err
	}

	topics := []domain.ForumTopic{}
	query := r.db.Rebind("SELECT * FROM forum_topics" + where + " ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?")
	err := r.db.SelectContext(ctx, &topics, query, append(args, params.PageSize, params.Offset())...)
	return topics, total, err
}

func (r *forumRepository) SetTopicLocked(ctx context.Context, id uuid.UUID, locked bool, now time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE forum_topics SET is_locked = ?, updated_at = ? WHERE id = ?`), locked, now, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *forumRepository) AdjustTopicPosts(ctx context.Context, topicID uuid.UUID, delta int64) error {
	query := r.db.Rebind(`UPDATE forum_topics SET posts_count = posts_count + ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, delta, topicID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *forumRepository) CreatePost(ctx context.Context, p *domain.ForumPost) error {
	query := r.db.Rebind(`
		INSERT INTO forum_posts (id, topic_id, author_id, author_type, parent_post_id, body, likes_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.TopicID, p.AuthorID, p.AuthorType, p.ParentPostID, p.Body, p.LikesCount, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *forumRepository) GetPost(ctx context.Context, id uuid.UUID) (*domain.ForumPost, error) {
	var p domain.ForumPost
	if err := r.db.GetContext(ctx, &p, r.db.Rebind(`SELECT * FROM forum_posts WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *forumRepository) ListPosts(ctx context.Context, topicID uuid.UUID, params domain.PaginationParams) ([]domain.ForumPost, int64, error) {
	params.Validate()

	total, err := r.CountPosts(ctx, topicID)
	if err != nil {
		return nil, 0, err
	}

	posts := []domain.ForumPost{}
	query := r.db.Rebind(`SELECT * FROM forum_posts WHERE topic_id = ? ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`)
	err = r.db.SelectContext(ctx, &posts, query, topicID, params.PageSize, params.Offset())
	return posts, total, err
}

func (r *forumRepository) UpdatePostBody(ctx context.Context, id uuid.UUID, body string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE forum_posts SET body = ?, updated_at = ? WHERE id = ?`), body, now, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *forumRepository) DeletePost(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM forum_posts WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *forumRepository) CountPosts(ctx context.Context, topicID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM forum_posts WHERE topic_id = ?`), topicID)
	return count, err
}

func (r *forumRepository) FindLike(ctx context.Context, target domain.LikeTarget, targetID uuid.UUID, user domain.Actor) (*domain.ForumLike, error) {
	var like domain.ForumLike
	query := r.db.Rebind(`
		SELECT * FROM forum_likes
		WHERE target_type = ? AND target_id = ? AND user_id = ? AND user_type = ?`)
	if err := r.db.GetContext(ctx, &like, query, target, targetID, user.ID, user.Type); err != nil {
		return nil, notFound(err)
	}
	return &like, nil
}

func (r *forumRepository) CreateLike(ctx context.Context, l *domain.ForumLike) error {
	query := r.db.Rebind(`
		INSERT INTO forum_likes (id, target_type, target_id, user_id, user_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, l.ID, l.TargetType, l.TargetID, l.UserID, l.UserType, l.CreatedAt)
	return err
}

func (r *forumRepository) DeleteLike(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM forum_likes WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *forumRepository) DeleteLikesForTarget(ctx context.Context, target domain.LikeTarget, targetID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM forum_likes WHERE target_type = ? AND target_id = ?`), target, targetID)
	return err
}

// AdjustLikes applies delta to the target's likes_count in place and returns
// the stored value afterwards.
func (r *forumRepository) AdjustLikes(ctx context.Context, target domain.LikeTarget, targetID uuid.UUID, delta int64) (int64, error) {
	table := likeTable(target)
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE `+table+` SET likes_count = likes_count + ? WHERE id = ?`), delta, targetID)
	if err != nil {
		return 0, err
	}
	if err := requireAffected(res); err != nil {
		return 0, err
	}

	var count int64
	err = r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT likes_count FROM `+table+` WHERE id = ?`), targetID)
	return count, err
}

func (r *forumRepository) CountLikes(ctx context.Context, target domain.LikeTarget, targetID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM forum_likes WHERE target_type = ? AND target_id = ?`), target, targetID)
	return count, err
}

func (r *forumRepository) UpsertSubscription(ctx context.Context, s *domain.ForumSubscription) error {
	query := r.db.Rebind(`
		INSERT INTO forum_subscriptions (id, topic_id, user_id, user_type, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (topic_id, user_id, user_type)
		DO UPDATE SET is_active = excluded.is_active, updated_at = excluded.updated_at`)
	_, err := r.db.ExecContext(ctx, query, s.ID, s.TopicID, s.UserID, s.UserType, s.IsActive, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *forumRepository) GetSubscription(ctx context.Context, topicID uuid.UUID, user domain.Actor) (*domain.ForumSubscription, error) {
	var s domain.ForumSubscription
	query := r.db.Rebind(`SELECT * FROM forum_subscriptions WHERE topic_id = ? AND user_id = ? AND user_type = ?`)
	if err := r.db.GetContext(ctx, &s, query, topicID, user.ID, user.Type); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *forumRepository) ListActiveSubscribers(ctx context.Context, topicID uuid.UUID) ([]domain.Actor, error) {
	subscribers := []domain.Actor{}
	query := r.db.Rebind(`
		SELECT user_id, user_type FROM forum_subscriptions
		WHERE topic_id = ? AND is_active = ?
		ORDER BY created_at ASC, id ASC`)
	err := r.db.SelectContext(ctx, &subscribers, query, topicID, true)
	return subscribers, err
}
