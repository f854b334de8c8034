package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"postforum/models"
)

const postColumns = `
	p.id, p.type, p.status, p.title, p.content, p.author_id, u.name,
	COALESCE(p.parent_id, 0), COALESCE(p.root_id, p.id), p.group_id,
	p.view_count, p.vote_count, p.reply_count, p.created_at, p.updated_at`

// PostQuery is a lazily evaluated post filter. Build one with the Store methods,
// then Count it and Fetch a page of it.
type PostQuery struct {
	store *Store
	where []string
	args  []any
	order string
}

func (s *Store) posts() *PostQuery {
	return &PostQuery{store: s, order: "p.updated_at DESC, p.id DESC"}
}

func (q *PostQuery) filter(cond string, args ...any) *PostQuery {
	q.where = append(q.where, cond)
	q.args = append(q.args, args...)
	return q
}

// visibleTo hides deleted posts from everyone except moderators.
func (q *PostQuery) visibleTo(viewer *models.User) *PostQuery {
	if viewer != nil && viewer.IsModerator {
		return q
	}
	return q.filter("p.status != ?", models.StatusDeleted)
}

func (q *PostQuery) whereClause() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func (q *PostQuery) Count(ctx context.Context) (int, error) {
	var n int
	stmt := "SELECT COUNT(*) FROM posts p" + q.whereClause()
	if err := q.store.db.QueryRowContext(ctx, stmt, q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// Fetch returns at most limit posts starting at offset, with their tags attached.
func (q *PostQuery) Fetch(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	stmt := "SELECT" + postColumns + " FROM posts p INNER JOIN users u ON u.id = p.author_id" +
		q.whereClause() + " ORDER BY " + q.order + " LIMIT ? OFFSET ?"
	args := append(append([]any{}, q.args...), limit, offset)

	posts, err := q.store.queryPosts(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	if err := q.store.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) queryPosts(ctx context.Context, stmt string, args ...any) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Type, &p.Status, &p.Title, &p.Content, &p.AuthorID, &p.AuthorName,
		&p.ParentID, &p.RootID, &p.GroupID, &p.ViewCount, &p.VoteCount, &p.ReplyCount,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ToplevelPosts lists the thread starters of a group.
func (s *Store) ToplevelPosts(viewer *models.User, groupID int) *PostQuery {
	return s.posts().
		filter("p.parent_id IS NULL").
		filter("p.group_id = ?", groupID).
		visibleTo(viewer)
}

// PostsByTags narrows ToplevelPosts to posts carrying every one of names.
func (s *Store) PostsByTags(viewer *models.User, groupID int, names []string) *PostQuery {
	names = uniqueNames(names)
	q := s.ToplevelPosts(viewer, groupID)
	if len(names) == 0 {
		return q.filter("0 = 1")
	}

	args := make([]any, 0, len(names)+1)
	for _, n := range names {
		args = append(args, n)
	}
	args = append(args, len(names))
	return q.filter(`p.id IN (
		SELECT pt.post_id FROM post_tags pt
		INNER JOIN tags t ON t.id = pt.tag_id
		WHERE t.name IN (`+placeholders(len(names))+`)
		GROUP BY pt.post_id
		HAVING COUNT(DISTINCT t.id) = ?)`, args...)
}

// AllPosts lists every post the author wrote in the group, replies included.
func (s *Store) AllPosts(author *models.User, groupID int) *PostQuery {
	return s.posts().
		filter("p.author_id = ?", author.ID).
		filter("p.group_id = ?", groupID).
		filter("p.status != ?", models.StatusDeleted)
}

// PostsByVote lists the posts voter cast a vote of any of types on.
func (s *Store) PostsByVote(voter *models.User, groupID int, types []int) *PostQuery {
	q := s.posts().filter("p.group_id = ?", groupID).filter("p.status != ?", models.StatusDeleted)
	if len(types) == 0 {
		return q.filter("0 = 1")
	}
	args := []any{voter.ID}
	for _, t := range types {
		args = append(args, t)
	}
	return q.filter(`p.id IN (
		SELECT v.post_id FROM votes v
		WHERE v.author_id = ? AND v.type IN (`+placeholders(len(types))+`))`, args...)
}

// MyBookmarks lists the posts user bookmarked.
func (s *Store) MyBookmarks(user *models.User, groupID int) *PostQuery {
	return s.PostsByVote(user, groupID, []int{models.VoteBookmark})
}

// PostByID loads a single post regardless of status.
func (s *Store) PostByID(ctx context.Context, id int) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+postColumns+
		" FROM posts p INNER JOIN users u ON u.id = p.author_id WHERE p.id = ?", id)
	p, err := scanPost(row)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.attachTags(ctx, []*models.Post{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// Thread returns the descendants of root in creation order. Deleted replies
// are only returned to moderators.
func (s *Store) Thread(ctx context.Context, root *models.Post, viewer *models.User) ([]*models.Post, error) {
	q := s.posts().filter("p.root_id = ?", root.ID).filter("p.id != ?", root.ID).visibleTo(viewer)
	stmt := "SELECT" + postColumns + " FROM posts p INNER JOIN users u ON u.id = p.author_id" +
		q.whereClause() + " ORDER BY p.created_at, p.id"
	return s.queryPosts(ctx, stmt, q.args...)
}

// NewPost holds what a caller supplies to create a post.
type NewPost struct {
	Type     int
	Title    string
	Content  string
	AuthorID int
	ParentID int
	GroupID  int
	Tags     []string
}

// CreatePost inserts a post. Replies inherit the root and group of their parent
// and bump the root's reply count and edit time.
func (s *Store) CreatePost(ctx context.Context, np NewPost) (*models.Post, error) {
	if np.ParentID == 0 && !models.IsToplevelType(np.Type) {
		return nil, ErrNoParent
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := s.clock()
	var parentID sql.NullInt64
	rootID := 0
	if np.ParentID != 0 {
		var parentRoot sql.NullInt64
		err := tx.QueryRowContext(ctx,
			"SELECT root_id, group_id FROM posts WHERE id = ?", np.ParentID).Scan(&parentRoot, &np.GroupID)
		if err != nil {
			return nil, notFound(err)
		}
		parentID = sql.NullInt64{Int64: int64(np.ParentID), Valid: true}
		rootID = int(parentRoot.Int64)
		if !parentRoot.Valid {
			rootID = np.ParentID
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO posts (type, status, title, content, author_id, parent_id, group_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		np.Type, models.StatusOpen, np.Title, np.Content, np.AuthorID, parentID, np.GroupID, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id64, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("post id: %w", err)
	}
	id := int(id64)
	if rootID == 0 {
		rootID = id
	}

	if _, err := tx.ExecContext(ctx, "UPDATE posts SET root_id = ? WHERE id = ?", rootID, id); err != nil {
		return nil, fmt.Errorf("set root: %w", err)
	}
	if rootID != id {
		_, err := tx.ExecContext(ctx,
			"UPDATE posts SET reply_count = reply_count + 1, updated_at = ? WHERE id = ?", now, rootID)
		if err != nil {
			return nil, fmt.Errorf("update root: %w", err)
		}
	}

	for _, name := range uniqueNames(np.Tags) {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO tags (name) VALUES (?)", name); err != nil {
			return nil, fmt.Errorf("insert tag %q: %w", name, err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO post_tags (post_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?`, id, name)
		if err != nil {
			return nil, fmt.Errorf("link tag %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.PostByID(ctx, id)
}

// SetStatus changes the status of a post, e.g. to delete it. The recent votes
// cache is dropped since it only lists votes on live posts.
func (s *Store) SetStatus(ctx context.Context, postID, status int) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE posts SET status = ? WHERE id = ?", status, postID); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *Store) attachTags(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[int]*models.Post, len(posts))
	args := make([]any, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		args = append(args, p.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pt.post_id, t.name FROM post_tags pt
		INNER JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id IN (`+placeholders(len(args))+`)
		ORDER BY t.name`, args...)
	if err != nil {
		return fmt.Errorf("query post tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID int
		var name string
		if err := rows.Scan(&postID, &name); err != nil {
			return err
		}
		byID[postID].Tags = append(byID[postID].Tags, name)
	}
	return rows.Err()
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
