package models

import (
	"fmt"
	"time"
)

// Post types. Answers and comments live inside a thread, everything else starts one.
const (
	PostQuestion = iota
	PostAnswer
	PostComment
	PostForum
	PostTutorial
	PostNews
	PostJob
)

// Post status values.
const (
	StatusOpen = iota
	StatusClosed
	StatusDeleted
)

// Vote types.
const (
	VoteUp = iota
	VoteDown
	VoteBookmark
	VoteAccept
)

var postTypeNames = map[int]string{
	PostQuestion: "Question",
	PostAnswer:   "Answer",
	PostComment:  "Comment",
	PostForum:    "Forum",
	PostTutorial: "Tutorial",
	PostNews:     "News",
	PostJob:      "Job",
}

type User struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"-"`
	IsModerator bool      `json:"is_moderator"`
	CreatedAt   time.Time `json:"created_at"`
}

// Anonymous is the user attached to requests without a valid session.
var Anonymous = &User{Name: "Anonymous"}

func (u *User) IsAuthenticated() bool {
	return u != nil && u.ID != 0
}

func (u *User) URL() string {
	return fmt.Sprintf("/u/%d/posts", u.ID)
}

// DefaultDomain marks the group served when no domain matches the request host.
const DefaultDomain = "default"

type UserGroup struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Public bool   `json:"public"`
}

// URL links to the group's site. The default group has no host of its own.
func (g UserGroup) URL() string {
	if g.Domain == DefaultDomain {
		return "/"
	}
	return "//" + g.Domain + "/"
}

type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Post struct {
	ID         int       `json:"id"`
	Type       int       `json:"type"`
	Status     int       `json:"status"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   int       `json:"author_id"`
	AuthorName string    `json:"author_name"`
	ParentID   int       `json:"parent_id,omitempty"`
	RootID     int       `json:"root_id"`
	GroupID    int       `json:"group_id"`
	ViewCount  int       `json:"view_count"`
	VoteCount  int       `json:"vote_count"`
	ReplyCount int       `json:"reply_count"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Set per request, relative to the viewing user.
	Editable    bool `json:"editable"`
	HasVote     bool `json:"has_vote"`
	HasBookmark bool `json:"has_bookmark"`
}

// IsToplevel reports whether the post starts its own thread.
func (p *Post) IsToplevel() bool {
	return p.ParentID == 0
}

func (p *Post) IsDeleted() bool {
	return p.Status == StatusDeleted
}

func (p *Post) TypeName() string {
	return postTypeNames[p.Type]
}

// AbsoluteURL points at the thread page, anchored on the post for replies.
func (p *Post) AbsoluteURL() string {
	if p.IsToplevel() {
		return fmt.Sprintf("/p/%d/", p.ID)
	}
	return fmt.Sprintf("/p/%d/#%d", p.RootID, p.ID)
}

// IsToplevelType reports whether posts of type t start threads.
func IsToplevelType(t int) bool {
	return t != PostAnswer && t != PostComment
}

type Vote struct {
	ID        int       `json:"id"`
	AuthorID  int       `json:"author_id"`
	PostID    int       `json:"post_id"`
	Type      int       `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentVote is a vote joined with what the sidebar shows for it.
type RecentVote struct {
	Vote
	AuthorName string `json:"author_name"`
	PostTitle  string `json:"post_title"`
	PostURL    string `json:"post_url"`
}

// Thread is a root post decorated for one viewer, with its replies split out.
type Thread struct {
	Post      *Post
	Upvotes   map[int]bool
	Bookmarks map[int]bool
	Answers   []*Post
	Comments  *CommentMap
}

// CommentMap groups comments by parent id, keeping parents in first-seen order.
type CommentMap struct {
	order []int
	items map[int][]*Post
}

func NewCommentMap() *CommentMap {
	return &CommentMap{items: make(map[int][]*Post)}
}

func (m *CommentMap) Add(c *Post) {
	if _, ok := m.items[c.ParentID]; !ok {
		m.order = append(m.order, c.ParentID)
	}
	m.items[c.ParentID] = append(m.items[c.ParentID], c)
}

// For returns the comments directly under the post with the given id.
func (m *CommentMap) For(parentID int) []*Post {
	return m.items[parentID]
}

// Node is the subtree of comments under parentID, for recursive rendering.
func (m *CommentMap) Node(parentID int) CommentNode {
	return CommentNode{m: m, ParentID: parentID}
}

// CommentNode points at one parent in a CommentMap.
type CommentNode struct {
	m        *CommentMap
	ParentID int
}

func (n CommentNode) Comments() []*Post {
	return n.m.For(n.ParentID)
}

// Child moves down to the comments under the comment with id.
func (n CommentNode) Child(id int) CommentNode {
	return n.m.Node(id)
}

// Parents lists the parent ids in the order their first comment appeared.
func (m *CommentMap) Parents() []int {
	return m.order
}
