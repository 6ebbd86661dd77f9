package pages

import (
	"context"
	"errors"
	"sync"

	"github.com/anonto42/skillshare/internal/media"
	"github.com/anonto42/skillshare/internal/models"
	"github.com/anonto42/skillshare/internal/session"
)

const (
	msgUserFailed  = "Failed to fetch user data."
	msgPostsFailed = "Failed to load posts."
)

// ErrNotEditing is returned by edit actions when no post is being edited.
var ErrNotEditing = errors.New("no post is being edited")

// EditState is the in-progress edit of one post.
type EditState struct {
	PostID    string            `json:"postId"`
	Content   string            `json:"content"`
	MediaURLs []string          `json:"mediaUrls"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (e *EditState) clone() *EditState {
	if e == nil {
		return nil
	}
	cp := *e
	cp.MediaURLs = append([]string(nil), e.MediaURLs...)
	if e.Errors != nil {
		cp.Errors = make(map[string]string, len(e.Errors))
		for k, v := range e.Errors {
			cp.Errors[k] = v
		}
	}
	return &cp
}

// PostView is a post as displayed on the profile.
type PostView struct {
	models.Post
	Liked     bool     `json:"liked"`
	LikeCount int      `json:"likeCount"`
	Images    []string `json:"images"`
	Videos    []string `json:"videos"`
}

// ProfileView is a snapshot of the profile page.
type ProfileView struct {
	User    *models.User `json:"user,omitempty"`
	Posts   []PostView   `json:"posts"`
	Banner  string       `json:"banner,omitempty"`
	Editing *EditState   `json:"editing,omitempty"`
}

// Profile shows the session user's record and posts and lets them edit,
// delete and like posts.
type Profile struct {
	deps  Deps
	likes *Toggle

	mu     sync.Mutex
	sess   *session.Session
	user   *models.User
	posts  *List[models.Post]
	banner string
	edit   *EditState
}

// NewProfile creates an unmounted profile page.
func NewProfile(deps Deps) *Profile {
	deps = deps.withDefaults()
	return &Profile{
		deps:  deps,
		likes: NewToggle("like", deps.Metrics),
		posts: NewList(func(p models.Post) string { return p.ID }),
	}
}

// Mount guards the page and loads the user record and the posts. Load
// failures end up in the banner.
func (p *Profile) Mount(ctx context.Context) error {
	sess, err := session.Guard(ctx, p.deps.Sessions)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.sess = sess
	p.mu.Unlock()

	user, err := p.deps.API.GetUser(ctx, sess.UserID())
	p.mu.Lock()
	if err != nil {
		p.banner = msgUserFailed
	} else {
		p.user = user
		if p.banner == msgUserFailed {
			p.banner = ""
		}
	}
	p.mu.Unlock()

	p.fetchPosts(ctx, sess.UserID())
	return nil
}

func (p *Profile) fetchPosts(ctx context.Context, userID string) {
	posts, err := p.deps.API.PostsByUser(ctx, userID)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.banner = msgPostsFailed
		return
	}
	p.posts.Replace(posts)
	if p.banner == msgPostsFailed {
		p.banner = ""
	}
}

// Mounted reports whether Mount succeeded since the last logout.
func (p *Profile) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess != nil
}

func (p *Profile) current() (*session.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return nil, session.ErrLoggedOut
	}
	return p.sess, nil
}

// DeletePost deletes a post and drops it from the list.
func (p *Profile) DeletePost(ctx context.Context, postID string) error {
	if _, err := p.current(); err != nil {
		return err
	}
	if err := p.deps.API.DeletePost(ctx, postID); err != nil {
		return newAlert("Failed to delete post.", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts.Remove(postID)
	if p.edit != nil && p.edit.PostID == postID {
		p.edit = nil
	}
	return nil
}

// StartEdit opens the editor on a post, prefilled with its content.
func (p *Profile) StartEdit(postID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	post, ok := p.posts.Find(postID)
	if !ok {
		return newAlert("Post not found", nil)
	}
	p.edit = &EditState{
		PostID:    postID,
		Content:   post.Description,
		MediaURLs: append([]string{}, post.MediaURLs...),
	}
	return nil
}

// CancelEdit closes the editor without saving.
func (p *Profile) CancelEdit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edit = nil
}

// SetEditContent replaces the edited description.
func (p *Profile) SetEditContent(content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.edit == nil {
		return ErrNotEditing
	}
	p.edit.Content = content
	return nil
}

// AttachMedia replaces the edited media with files. An invalid batch leaves
// the current media untouched.
func (p *Profile) AttachMedia(files []media.File) error {
	urls, err := media.Ingest(files)
	if err != nil {
		msg := media.ErrInvalidType.Error()
		if errors.Is(err, media.ErrTooManyFiles) {
			msg = media.ErrTooManyFiles.Error()
		}
		return newAlert(msg, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.edit == nil {
		return ErrNotEditing
	}
	p.edit.MediaURLs = urls
	return nil
}

// SaveEdit sends the edit. On success the post is replaced by the server's
// copy and the editor closes; on failure the editor stays open.
func (p *Profile) SaveEdit(ctx context.Context) error {
	if _, err := p.current(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.edit == nil {
		p.mu.Unlock()
		return ErrNotEditing
	}
	postID := p.edit.PostID
	req := models.UpdatePostRequest{
		Description: p.edit.Content,
		MediaURLs:   append([]string{}, p.edit.MediaURLs...),
	}
	if err := p.deps.Validator.Struct(req); err != nil {
		fields := map[string]string{"content": "Description is required"}
		p.edit.Errors = fields
		p.mu.Unlock()
		return formAlert("Description is required", fields)
	}
	p.edit.Errors = nil
	p.mu.Unlock()

	post, err := p.deps.API.UpdatePost(ctx, postID, req)
	if err != nil {
		return newAlert("Failed to update post.", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts.Update(postID, func(old *models.Post) { *old = *post })
	if p.edit != nil && p.edit.PostID == postID {
		p.edit = nil
	}
	return nil
}

// Like adds the session user's like to a post and reloads the posts.
func (p *Profile) Like(ctx context.Context, postID string) error {
	return p.toggleLike(ctx, postID, true)
}

// Unlike removes the session user's like from a post and reloads the posts.
func (p *Profile) Unlike(ctx context.Context, postID string) error {
	return p.toggleLike(ctx, postID, false)
}

func (p *Profile) toggleLike(ctx context.Context, postID string, like bool) error {
	sess, err := p.current()
	if err != nil {
		return err
	}
	userID := sess.UserID()

	p.mu.Lock()
	post, ok := p.posts.Find(postID)
	p.mu.Unlock()
	if !ok {
		return newAlert("Post not found", nil)
	}
	if post.LikedBy(userID) == like {
		return nil
	}

	var prev []models.Like
	apply := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.posts.Update(postID, func(post *models.Post) {
			prev = post.Likes
			if like {
				post.Likes = append(append([]models.Like{}, post.Likes...), models.Like{UserID: userID})
				return
			}
			kept := []models.Like{}
			for _, l := range post.Likes {
				if l.UserID != userID {
					kept = append(kept, l)
				}
			}
			post.Likes = kept
		})
	}
	revert := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.posts.Update(postID, func(post *models.Post) { post.Likes = prev })
	}
	send := func(ctx context.Context) error {
		if like {
			return p.deps.API.AddLike(ctx, postID, userID)
		}
		return p.deps.API.RemoveLike(ctx, postID, userID)
	}

	err = p.likes.Run(ctx, postID, apply, revert, send)
	switch {
	case errors.Is(err, ErrPending):
		return err
	case err != nil && like:
		return newAlert("Failed to like post", err)
	case err != nil:
		return newAlert("Failed to remove like", err)
	}
	p.fetchPosts(ctx, userID)
	return nil
}

// IsLiked reports whether the session user likes post.
func (p *Profile) IsLiked(post models.Post) bool {
	sess, err := p.current()
	if err != nil {
		return false
	}
	return post.LikedBy(sess.UserID())
}

// View returns a snapshot of the profile page.
func (p *Profile) View() ProfileView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := ProfileView{
		Posts:   []PostView{},
		Banner:  p.banner,
		Editing: p.edit.clone(),
	}
	if p.user != nil {
		u := *p.user
		v.User = &u
	}
	var userID string
	if p.sess != nil {
		userID = p.sess.UserID()
	}
	for _, post := range p.posts.Items() {
		pv := PostView{
			Post:      post,
			Liked:     post.LikedBy(userID),
			LikeCount: len(post.Likes),
			Images:    []string{},
			Videos:    []string{},
		}
		for _, u := range post.MediaURLs {
			switch {
			case media.IsImageURL(u):
				pv.Images = append(pv.Images, u)
			case media.IsVideoURL(u):
				pv.Videos = append(pv.Videos, u)
			}
		}
		v.Posts = append(v.Posts, pv)
	}
	return v
}
