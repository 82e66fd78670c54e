package shareme

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// the infinite feed, filtered by category. changing the category discards
// the accumulated pages and restarts from the first page
type FeedView struct {
	api        *ShareMeApi
	collection *FilteredCollection[*PostSummary]
}

func NewFeedView(api *ShareMeApi) *FeedView {
	return NewFeedViewWithCategory(api, "")
}

func NewFeedViewWithCategory(api *ShareMeApi, category string) *FeedView {
	collection := NewFilteredCollection(
		"posts-feed",
		api.Settings().PageSize,
		FilterSnapshot{"category": category},
		func(filters FilterSnapshot) PageFetchFunction[*PostSummary] {
			category := filters["category"]
			return func(skip int, limit int) ([]*PostSummary, error) {
				return api.GetPostsSync(&GetPostsArgs{
					Skip:     skip,
					Limit:    limit,
					Category: category,
				})
			}
		},
	)
	return &FeedView{
		api:        api,
		collection: collection,
	}
}

func (self *FeedView) Load() error {
	return self.collection.LoadFirst()
}

func (self *FeedView) LoadNext() (bool, error) {
	return self.collection.LoadNext()
}

func (self *FeedView) SetCategory(category string) {
	self.collection.SetFilters(FilterSnapshot{"category": category})
}

func (self *FeedView) Posts() []*PostSummary {
	return self.collection.Items()
}

func (self *FeedView) HasMore() bool {
	return self.collection.HasMore()
}

func (self *FeedView) Collection() *FilteredCollection[*PostSummary] {
	return self.collection
}

// patches the cached copy of one post after a like elsewhere succeeded.
// superseded by the next authoritative fetch
func (self *FeedView) ApplyLike(postId string, liked bool) {
	self.collection.UpdateItems(func(post *PostSummary) {
		if post.Id == postId && post.UserLikedPost != liked {
			post.UserLikedPost = liked
			if liked {
				post.LikesCount += 1
			} else {
				post.LikesCount -= 1
			}
		}
	})
}

// a user's profile with the CREATED / LIKED tab as the filter.
// switching tabs discards the accumulated pages
type ProfileView struct {
	api      *ShareMeApi
	username string

	stateLock sync.Mutex
	user      *User

	collection *FilteredCollection[*PostSummary]
}

func NewProfileView(api *ShareMeApi, username string) *ProfileView {
	return NewProfileViewWithTab(api, username, ProfileTabCreated)
}

func NewProfileViewWithTab(api *ShareMeApi, username string, tab ProfileTab) *ProfileView {
	profileView := &ProfileView{
		api:      api,
		username: username,
	}
	profileView.collection = NewFilteredCollection(
		fmt.Sprintf("user-profile-%s", username),
		api.Settings().PageSize,
		FilterSnapshot{"tab": string(tab)},
		func(filters FilterSnapshot) PageFetchFunction[*PostSummary] {
			tab := ProfileTab(filters["tab"])
			return func(skip int, limit int) ([]*PostSummary, error) {
				profile, err := api.GetUserProfileSync(&GetUserProfileArgs{
					Username: username,
					Tab:      tab,
					Skip:     skip,
					Limit:    limit,
				})
				if err != nil {
					return nil, err
				}
				profileView.setUser(profile.User)
				// the short page rule applies to the posts in the page
				return profile.Posts, nil
			}
		},
	)
	return profileView
}

func (self *ProfileView) setUser(user *User) {
	if user == nil {
		return
	}
	self.stateLock.Lock()
	self.user = user
	self.stateLock.Unlock()
}

func (self *ProfileView) Load() error {
	return self.collection.LoadFirst()
}

func (self *ProfileView) LoadNext() (bool, error) {
	return self.collection.LoadNext()
}

func (self *ProfileView) SetTab(tab ProfileTab) {
	self.collection.SetFilters(FilterSnapshot{"tab": string(tab)})
}

func (self *ProfileView) Tab() ProfileTab {
	return ProfileTab(self.collection.Filters()["tab"])
}

func (self *ProfileView) User() *User {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.user
}

func (self *ProfileView) Posts() []*PostSummary {
	return self.collection.Items()
}

func (self *ProfileView) HasMore() bool {
	return self.collection.HasMore()
}

func (self *ProfileView) Collection() *FilteredCollection[*PostSummary] {
	return self.collection
}

type PostChangeFunction = func(post *Post)

// a single post with its comments, plus the like and comment mutations.
// local patches are applied only after the remote call succeeds. on failure
// the cached copy is left exactly as it was
type PostDetailView struct {
	api    *ShareMeApi
	postId string

	stateLock sync.Mutex
	post      *Post
	fetched   bool

	changeCallbacks *CallbackList[PostChangeFunction]
}

func NewPostDetailView(api *ShareMeApi, postId string) *PostDetailView {
	return &PostDetailView{
		api:             api,
		postId:          postId,
		changeCallbacks: NewCallbackList[PostChangeFunction](),
	}
}

func (self *PostDetailView) Load() error {
	post, err := self.api.GetPostSync(self.postId)
	if err != nil {
		return err
	}

	self.stateLock.Lock()
	self.post = post
	self.fetched = true
	self.stateLock.Unlock()

	self.changed(post)
	return nil
}

func (self *PostDetailView) Post() (*Post, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.post, self.fetched
}

// toggles the like on the server, then patches the cached copy.
// rejected locally when not logged in, without issuing the remote call
func (self *PostDetailView) Like() error {
	if self.api.SessionStore().Current() == nil {
		glog.V(1).Infof("[view]like rejected, not logged in\n")
		return ErrNotLoggedIn
	}

	if _, err := self.api.LikePostSync(self.postId); err != nil {
		return err
	}

	var post *Post
	self.stateLock.Lock()
	if self.post != nil {
		self.post.UserLikedPost = !self.post.UserLikedPost
		if self.post.UserLikedPost {
			self.post.LikesCount += 1
		} else {
			self.post.LikesCount -= 1
		}
		post = self.post
	}
	self.stateLock.Unlock()

	if post != nil {
		self.changed(post)
	}
	return nil
}

// posts the comment, then prepends the returned record to the cached copy.
// rejected locally when not logged in or the content is empty
func (self *PostDetailView) AddComment(content string) (*Comment, error) {
	if self.api.SessionStore().Current() == nil {
		glog.V(1).Infof("[view]comment rejected, not logged in\n")
		return nil, ErrNotLoggedIn
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyComment
	}

	comment, err := self.api.AddCommentSync(&AddCommentArgs{
		PostId:  self.postId,
		Content: content,
	})
	if err != nil {
		return nil, err
	}

	var post *Post
	self.stateLock.Lock()
	if self.post != nil && comment != nil {
		self.post.Comments = append([]*Comment{comment}, self.post.Comments...)
		post = self.post
	}
	self.stateLock.Unlock()

	if post != nil {
		self.changed(post)
	}
	return comment, nil
}

// the unsub function removes the callback
func (self *PostDetailView) AddChangeCallback(changeCallback PostChangeFunction) func() {
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

func (self *PostDetailView) changed(post *Post) {
	for _, callback := range self.changeCallbacks.Get() {
		callback(post)
	}
}

// create-post form submission. validates locally before the upload is sent
type PostComposer struct {
	api *ShareMeApi
}

func NewPostComposer(api *ShareMeApi) *PostComposer {
	return &PostComposer{
		api: api,
	}
}

func (self *PostComposer) Create(createPost *CreatePostArgs) (*Post, error) {
	if self.api.SessionStore().Current() == nil {
		return nil, ErrNotLoggedIn
	}
	if strings.TrimSpace(createPost.Title) == "" {
		return nil, &DomainError{Message: "You must set a title"}
	}
	if strings.TrimSpace(createPost.Description) == "" {
		return nil, &DomainError{Message: "You must set a description"}
	}
	if createPost.Image == nil {
		return nil, ErrMissingImage
	}

	return self.api.CreatePostSync(createPost)
}
