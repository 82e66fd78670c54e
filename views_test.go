package shareme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/go-playground/assert/v2"
)

func testPostDetail() *Post {
	return &Post{
		Id:            "post-1",
		Title:         "a dog",
		Description:   "a very good dog",
		LikesCount:    3,
		UserLikedPost: false,
		Comments: []*Comment{
			{Id: "comment-1", Content: "nice"},
		},
	}
}

func TestLikeRequiresLogin(t *testing.T) {
	// an unauthenticated like is rejected locally. the gateway only sees the
	// initial detail fetch, and the cache is unchanged

	var likeCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/posts/post-1/like" {
			atomic.AddInt64(&likeCalls, 1)
			return
		}
		json.NewEncoder(w).Encode(testPostDetail())
	}))
	defer server.Close()

	api := testApi(NewSessionStore(), server.URL)
	defer api.Close()

	view := NewPostDetailView(api, "post-1")
	err := view.Load()
	assert.Equal(t, err, nil)

	err = view.Like()
	assert.Equal(t, err, ErrNotLoggedIn)
	assert.Equal(t, atomic.LoadInt64(&likeCalls), int64(0))

	post, fetched := view.Post()
	assert.Equal(t, fetched, true)
	assert.Equal(t, post.UserLikedPost, false)
	assert.Equal(t, post.LikesCount, 3)
}

func TestLikeTogglesCachedPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/posts/post-1/like" {
			assert.Equal(t, r.Method, "POST")
			return
		}
		json.NewEncoder(w).Encode(testPostDetail())
	}))
	defer server.Close()

	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	api := testApi(testSessionStore(t, token), server.URL)
	defer api.Close()

	view := NewPostDetailView(api, "post-1")
	err := view.Load()
	assert.Equal(t, err, nil)

	err = view.Like()
	assert.Equal(t, err, nil)
	post, _ := view.Post()
	assert.Equal(t, post.UserLikedPost, true)
	assert.Equal(t, post.LikesCount, 4)

	// a second like toggles back
	err = view.Like()
	assert.Equal(t, err, nil)
	post, _ = view.Post()
	assert.Equal(t, post.UserLikedPost, false)
	assert.Equal(t, post.LikesCount, 3)
}

func TestLikeFailureLeavesCacheUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/posts/post-1/like" {
			http.Error(w, "like failed", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(testPostDetail())
	}))
	defer server.Close()

	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	api := testApi(testSessionStore(t, token), server.URL)
	defer api.Close()

	view := NewPostDetailView(api, "post-1")
	err := view.Load()
	assert.Equal(t, err, nil)

	err = view.Like()
	assert.Equal(t, IsHttpStatus(err, http.StatusInternalServerError), true)

	// no local patch was applied
	post, _ := view.Post()
	assert.Equal(t, post.UserLikedPost, false)
	assert.Equal(t, post.LikesCount, 3)
}

func TestAddCommentGuards(t *testing.T) {
	var commentCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/posts/add/comment" {
			atomic.AddInt64(&commentCalls, 1)
			return
		}
		json.NewEncoder(w).Encode(testPostDetail())
	}))
	defer server.Close()

	anonymousApi := testApi(NewSessionStore(), server.URL)
	defer anonymousApi.Close()
	anonymousView := NewPostDetailView(anonymousApi, "post-1")
	anonymousView.Load()
	_, err := anonymousView.AddComment("hello")
	assert.Equal(t, err, ErrNotLoggedIn)

	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	api := testApi(testSessionStore(t, token), server.URL)
	defer api.Close()
	view := NewPostDetailView(api, "post-1")
	view.Load()
	_, err = view.AddComment("   ")
	assert.Equal(t, err, ErrEmptyComment)

	assert.Equal(t, atomic.LoadInt64(&commentCalls), int64(0))
}

func TestAddCommentPrepends(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/posts/add/comment" {
			args := &AddCommentArgs{}
			json.NewDecoder(r.Body).Decode(args)
			assert.Equal(t, args.PostId, "post-1")
			json.NewEncoder(w).Encode(&Comment{
				Id:      "comment-2",
				Content: args.Content,
			})
			return
		}
		json.NewEncoder(w).Encode(testPostDetail())
	}))
	defer server.Close()

	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	api := testApi(testSessionStore(t, token), server.URL)
	defer api.Close()

	view := NewPostDetailView(api, "post-1")
	err := view.Load()
	assert.Equal(t, err, nil)

	comment, err := view.AddComment("what a good boy")
	assert.Equal(t, err, nil)
	assert.Equal(t, comment.Id, "comment-2")

	// newest first
	post, _ := view.Post()
	assert.Equal(t, len(post.Comments), 2)
	assert.Equal(t, post.Comments[0].Id, "comment-2")
	assert.Equal(t, post.Comments[1].Id, "comment-1")
}

func TestCreatePostGuards(t *testing.T) {
	var createCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&createCalls, 1)
	}))
	defer server.Close()

	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	api := testApi(testSessionStore(t, token), server.URL)
	defer api.Close()

	composer := NewPostComposer(api)

	_, err := composer.Create(&CreatePostArgs{
		Title:       "a dog",
		Description: "a very good dog",
	})
	assert.Equal(t, err, ErrMissingImage)

	_, err = composer.Create(&CreatePostArgs{
		Description: "a very good dog",
		ImageName:   "dog.png",
		Image:       bytes.NewReader([]byte("png")),
	})
	_, isDomainError := err.(*DomainError)
	assert.Equal(t, isDomainError, true)

	anonymousApi := testApi(NewSessionStore(), server.URL)
	defer anonymousApi.Close()
	_, err = NewPostComposer(anonymousApi).Create(&CreatePostArgs{
		Title:       "a dog",
		Description: "a very good dog",
		ImageName:   "dog.png",
		Image:       bytes.NewReader([]byte("png")),
	})
	assert.Equal(t, err, ErrNotLoggedIn)

	assert.Equal(t, atomic.LoadInt64(&createCalls), int64(0))
}

func TestCreatePostMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseMultipartForm(1 << 20)
		assert.Equal(t, err, nil)
		assert.Equal(t, r.FormValue("title"), "a dog")
		assert.Equal(t, r.FormValue("description"), "a very good dog")
		assert.Equal(t, r.FormValue("categoryId"), "cat-1")
		_, header, err := r.FormFile("image")
		assert.Equal(t, err, nil)
		assert.Equal(t, header.Filename, "dog.png")

		json.NewEncoder(w).Encode(&Post{Id: "post-9", Title: "a dog"})
	}))
	defer server.Close()

	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	api := testApi(testSessionStore(t, token), server.URL)
	defer api.Close()

	created, err := NewPostComposer(api).Create(&CreatePostArgs{
		Title:       "a dog",
		Description: "a very good dog",
		CategoryId:  "cat-1",
		ImageName:   "dog.png",
		Image:       bytes.NewReader([]byte("png")),
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, created.Id, "post-9")
}

func testFeedServer(t *testing.T, pageSize int, totalByCategory map[string]int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.Equal(t, limit, pageSize)
		category := r.URL.Query().Get("category")

		total := totalByCategory[category]
		posts := []*PostSummary{}
		for i := skip * limit; i < total && len(posts) < limit; i += 1 {
			posts = append(posts, &PostSummary{
				Id:    fmt.Sprintf("post-%d", i),
				Title: fmt.Sprintf("post %d", i),
			})
		}
		json.NewEncoder(w).Encode(posts)
	}))
}

func TestFeedViewPagination(t *testing.T) {
	// 14 posts with page size 10: a full page then a short one

	server := testFeedServer(t, 10, map[string]int{"": 14})
	defer server.Close()

	api := testApi(NewSessionStore(), server.URL)
	defer api.Close()

	feedView := NewFeedView(api)
	err := feedView.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, len(feedView.Posts()), 10)
	assert.Equal(t, feedView.HasMore(), true)

	issued, err := feedView.LoadNext()
	assert.Equal(t, err, nil)
	assert.Equal(t, issued, true)
	assert.Equal(t, len(feedView.Posts()), 14)
	assert.Equal(t, feedView.HasMore(), false)

	issued, _ = feedView.LoadNext()
	assert.Equal(t, issued, false)
}

func TestProfileViewTabSwitch(t *testing.T) {
	user := &User{Id: "user-1", Username: "ana", Email: "ana@email.com"}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/users/ana")
		tab := r.URL.Query().Get("type")
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))

		posts := []*PostSummary{}
		if tab == string(ProfileTabCreated) && skip == 0 {
			// one short page of created posts
			posts = append(posts, &PostSummary{Id: "created-1"})
		}
		json.NewEncoder(w).Encode(&UserProfile{
			User:  user,
			Posts: posts,
		})
	}))
	defer server.Close()

	api := testApi(NewSessionStore(), server.URL)
	defer api.Close()

	profileView := NewProfileView(api, "ana")
	assert.Equal(t, profileView.Tab(), ProfileTabCreated)

	err := profileView.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, len(profileView.Posts()), 1)
	assert.Equal(t, profileView.HasMore(), false)
	assert.Equal(t, profileView.User().Username, "ana")

	// switching tabs discards the accumulated pages and refetches
	profileView.SetTab(ProfileTabLiked)
	assert.Equal(t, profileView.Tab(), ProfileTabLiked)

	waitForCollectionState(profileView.Collection(), PagerStateReady)
	assert.Equal(t, len(profileView.Posts()), 0)
}

func TestFeedViewApplyLike(t *testing.T) {
	server := testFeedServer(t, 10, map[string]int{"": 3})
	defer server.Close()

	api := testApi(NewSessionStore(), server.URL)
	defer api.Close()

	feedView := NewFeedView(api)
	err := feedView.Load()
	assert.Equal(t, err, nil)

	feedView.ApplyLike("post-1", true)
	posts := feedView.Posts()
	assert.Equal(t, posts[1].UserLikedPost, true)
	assert.Equal(t, posts[1].LikesCount, 1)
	assert.Equal(t, posts[0].UserLikedPost, false)

	// applying the same state twice is a no-op
	feedView.ApplyLike("post-1", true)
	posts = feedView.Posts()
	assert.Equal(t, posts[1].LikesCount, 1)
}
