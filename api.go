package shareme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

func defaultClient(settings *ClientSettings) *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: settings.HttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: settings.HttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   settings.HttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R])
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

// the single configured request/response pipeline for the platform api.
// attaches the bearer token from the session store before every request,
// and forces logout on any 401 response
type ShareMeApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl   string
	settings *ClientSettings

	sessionStore *SessionStore
	httpClient   *http.Client
}

func NewShareMeApi(sessionStore *SessionStore) *ShareMeApi {
	return NewShareMeApiWithContext(context.Background(), sessionStore, DefaultClientSettings())
}

func NewShareMeApiWithContext(ctx context.Context, sessionStore *SessionStore, settings *ClientSettings) *ShareMeApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &ShareMeApi{
		ctx:          cancelCtx,
		cancel:       cancel,
		apiUrl:       strings.TrimSuffix(settings.ApiUrl, "/"),
		settings:     settings,
		sessionStore: sessionStore,
		httpClient:   defaultClient(settings),
	}
}

func (self *ShareMeApi) SessionStore() *SessionStore {
	return self.sessionStore
}

func (self *ShareMeApi) Settings() *ClientSettings {
	return self.settings
}

func (self *ShareMeApi) Close() {
	self.cancel()
}

type AuthLoginCallback apiCallback[string]

type AuthLoginArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// the response body is the issued session token
func (self *ShareMeApi) AuthLogin(authLogin *AuthLoginArgs, callback AuthLoginCallback) {
	go self.AuthLoginWithCallback(authLogin, callback)
}

func (self *ShareMeApi) AuthLoginSync(authLogin *AuthLoginArgs) (string, error) {
	return self.AuthLoginWithCallback(authLogin, NewNoopApiCallback[string]())
}

func (self *ShareMeApi) AuthLoginWithCallback(authLogin *AuthLoginArgs, callback AuthLoginCallback) (string, error) {
	bodyBytes, err := self.send("POST", "/auth/login", authLogin, nil)
	if err != nil {
		callback.Result("", err)
		return "", err
	}

	// the token arrives either as a json string or as the raw body
	token := strings.TrimSpace(string(bodyBytes))
	var jsonToken string
	if err := json.Unmarshal(bodyBytes, &jsonToken); err == nil {
		token = jsonToken
	}

	callback.Result(token, nil)
	return token, nil
}

type AuthRegisterCallback apiCallback[*User]

type AuthRegisterArgs struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (self *ShareMeApi) AuthRegister(authRegister *AuthRegisterArgs, callback AuthRegisterCallback) {
	go postJson(self, "/auth/register", nil, authRegister, &User{}, callback)
}

func (self *ShareMeApi) AuthRegisterSync(authRegister *AuthRegisterArgs) (*User, error) {
	return postJson(self, "/auth/register", nil, authRegister, &User{}, NewNoopApiCallback[*User]())
}

type GetPostsCallback apiCallback[[]*PostSummary]

type GetPostsArgs struct {
	Skip     int
	Limit    int
	Category string
}

func (self *GetPostsArgs) query() url.Values {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(self.Skip))
	query.Set("limit", strconv.Itoa(self.Limit))
	if self.Category != "" {
		query.Set("category", self.Category)
	}
	return query
}

func (self *ShareMeApi) GetPosts(getPosts *GetPostsArgs, callback GetPostsCallback) {
	go getJson(self, "/posts", getPosts.query(), []*PostSummary{}, callback)
}

func (self *ShareMeApi) GetPostsSync(getPosts *GetPostsArgs) ([]*PostSummary, error) {
	return getJson(self, "/posts", getPosts.query(), []*PostSummary{}, NewNoopApiCallback[[]*PostSummary]())
}

type GetPostCallback apiCallback[*Post]

func (self *ShareMeApi) GetPost(postId string, callback GetPostCallback) {
	go getJson(self, fmt.Sprintf("/posts/%s", url.PathEscape(postId)), nil, &Post{}, callback)
}

func (self *ShareMeApi) GetPostSync(postId string) (*Post, error) {
	return getJson(self, fmt.Sprintf("/posts/%s", url.PathEscape(postId)), nil, &Post{}, NewNoopApiCallback[*Post]())
}

type LikePostCallback apiCallback[*LikePostResult]

type LikePostResult struct {
}

func (self *ShareMeApi) LikePost(postId string, callback LikePostCallback) {
	go postJson(self, fmt.Sprintf("/posts/%s/like", url.PathEscape(postId)), nil, nil, &LikePostResult{}, callback)
}

func (self *ShareMeApi) LikePostSync(postId string) (*LikePostResult, error) {
	return postJson(self, fmt.Sprintf("/posts/%s/like", url.PathEscape(postId)), nil, nil, &LikePostResult{}, NewNoopApiCallback[*LikePostResult]())
}

type AddCommentCallback apiCallback[*Comment]

type AddCommentArgs struct {
	PostId  string `json:"postId"`
	Content string `json:"content"`
}

func (self *ShareMeApi) AddComment(addComment *AddCommentArgs, callback AddCommentCallback) {
	go postJson(self, "/posts/add/comment", nil, addComment, &Comment{}, callback)
}

func (self *ShareMeApi) AddCommentSync(addComment *AddCommentArgs) (*Comment, error) {
	return postJson(self, "/posts/add/comment", nil, addComment, &Comment{}, NewNoopApiCallback[*Comment]())
}

type CreatePostCallback apiCallback[*Post]

type CreatePostArgs struct {
	Title       string
	Description string
	CategoryId  string
	ImageName   string
	Image       io.Reader
}

func (self *ShareMeApi) CreatePost(createPost *CreatePostArgs, callback CreatePostCallback) {
	go self.CreatePostWithCallback(createPost, callback)
}

func (self *ShareMeApi) CreatePostSync(createPost *CreatePostArgs) (*Post, error) {
	return self.CreatePostWithCallback(createPost, NewNoopApiCallback[*Post]())
}

func (self *ShareMeApi) CreatePostWithCallback(createPost *CreatePostArgs, callback CreatePostCallback) (*Post, error) {
	bodyBuffer := &bytes.Buffer{}
	writer := multipart.NewWriter(bodyBuffer)

	writer.WriteField("title", createPost.Title)
	writer.WriteField("description", createPost.Description)
	if createPost.CategoryId != "" {
		writer.WriteField("categoryId", createPost.CategoryId)
	}
	imagePart, err := writer.CreateFormFile("image", createPost.ImageName)
	if err == nil {
		_, err = io.Copy(imagePart, createPost.Image)
	}
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		callback.Result(nil, err)
		return nil, err
	}

	bodyBytes, err := self.sendRaw("POST", "/posts", nil, writer.FormDataContentType(), bodyBuffer)
	if err != nil {
		callback.Result(nil, err)
		return nil, err
	}

	result := &Post{}
	if err := json.Unmarshal(bodyBytes, result); err != nil {
		callback.Result(nil, err)
		return nil, err
	}

	callback.Result(result, nil)
	return result, nil
}

type GetCategoriesCallback apiCallback[[]*Category]

func (self *ShareMeApi) GetCategories(callback GetCategoriesCallback) {
	go getJson(self, "/categories", nil, []*Category{}, callback)
}

func (self *ShareMeApi) GetCategoriesSync() ([]*Category, error) {
	return getJson(self, "/categories", nil, []*Category{}, NewNoopApiCallback[[]*Category]())
}

type GetUserProfileCallback apiCallback[*UserProfile]

type GetUserProfileArgs struct {
	Username string
	Tab      ProfileTab
	Skip     int
	Limit    int
}

func (self *GetUserProfileArgs) query() url.Values {
	query := url.Values{}
	query.Set("type", string(self.Tab))
	query.Set("skip", strconv.Itoa(self.Skip))
	query.Set("limit", strconv.Itoa(self.Limit))
	return query
}

func (self *ShareMeApi) GetUserProfile(getUserProfile *GetUserProfileArgs, callback GetUserProfileCallback) {
	go getJson(self, fmt.Sprintf("/users/%s", url.PathEscape(getUserProfile.Username)), getUserProfile.query(), &UserProfile{}, callback)
}

func (self *ShareMeApi) GetUserProfileSync(getUserProfile *GetUserProfileArgs) (*UserProfile, error) {
	return getJson(self, fmt.Sprintf("/users/%s", url.PathEscape(getUserProfile.Username)), getUserProfile.query(), &UserProfile{}, NewNoopApiCallback[*UserProfile]())
}

type SearchUsersCallback apiCallback[[]string]

func (self *ShareMeApi) SearchUsers(username string, callback SearchUsersCallback) {
	query := url.Values{}
	query.Set("username", username)
	go getJson(self, "/users/list", query, []string{}, callback)
}

func (self *ShareMeApi) SearchUsersSync(username string) ([]string, error) {
	query := url.Values{}
	query.Set("username", username)
	return getJson(self, "/users/list", query, []string{}, NewNoopApiCallback[[]string]())
}

func postJson[R any](api *ShareMeApi, path string, query url.Values, args any, result R, callback apiCallback[R]) (R, error) {
	return sendJson(api, "POST", path, query, args, result, callback)
}

func getJson[R any](api *ShareMeApi, path string, query url.Values, result R, callback apiCallback[R]) (R, error) {
	return sendJson(api, "GET", path, query, nil, result, callback)
}

func sendJson[R any](api *ShareMeApi, method string, path string, query url.Values, args any, result R, callback apiCallback[R]) (R, error) {
	bodyBytes, err := api.send(method, path, args, query)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	if len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, &result); err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	callback.Result(result, nil)
	return result, nil
}

func (self *ShareMeApi) send(method string, path string, args any, query url.Values) ([]byte, error) {
	var requestBody io.Reader
	if args != nil {
		requestBodyBytes, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		requestBody = bytes.NewReader(requestBodyBytes)
	}
	return self.sendRaw(method, path, query, "application/json", requestBody)
}

func (self *ShareMeApi) sendRaw(method string, path string, query url.Values, contentType string, requestBody io.Reader) ([]byte, error) {
	requestUrl := fmt.Sprintf("%s%s", self.apiUrl, path)
	if len(query) > 0 {
		requestUrl = fmt.Sprintf("%s?%s", requestUrl, query.Encode())
	}

	req, err := http.NewRequestWithContext(self.ctx, method, requestUrl, requestBody)
	if err != nil {
		return nil, err
	}

	requestId := NewId()
	req.Header.Add("Content-Type", contentType)
	req.Header.Add("X-Request-Id", requestId.String())

	if session := self.sessionStore.Current(); session != nil {
		auth := fmt.Sprintf("Bearer %s", session.Token)
		req.Header.Add("Authorization", auth)
	}

	glog.V(2).Infof("[api]%s %s %s\n", requestId, method, requestUrl)

	r, err := self.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}
	defer r.Body.Close()

	responseBodyBytes, readErr := io.ReadAll(r.Body)

	if r.StatusCode == http.StatusUnauthorized {
		// the token was rejected. force logout globally, then surface the
		// error so the call site can also react
		glog.Infof("[api]401 from %s %s, forcing logout\n", method, path)
		self.sessionStore.Logout()
		return nil, &HttpError{
			Status:  r.StatusCode,
			Message: strings.TrimSpace(string(responseBodyBytes)),
		}
	}

	if r.StatusCode < 200 || 300 <= r.StatusCode {
		// the response body is the error message
		return nil, &HttpError{
			Status:  r.StatusCode,
			Message: strings.TrimSpace(string(responseBodyBytes)),
		}
	}

	if readErr != nil {
		return nil, readErr
	}

	return responseBodyBytes, nil
}
