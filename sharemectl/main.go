package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/docopt/docopt-go"

	"shareme.com/shareme"
)

const ShareMeCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Shareme control.

The default api url is https://api.shareme.app, override with
SHAREME_API_URL or --api_url. The session token is persisted in the
session file and reused until logout or until the server rejects it.

Usage:
    sharemectl register [--api_url=<api_url>] [--session_file=<session_file>]
        --username=<username>
        --email=<email>
        --password=<password>
    sharemectl login [--api_url=<api_url>] [--session_file=<session_file>]
        --email=<email>
        --password=<password>
    sharemectl logout [--session_file=<session_file>]
    sharemectl whoami [--session_file=<session_file>]
    sharemectl feed [--api_url=<api_url>] [--session_file=<session_file>]
        [--category=<category>] [--pages=<pages>]
    sharemectl post [--api_url=<api_url>] [--session_file=<session_file>] <post_id>
    sharemectl like [--api_url=<api_url>] [--session_file=<session_file>] <post_id>
    sharemectl comment [--api_url=<api_url>] [--session_file=<session_file>]
        <post_id> <content>
    sharemectl create [--api_url=<api_url>] [--session_file=<session_file>]
        --title=<title>
        --description=<description>
        --image=<image>
        [--category_id=<category_id>]
    sharemectl profile [--api_url=<api_url>] [--session_file=<session_file>]
        [--tab=<tab>] [--pages=<pages>] <username>
    sharemectl search [--api_url=<api_url>] [--session_file=<session_file>] <username>
    sharemectl categories [--api_url=<api_url>] [--session_file=<session_file>]

Options:
    -h --help                      Show this screen.
    --version                      Show version.
    --api_url=<api_url>
    --session_file=<session_file>  Where the session token is persisted.
    --username=<username>
    --email=<email>
    --password=<password>
    --category=<category>          Feed category filter.
    --pages=<pages>                Number of pages to fetch [default: 1].
    --title=<title>
    --description=<description>
    --image=<image>                Path of the image file to upload.
    --category_id=<category_id>
    --tab=<tab>                    Profile tab, CREATED or LIKED [default: CREATED].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ShareMeCtlVersion)
	if err != nil {
		panic(err)
	}

	if register_, _ := opts.Bool("register"); register_ {
		register(opts)
	} else if login_, _ := opts.Bool("login"); login_ {
		login(opts)
	} else if logout_, _ := opts.Bool("logout"); logout_ {
		logout(opts)
	} else if whoami_, _ := opts.Bool("whoami"); whoami_ {
		whoami(opts)
	} else if feed_, _ := opts.Bool("feed"); feed_ {
		feed(opts)
	} else if post_, _ := opts.Bool("post"); post_ {
		post(opts)
	} else if like_, _ := opts.Bool("like"); like_ {
		like(opts)
	} else if comment_, _ := opts.Bool("comment"); comment_ {
		comment(opts)
	} else if create_, _ := opts.Bool("create"); create_ {
		create(opts)
	} else if profile_, _ := opts.Bool("profile"); profile_ {
		profile(opts)
	} else if search_, _ := opts.Bool("search"); search_ {
		search(opts)
	} else if categories_, _ := opts.Bool("categories"); categories_ {
		categories(opts)
	}
}

func newApi(opts docopt.Opts) *shareme.ShareMeApi {
	settings, err := shareme.ClientSettingsFromEnv()
	if err != nil {
		Err.Fatalf("Bad settings: %s", err)
	}
	if apiUrl, err := opts.String("--api_url"); err == nil && apiUrl != "" {
		settings.ApiUrl = apiUrl
	}

	sessionStore := shareme.NewSessionStoreWithPersister(
		shareme.NewFileSessionPersister(sessionFilePath(opts)),
	)
	return shareme.NewShareMeApiWithContext(context.Background(), sessionStore, settings)
}

func sessionFilePath(opts docopt.Opts) string {
	if sessionFile, err := opts.String("--session_file"); err == nil && sessionFile != "" {
		return sessionFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		Err.Fatalf("No home dir: %s", err)
	}
	return filepath.Join(home, ".shareme", "session")
}

func register(opts docopt.Opts) {
	username, _ := opts.String("--username")
	email, _ := opts.String("--email")
	password, _ := opts.String("--password")

	api := newApi(opts)
	defer api.Close()

	user, err := api.AuthRegisterSync(&shareme.AuthRegisterArgs{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		Err.Fatalf("Could not register: %s", err)
	}
	Out.Printf("Registered %s <%s>. Now log in.", user.Username, user.Email)
}

func login(opts docopt.Opts) {
	email, _ := opts.String("--email")
	password, _ := opts.String("--password")

	api := newApi(opts)
	defer api.Close()

	session, err := api.SessionStore().Login(api, email, password)
	if err != nil {
		Err.Fatalf("Could not log in: %s", err)
	}
	Out.Printf("Logged in as %s <%s>", session.Username, session.Email)
}

func logout(opts docopt.Opts) {
	sessionStore := shareme.NewSessionStoreWithPersister(
		shareme.NewFileSessionPersister(sessionFilePath(opts)),
	)
	sessionStore.Logout()
	Out.Printf("Logged out")
}

func whoami(opts docopt.Opts) {
	sessionStore := shareme.NewSessionStoreWithPersister(
		shareme.NewFileSessionPersister(sessionFilePath(opts)),
	)
	if session := sessionStore.Current(); session != nil {
		Out.Printf("%s <%s> (%s)", session.Username, session.Email, session.UserId)
	} else {
		Out.Printf("Anonymous")
	}
}

func feed(opts docopt.Opts) {
	category, _ := opts.String("--category")
	pages, err := opts.Int("--pages")
	if err != nil || pages < 1 {
		pages = 1
	}

	api := newApi(opts)
	defer api.Close()

	feedView := shareme.NewFeedViewWithCategory(api, category)
	if err := shareme.TraceWithReturn("feed load", feedView.Load); err != nil {
		Err.Fatalf("Could not load feed: %s", err)
	}
	for i := 1; i < pages && feedView.HasMore(); i += 1 {
		if _, err := feedView.LoadNext(); err != nil {
			Err.Fatalf("Could not load page %d: %s", i, err)
		}
	}

	for _, post := range feedView.Posts() {
		printPostSummary(post)
	}
	if feedView.HasMore() {
		Out.Printf("(more)")
	}
}

func printPostSummary(post *shareme.PostSummary) {
	liked := " "
	if post.UserLikedPost {
		liked = "*"
	}
	username := ""
	if post.User != nil {
		username = post.User.Username
	}
	Out.Printf("%s [%s] %-32s likes=%-4d by %s", post.Id, liked, post.Title, post.LikesCount, username)
}

func post(opts docopt.Opts) {
	postId, _ := opts.String("<post_id>")

	api := newApi(opts)
	defer api.Close()

	postDetailView := shareme.NewPostDetailView(api, postId)
	if err := postDetailView.Load(); err != nil {
		Err.Fatalf("Could not load post: %s", err)
	}
	detail, _ := postDetailView.Post()

	Out.Printf("%s", detail.Title)
	Out.Printf("%s", detail.Description)
	if detail.User != nil {
		Out.Printf("by %s, likes=%d", detail.User.Username, detail.LikesCount)
	}
	Out.Printf("")
	for _, comment := range detail.Comments {
		username := ""
		if comment.User != nil {
			username = comment.User.Username
		}
		Out.Printf("%s: %s", username, comment.Content)
	}
}

func like(opts docopt.Opts) {
	postId, _ := opts.String("<post_id>")

	api := newApi(opts)
	defer api.Close()

	postDetailView := shareme.NewPostDetailView(api, postId)
	if err := postDetailView.Load(); err != nil {
		Err.Fatalf("Could not load post: %s", err)
	}
	if err := postDetailView.Like(); err != nil {
		Err.Fatalf("Could not like post: %s", err)
	}
	detail, _ := postDetailView.Post()
	if detail.UserLikedPost {
		Out.Printf("Liked %s (likes=%d)", postId, detail.LikesCount)
	} else {
		Out.Printf("Unliked %s (likes=%d)", postId, detail.LikesCount)
	}
}

func comment(opts docopt.Opts) {
	postId, _ := opts.String("<post_id>")
	content, _ := opts.String("<content>")

	api := newApi(opts)
	defer api.Close()

	postDetailView := shareme.NewPostDetailView(api, postId)
	if err := postDetailView.Load(); err != nil {
		Err.Fatalf("Could not load post: %s", err)
	}
	comment, err := postDetailView.AddComment(content)
	if err != nil {
		Err.Fatalf("Could not comment: %s", err)
	}
	Out.Printf("Commented on %s: %s", postId, comment.Content)
}

func create(opts docopt.Opts) {
	title, _ := opts.String("--title")
	description, _ := opts.String("--description")
	imagePath, _ := opts.String("--image")
	categoryId, _ := opts.String("--category_id")

	api := newApi(opts)
	defer api.Close()

	var createPost *shareme.CreatePostArgs
	if imagePath == "" {
		createPost = &shareme.CreatePostArgs{
			Title:       title,
			Description: description,
			CategoryId:  categoryId,
		}
	} else {
		imageFile, err := os.Open(imagePath)
		if err != nil {
			Err.Fatalf("Could not open image: %s", err)
		}
		defer imageFile.Close()
		createPost = &shareme.CreatePostArgs{
			Title:       title,
			Description: description,
			CategoryId:  categoryId,
			ImageName:   filepath.Base(imagePath),
			Image:       imageFile,
		}
	}

	created, err := shareme.NewPostComposer(api).Create(createPost)
	if err != nil {
		Err.Fatalf("Could not create post: %s", err)
	}
	Out.Printf("Created post %s", created.Id)
}

func profile(opts docopt.Opts) {
	username, _ := opts.String("<username>")
	tab, _ := opts.String("--tab")
	pages, err := opts.Int("--pages")
	if err != nil || pages < 1 {
		pages = 1
	}

	api := newApi(opts)
	defer api.Close()

	profileTab := shareme.ProfileTabCreated
	if strings.EqualFold(tab, string(shareme.ProfileTabLiked)) {
		profileTab = shareme.ProfileTabLiked
	}
	profileView := shareme.NewProfileViewWithTab(api, username, profileTab)
	if err := shareme.TraceWithReturn("profile load", profileView.Load); err != nil {
		Err.Fatalf("Could not load profile: %s", err)
	}
	for i := 1; i < pages && profileView.HasMore(); i += 1 {
		if _, err := profileView.LoadNext(); err != nil {
			Err.Fatalf("Could not load page %d: %s", i, err)
		}
	}

	if user := profileView.User(); user != nil {
		Out.Printf("%s <%s>", user.Username, user.Email)
	}
	Out.Printf("[%s]", profileView.Tab())
	for _, post := range profileView.Posts() {
		printPostSummary(post)
	}
	if profileView.HasMore() {
		Out.Printf("(more)")
	}
}

func search(opts docopt.Opts) {
	username, _ := opts.String("<username>")

	api := newApi(opts)
	defer api.Close()

	usernames, err := api.SearchUsersSync(username)
	if err != nil {
		Err.Fatalf("Could not search: %s", err)
	}
	if len(usernames) == 0 {
		Out.Printf("No results found.")
	}
	for _, username := range usernames {
		Out.Printf("%s", username)
	}
}

func categories(opts docopt.Opts) {
	api := newApi(opts)
	defer api.Close()

	categories, err := api.GetCategoriesSync()
	if err != nil {
		Err.Fatalf("Could not list categories: %s", err)
	}
	for _, category := range categories {
		Out.Printf("%s %s", category.Id, category.Name)
	}
}
