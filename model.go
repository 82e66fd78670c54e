package shareme

// server state snapshots, immutable from the client's perspective.
// local optimistic edits are applied to in-memory cache copies only and are
// superseded by the next authoritative fetch

type User struct {
	Id         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar,omitempty"`
	ProfileImg string `json:"profileImg,omitempty"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// the feed list item. comments are only present on the detail record
type PostSummary struct {
	Id            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	ImageSrc      string `json:"imageSrc"`
	LikesCount    int    `json:"likesCount"`
	UserLikedPost bool   `json:"userLikedPost"`
	PostedById    string `json:"postedById"`
	User          *User  `json:"user,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

type Post struct {
	Id            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ImageSrc      string     `json:"imageSrc"`
	LikesCount    int        `json:"likesCount"`
	UserLikedPost bool       `json:"userLikedPost"`
	PostedById    string     `json:"postedById"`
	User          *User      `json:"user,omitempty"`
	Comments      []*Comment `json:"comments"`
	CreatedAt     string     `json:"createdAt"`
	UpdatedAt     string     `json:"updatedAt"`
}

type Comment struct {
	Id        string `json:"id"`
	Content   string `json:"content"`
	User      *User  `json:"user,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Category struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// one page of a profile view. the user header repeats on every page,
// consumers read it from the first page
type UserProfile struct {
	User  *User          `json:"user"`
	Posts []*PostSummary `json:"posts"`
}

type ProfileTab string

const (
	ProfileTabCreated ProfileTab = "CREATED"
	ProfileTabLiked   ProfileTab = "LIKED"
)
