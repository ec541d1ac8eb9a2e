package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

const userAgent = "projecty-cli/0.1.0"

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field"`
	Details    string `json:"details"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Field != "" {
		return fmt.Sprintf("[%d] %s (%s)", e.StatusCode, msg, e.Field)
	}
	return fmt.Sprintf("[%d] %s", e.StatusCode, msg)
}

type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type AuthResponse struct {
	User                   UserSummary `json:"user"`
	Token                  string      `json:"token"`
	ExpiresAt              time.Time   `json:"expiresAt"`
	HasCompletedOnboarding bool        `json:"hasCompletedOnboarding"`
}

type Post struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"displayName"`
	Content        *string   `json:"content"`
	ImageURL       *string   `json:"imageUrl"`
	OriginalPostID *string   `json:"originalPostId"`
	LikeCount      int       `json:"likeCount"`
	CommentCount   int       `json:"commentCount"`
	RepostCount    int       `json:"repostCount"`
	CreatedAt      time.Time `json:"createdAt"`
	Source         string    `json:"source"`
}

type FeedPage struct {
	Posts           []Post  `json:"posts"`
	NextCursorToken *string `json:"nextCursorToken"`
	HasMore         bool    `json:"hasMore"`
	ColdStart       bool    `json:"coldStart"`
}

type CreatePostResult struct {
	PostID   string `json:"postId"`
	IsRepost bool   `json:"isRepost"`
	Post     *Post  `json:"post"`
}

type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

type Notification struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	ContentID   *string   `json:"contentId"`
	IsRead      bool      `json:"isRead"`
	Timestamp   time.Time `json:"timestamp"`
	TriggerUser struct {
		Username string `json:"username"`
	} `json:"triggerUser"`
}

type UserHit struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Bio         *string `json:"bio"`
}

// NewPost describes a post to create. ImagePath switches to a multipart upload.
type NewPost struct {
	Content        string
	ImagePath      string
	OriginalPostID string
}

// Client calls the Project-Y API
type Client struct {
	http *resty.Client
	log  *log.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	rc.JSONMarshal = json.Marshal
	rc.JSONUnmarshal = json.Unmarshal

	rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP request", "method", req.Method, "url", req.URL)
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP response", "status", resp.StatusCode(), "duration", resp.Time())
		return nil
	})

	return &Client{http: rc, log: logger}
}

// SetToken authenticates every following request
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

func (c *Client) request(ctx context.Context, result any) *resty.Request {
	return c.http.R().SetContext(ctx).SetResult(result).SetError(&APIError{})
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || (apiErr.Code == "" && apiErr.Message == "") {
		return &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
	}
	apiErr.StatusCode = resp.StatusCode()
	return apiErr
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	resp, err := c.request(ctx, &out).
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/api/v1/auth/login")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	c.log.Debug("Logged in", "username", out.User.Username)
	return &out, nil
}

// Feed fetches one page of the hybrid feed. An empty cursor starts at now.
func (c *Client) Feed(ctx context.Context, cursor string, limit int) (*FeedPage, error) {
	var out FeedPage
	req := c.request(ctx, &out)
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if err := check(req.Get("/api/v1/feed/hybrid")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePost(ctx context.Context, p NewPost) (*CreatePostResult, error) {
	var out CreatePostResult
	req := c.request(ctx, &out)

	if p.ImagePath != "" {
		form := map[string]string{}
		if p.Content != "" {
			form["content"] = p.Content
		}
		if p.OriginalPostID != "" {
			form["original_post_id"] = p.OriginalPostID
		}
		req.SetFormData(form).SetFile("image", p.ImagePath)
	} else {
		body := map[string]string{}
		if p.Content != "" {
			body["content"] = p.Content
		}
		if p.OriginalPostID != "" {
			body["original_post_id"] = p.OriginalPostID
		}
		req.SetBody(body)
	}

	if err := check(req.Post("/api/v1/posts")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleLike(ctx context.Context, postID string) (*LikeResult, error) {
	var out LikeResult
	resp, err := c.request(ctx, &out).
		SetPathParam("id", postID).
		Post("/api/v1/posts/{id}/like")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := check(c.request(ctx, &out).Get("/api/v1/notifications")); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkNotificationsRead(ctx context.Context) (int64, error) {
	var out struct {
		Marked int64 `json:"marked"`
	}
	if err := check(c.request(ctx, &out).Post("/api/v1/notifications/read")); err != nil {
		return 0, err
	}
	return out.Marked, nil
}

func (c *Client) SearchUsers(ctx context.Context, q string) ([]UserHit, error) {
	var out []UserHit
	resp, err := c.request(ctx, &out).
		SetQueryParams(map[string]string{"q": q, "type": "users"}).
		Get("/api/v1/search")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchPosts(ctx context.Context, q string) ([]Post, error) {
	var out []Post
	resp, err := c.request(ctx, &out).
		SetQueryParams(map[string]string{"q": q, "type": "posts"}).
		Get("/api/v1/search")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}
