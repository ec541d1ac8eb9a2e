package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/projecty/backend/internal/errors"
	"github.com/projecty/backend/internal/posts"
	"github.com/projecty/backend/internal/storage"
	"github.com/projecty/backend/internal/util"
)

// createPostRequest accepts media_url as an alias of image_url
type createPostRequest struct {
	Content        *string `json:"content" form:"content"`
	ImageURL       *string `json:"image_url" form:"image_url"`
	MediaURL       *string `json:"media_url" form:"media_url"`
	OriginalPostID *string `json:"original_post_id" form:"original_post_id"`
}

// ListPosts returns recent posts from everyone
// GET /api/v1/posts?limit&offset
func (h *Handlers) ListPosts(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), posts.DefaultPageSize, posts.MaxPageSize)
	views, err := h.posts.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err, "failed to fetch posts")
		return
	}
	c.JSON(http.StatusOK, views)
}

// ListUserPosts returns one author's posts
// GET /api/v1/posts/user/:userId
func (h *Handlers) ListUserPosts(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), posts.DefaultPageSize, posts.MaxPageSize)
	views, err := h.posts.ListByUser(c.Request.Context(), c.Param("userId"), limit, offset)
	if err != nil {
		respondError(c, err, "failed to fetch posts")
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetPost returns one post with counters
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	view, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to fetch post")
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreatePost creates a post or repost. JSON bodies carry image_url;
// multipart bodies may carry an "image" file instead.
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req createPostRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	in := posts.CreateInput{
		Content:        req.Content,
		ImageURL:       req.ImageURL,
		OriginalPostID: req.OriginalPostID,
	}
	if in.ImageURL == nil {
		in.ImageURL = req.MediaURL
	}

	if isMultipart(c) {
		url, err := h.uploadImage(c, userID, "image", storage.KindPost)
		if err != nil {
			return
		}
		if url != nil {
			in.ImageURL = url
		}
	}

	result, err := h.posts.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err, "failed to create post")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ToggleLike likes or unlikes a post. A racing duplicate like answers 409
// with liked=true.
// POST /api/v1/posts/:id/like and /api/v1/likes/:postId
func (h *Handlers) ToggleLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result, err := h.posts.ToggleLike(c.Request.Context(), userID, postParam(c))
	if errors.Is(err, posts.ErrAlreadyLiked) {
		c.JSON(http.StatusConflict, gin.H{
			"liked":   true,
			"code":    apierrors.ErrConflict,
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		respondError(c, err, "failed to toggle like")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListComments returns a post's comments, oldest first
// GET /api/v1/posts/:id/comments and /api/v1/comments/:postId
func (h *Handlers) ListComments(c *gin.Context) {
	comments, err := h.posts.ListComments(c.Request.Context(), postParam(c))
	if err != nil {
		respondError(c, err, "failed to fetch comments")
		return
	}
	c.JSON(http.StatusOK, comments)
}

// AddComment comments on a post. The body field is "content"; "text" is
// also accepted.
// POST /api/v1/posts/:id/comments and /api/v1/comments/:postId
func (h *Handlers) AddComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
		Text    string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	content := req.Content
	if strings.TrimSpace(content) == "" {
		content = req.Text
	}

	comment, err := h.posts.AddComment(c.Request.Context(), userID, postParam(c), content)
	if err != nil {
		respondError(c, err, "failed to add comment")
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// postParam reads the post id from either route shape
func postParam(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.Param("postId")
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// uploadImage stores the optional file in field and returns its URL, or nil
// when no file was sent. On failure the response has been written and the
// error is returned only so the caller stops.
func (h *Handlers) uploadImage(c *gin.Context, userID, field, kind string) (*string, error) {
	file, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		util.RespondBadRequest(c, "invalid "+field+" upload")
		return nil, err
	}
	if h.uploader == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("image uploads are not configured"))
		return nil, errors.New("no uploader")
	}

	data, err := util.ReadImageUpload(file)
	if err != nil {
		util.RespondValidationError(c, field, err.Error())
		return nil, err
	}

	result, err := h.uploader.UploadImage(c.Request.Context(), data, userID, file.Filename, kind)
	if err != nil {
		respondError(c, err, "failed to upload image")
		return nil, err
	}
	return &result.URL, nil
}
