package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/auth"
	"github.com/projecty/backend/internal/feed"
	"github.com/projecty/backend/internal/messaging"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/notifications"
	"github.com/projecty/backend/internal/posts"
	"github.com/projecty/backend/internal/search"
	"github.com/projecty/backend/internal/social"
	"github.com/projecty/backend/internal/storage"
	"github.com/projecty/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// HandlersTestSuite drives the full router against a real Postgres
type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
	notifier *testutil.RecordingNotifier
	uploader *storage.MemoryUploader

	alice *models.User
	bob   *models.User
	carol *models.User
}

func (suite *HandlersTestSuite) SetupSuite() {
	db, err := testutil.OpenPostgres()
	if err != nil {
		suite.T().Skipf("Skipping handler tests: database not available (%v)", err)
		return
	}
	suite.db = db
}

func (suite *HandlersTestSuite) SetupTest() {
	require.NoError(suite.T(), testutil.TruncateAll(suite.db))

	suite.notifier = &testutil.RecordingNotifier{}
	suite.uploader = storage.NewMemoryUploader("https://cdn.test")
	suite.handlers = NewHandlers(suite.db, auth.NewService(suite.db, []byte("test-secret"), time.Hour), suite.notifier)
	suite.handlers.SetUploader(suite.uploader)
	// identity shuffle keeps pool order stable for assertions
	suite.handlers.SetFeedComposer(feed.NewComposer(suite.db).WithRand(func(n int) int { return n - 1 }))
	suite.router = newRouter(suite.handlers)

	suite.alice = testutil.CreateUser(suite.T(), suite.db, "alice")
	suite.bob = testutil.CreateUser(suite.T(), suite.db, "bob")
	suite.carol = testutil.CreateUser(suite.T(), suite.db, "carol")
}

func (suite *HandlersTestSuite) TearDownSuite() {
	if suite.db != nil {
		_ = testutil.TruncateAll(suite.db)
	}
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	h, _ := newMockHandlers()
	r := newRouter(h)
	const viewer = "7d9b5c44-2f0e-4b8e-a7a3-0c6f1d2e9b10"

	for _, tc := range []struct {
		method, path string
		body         any
		status       int
	}{
		{http.MethodGet, "/api/v1/posts/abc", nil, http.StatusNotFound},
		{http.MethodPost, "/api/v1/posts/abc/like", nil, http.StatusNotFound},
		{http.MethodPost, "/api/v1/likes/abc", nil, http.StatusNotFound},
		{http.MethodGet, "/api/v1/posts/abc/comments", nil, http.StatusNotFound},
		{http.MethodPost, "/api/v1/comments/abc", map[string]string{"content": "hi"}, http.StatusNotFound},
		{http.MethodPost, "/api/v1/posts", map[string]string{"original_post_id": "abc"}, http.StatusNotFound},
		{http.MethodGet, "/api/v1/profile/abc", nil, http.StatusNotFound},
		{http.MethodPost, "/api/v1/users/abc/follow", nil, http.StatusNotFound},
		{http.MethodPost, "/api/v1/users/abc/block", nil, http.StatusNotFound},
		{http.MethodPost, "/api/v1/messages/start", map[string]string{"targetUserId": "abc"}, http.StatusNotFound},
		{http.MethodGet, "/api/v1/messages/abc", nil, http.StatusForbidden},
		{http.MethodPost, "/api/v1/messages", map[string]string{"conversationId": "abc", "text": "hi"}, http.StatusForbidden},
		{http.MethodGet, "/api/v1/posts/user/abc", nil, http.StatusOK},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := doJSON(t, r, tc.method, tc.path, viewer, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func (suite *HandlersTestSuite) createPost(userID, content string) string {
	w := doJSON(suite.T(), suite.router, http.MethodPost, "/api/v1/posts", userID, map[string]any{"content": content})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	return decode[posts.CreateResult](suite.T(), w).PostID
}

func (suite *HandlersTestSuite) TestHealth() {
	w := doJSON(suite.T(), suite.router, http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestRegisterThenDuplicate() {
	t := suite.T()
	body := map[string]string{"email": "dave@example.com", "password": "secret1", "username": "dave"}

	w := doJSON(t, suite.router, http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestPostLikeAndCommentFlow() {
	t := suite.T()
	postID := suite.createPost(suite.alice.ID, "hello #tech")

	w := doJSON(t, suite.router, http.MethodGet, "/api/v1/posts/"+postID, suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[posts.View](t, w)
	assert.Zero(t, view.LikeCount)
	assert.Zero(t, view.CommentCount)
	assert.Zero(t, view.RepostCount)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/likes/"+postID, suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	like := decode[posts.LikeResult](t, w)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.LikeCount)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/posts/"+postID+"/like", suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	like = decode[posts.LikeResult](t, w)
	assert.False(t, like.Liked)
	assert.Zero(t, like.LikeCount)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/comments/"+postID, suite.bob.ID, map[string]string{"text": "nice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/posts/"+postID+"/comments", suite.alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	comments := decode[[]posts.CommentView](t, w)
	require.Len(t, comments, 1)
	assert.Equal(t, "bob", comments[0].Username)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/comments/"+postID, suite.bob.ID, map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// one like notification and one comment notification for alice
	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/notifications", suite.alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]notifications.Item](t, w)
	require.Len(t, items, 2)
	assert.Equal(t, "comment", items[0].Type)
	assert.Equal(t, "bob commented on your post", items[0].Message)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/notifications/unread", suite.alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode[map[string]any](t, w)["unread"])
}

func (suite *HandlersTestSuite) TestCreatePostValidation() {
	t := suite.T()

	w := doJSON(t, suite.router, http.MethodPost, "/api/v1/posts", suite.alice.ID, map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/posts", suite.alice.ID, map[string]any{
		"original_post_id": "00000000-0000-0000-0000-000000000000",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/posts/00000000-0000-0000-0000-000000000000", suite.alice.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestPureRepost() {
	t := suite.T()
	original := suite.createPost(suite.alice.ID, "original")

	w := doJSON(t, suite.router, http.MethodPost, "/api/v1/posts", suite.bob.ID, map[string]any{"original_post_id": original})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[posts.CreateResult](t, w)
	assert.True(t, result.IsRepost)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/posts/"+original, suite.bob.ID, nil)
	assert.Equal(t, 1, decode[posts.View](t, w).RepostCount)

	events := suite.notifier.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "user_"+suite.alice.ID, events[len(events)-1].Room)
}

func (suite *HandlersTestSuite) TestMultipartImagePost() {
	t := suite.T()
	w := doMultipart(t, suite.router, http.MethodPost, "/api/v1/posts", suite.alice.ID,
		nil, "image", "sunset.png", []byte("\x89PNG fake"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	result := decode[posts.CreateResult](t, w)
	require.NotNil(t, result.Post)
	require.NotNil(t, result.Post.ImageURL)
	assert.True(t, strings.HasPrefix(*result.Post.ImageURL, "https://cdn.test/posts/"))
	assert.Nil(t, result.Post.Content)
}

func (suite *HandlersTestSuite) TestFeedColdAndWarmStart() {
	t := suite.T()
	testutil.Subscribe(t, suite.db, suite.alice.ID, "Tech")
	tagged := suite.createPost(suite.carol.ID, "new chip #tech")
	suite.createPost(suite.carol.ID, "lunch")

	w := doJSON(t, suite.router, http.MethodGet, "/api/v1/feed/hybrid", suite.alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[feed.Page](t, w)
	assert.True(t, page.ColdStart)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, tagged, page.Posts[0].ID)

	// bob follows carol and sees her untagged post from the followed pool
	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/users/"+suite.carol.ID+"/follow", suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/feed/hybrid?limit=10", suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[feed.Page](t, w)
	assert.False(t, page.ColdStart)
	require.Len(t, page.Posts, 2)
	for _, p := range page.Posts {
		assert.Equal(t, feed.SourceFollowed, p.Source)
	}
	require.NotNil(t, page.NextCursor)
	assert.True(t, page.NextCursor.Equal(page.Posts[len(page.Posts)-1].CreatedAt))
	assert.False(t, page.HasMore)
}

func (suite *HandlersTestSuite) TestFollowAndProfile() {
	t := suite.T()

	w := doJSON(t, suite.router, http.MethodPost, "/api/v1/users/"+suite.alice.ID+"/follow", suite.alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/users/"+suite.bob.ID+"/follow", suite.alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[social.FollowResult](t, w).Following)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/profile/"+suite.alice.ID, suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[social.Profile](t, w)
	assert.Equal(t, social.StatusFollowBack, profile.RelationshipStatus)
	assert.Equal(t, int64(1), profile.FollowingCount)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/profile/00000000-0000-0000-0000-000000000000", suite.bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/profile/not-a-uuid", suite.bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/users/not-a-uuid/follow", suite.bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestUpdateProfileWithAvatar() {
	t := suite.T()
	w := doMultipart(t, suite.router, http.MethodPut, "/api/v1/profile", suite.alice.ID,
		map[string]string{"bio": "hi there"}, "avatar", "me.jpg", []byte("jpeg"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/profile/"+suite.alice.ID, suite.alice.ID, nil)
	profile := decode[social.Profile](t, w)
	require.NotNil(t, profile.Bio)
	assert.Equal(t, "hi there", *profile.Bio)
	require.NotNil(t, profile.AvatarURL)
	assert.Contains(t, *profile.AvatarURL, "/avatars/")
	assert.Equal(t, "alice", profile.DisplayName)
}

func (suite *HandlersTestSuite) TestMessagingFlow() {
	t := suite.T()

	w := doJSON(t, suite.router, http.MethodPost, "/api/v1/messages/start", suite.alice.ID, map[string]string{"targetUserId": suite.alice.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/messages/start", suite.alice.ID, map[string]string{"targetUserId": suite.bob.ID})
	require.Equal(t, http.StatusOK, w.Code)
	convID := decode[map[string]string](t, w)["conversationId"]
	require.NotEmpty(t, convID)

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/messages", suite.alice.ID, map[string]string{"conversationId": convID, "text": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, suite.router, http.MethodPost, "/api/v1/messages", suite.carol.ID, map[string]string{"conversationId": convID, "text": "me too"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/messages/"+convID, suite.carol.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/messages", suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	convs := decode[[]messaging.ConversationSummary](t, w)
	require.Len(t, convs, 1)
	assert.Equal(t, "alice", convs[0].User.Username)
	assert.Equal(t, int64(1), convs[0].Unread)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/messages/"+convID, suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]messaging.MessageView](t, w)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi bob", msgs[0].Text)
}

func (suite *HandlersTestSuite) TestSearch() {
	t := suite.T()
	suite.createPost(suite.alice.ID, "shipping a #tech demo")

	w := doJSON(t, suite.router, http.MethodGet, "/api/v1/search?q=tech", suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]posts.View](t, w), 1)

	w = doJSON(t, suite.router, http.MethodGet, "/api/v1/search?q=ALI&type=users", suite.bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	hits := decode[[]search.UserHit](t, w)
	require.Len(t, hits, 1)
	assert.Equal(t, suite.alice.ID, hits[0].ID)
}
