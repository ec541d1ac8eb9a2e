package social

import (
	"context"
	"testing"

	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/realtime"
	"github.com/projecty/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type SocialServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	notifier *testutil.RecordingNotifier
	service  *Service
	ctx      context.Context

	alice *models.User
	bob   *models.User
}

func (suite *SocialServiceTestSuite) SetupTest() {
	suite.db = testutil.NewSQLiteDB(suite.T())
	suite.notifier = &testutil.RecordingNotifier{}
	suite.service = NewService(suite.db, suite.notifier)
	suite.ctx = context.Background()
	suite.alice = testutil.CreateUser(suite.T(), suite.db, "alice")
	suite.bob = testutil.CreateUser(suite.T(), suite.db, "bob")
}

func TestSocialServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SocialServiceTestSuite))
}

func (suite *SocialServiceTestSuite) TestSelfFollowRejected() {
	_, err := suite.service.ToggleFollow(suite.ctx, suite.alice.ID, suite.alice.ID)
	assert.ErrorIs(suite.T(), err, ErrSelfFollow)

	var n int64
	suite.db.Model(&models.Notification{}).Count(&n)
	assert.Zero(suite.T(), n)
}

func (suite *SocialServiceTestSuite) TestFollowMissingUser() {
	_, err := suite.service.ToggleFollow(suite.ctx, suite.alice.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)

	_, err = suite.service.ToggleFollow(suite.ctx, suite.alice.ID, "abc")
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)
	_, err = suite.service.ToggleBlock(suite.ctx, suite.alice.ID, "abc")
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)
	_, err = suite.service.Profile(suite.ctx, suite.alice.ID, "abc")
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)
}

func (suite *SocialServiceTestSuite) TestToggleFollow() {
	t := suite.T()

	res, err := suite.service.ToggleFollow(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.True(t, res.Following)
	assert.Equal(t, int64(1), res.FollowersCount)

	var notes []models.Notification
	require.NoError(t, suite.db.Preload("Type").Where("recipient_id = ?", suite.bob.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFollow, notes[0].Type.Name)

	events := suite.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventFollow, events[0].Event)
	assert.Equal(t, realtime.UserRoom(suite.bob.ID), events[0].Room)

	res, err = suite.service.ToggleFollow(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.False(t, res.Following)
	assert.Zero(t, res.FollowersCount)
	assert.Len(t, suite.notifier.Events(), 1)
}

func (suite *SocialServiceTestSuite) TestRelationshipStatusPrecedence() {
	assert.Equal(suite.T(), StatusFollowing, RelationshipStatus(true, true, true))
	assert.Equal(suite.T(), StatusFollowBack, RelationshipStatus(false, true, true))
	assert.Equal(suite.T(), StatusBlocked, RelationshipStatus(false, false, true))
	assert.Equal(suite.T(), StatusFollow, RelationshipStatus(false, false, false))
}

func (suite *SocialServiceTestSuite) TestProfile() {
	t := suite.T()
	carol := testutil.CreateUser(t, suite.db, "carol")
	testutil.Follow(t, suite.db, suite.bob.ID, suite.alice.ID)
	testutil.Follow(t, suite.db, carol.ID, suite.alice.ID)
	testutil.Follow(t, suite.db, suite.alice.ID, carol.ID)

	p, err := suite.service.Profile(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, int64(0), p.FollowersCount)
	assert.Equal(t, int64(1), p.FollowingCount)
	assert.False(t, p.IsFollowing)
	assert.True(t, p.IsFollowedBy)
	assert.Equal(t, StatusFollowBack, p.RelationshipStatus)

	p, err = suite.service.Profile(suite.ctx, suite.alice.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFollowing, p.RelationshipStatus)

	p, err = suite.service.Profile(suite.ctx, suite.bob.ID, suite.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.FollowersCount)
	assert.Equal(t, StatusFollowing, p.RelationshipStatus)

	_, err = suite.service.Profile(suite.ctx, suite.alice.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func (suite *SocialServiceTestSuite) TestUpdateProfile() {
	t := suite.T()
	bio := "I build things"
	p, err := suite.service.UpdateProfile(suite.ctx, suite.alice.ID, UpdateProfileInput{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "alice", p.DisplayName)
	require.NotNil(t, p.Bio)
	assert.Equal(t, bio, *p.Bio)
}

func (suite *SocialServiceTestSuite) TestBlockRemovesFollowsBothWays() {
	t := suite.T()
	testutil.Follow(t, suite.db, suite.alice.ID, suite.bob.ID)
	testutil.Follow(t, suite.db, suite.bob.ID, suite.alice.ID)

	res, err := suite.service.ToggleBlock(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.True(t, res.Blocked)

	var follows int64
	suite.db.Model(&models.Follow{}).Count(&follows)
	assert.Zero(t, follows)

	p, err := suite.service.Profile(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, p.RelationshipStatus)

	_, err = suite.service.ToggleFollow(suite.ctx, suite.bob.ID, suite.alice.ID)
	assert.ErrorIs(t, err, ErrBlocked)

	res, err = suite.service.ToggleBlock(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.False(t, res.Blocked)
}

func (suite *SocialServiceTestSuite) TestSelfBlockRejected() {
	_, err := suite.service.ToggleBlock(suite.ctx, suite.alice.ID, suite.alice.ID)
	assert.ErrorIs(suite.T(), err, ErrSelfBlock)
}
