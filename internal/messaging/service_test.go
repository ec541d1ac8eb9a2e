package messaging

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/realtime"
	"github.com/projecty/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type MessagingServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	notifier *testutil.RecordingNotifier
	service  *Service
	ctx      context.Context

	alice *models.User
	bob   *models.User
	carol *models.User
}

func (suite *MessagingServiceTestSuite) SetupTest() {
	suite.db = testutil.NewSQLiteDB(suite.T())
	suite.notifier = &testutil.RecordingNotifier{}
	suite.service = NewService(suite.db, suite.notifier)
	suite.ctx = context.Background()
	suite.alice = testutil.CreateUser(suite.T(), suite.db, "alice")
	suite.bob = testutil.CreateUser(suite.T(), suite.db, "bob")
	suite.carol = testutil.CreateUser(suite.T(), suite.db, "carol")
}

func TestMessagingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MessagingServiceTestSuite))
}

func (suite *MessagingServiceTestSuite) message(convID, senderID, body string, at time.Time) {
	require.NoError(suite.T(), suite.db.Create(&models.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Body:           body,
		SentAt:         at.UTC(),
	}).Error)
}

func (suite *MessagingServiceTestSuite) TestStartIsIdempotent() {
	t := suite.T()

	first, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// either side finds the same thread
	again, err := suite.service.Start(suite.ctx, suite.bob.ID, suite.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	var participants int64
	suite.db.Model(&models.ConversationParticipant{}).Where("conversation_id = ?", first).Count(&participants)
	assert.Equal(t, int64(2), participants)

	var convs int64
	suite.db.Model(&models.Conversation{}).Count(&convs)
	assert.Equal(t, int64(1), convs)
}

func (suite *MessagingServiceTestSuite) TestStartRejectsSelfAndMissing() {
	_, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.alice.ID)
	assert.ErrorIs(suite.T(), err, ErrSelfMessage)

	_, err = suite.service.Start(suite.ctx, suite.alice.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)
}

func (suite *MessagingServiceTestSuite) TestSendPushesToOtherParticipant() {
	t := suite.T()
	convID, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)

	view, err := suite.service.Send(suite.ctx, suite.alice.ID, convID, "  hey bob  ")
	require.NoError(t, err)
	assert.Equal(t, "hey bob", view.Text)
	assert.Equal(t, "alice", view.SenderUsername)

	events := suite.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventMessage, events[0].Event)
	assert.Equal(t, realtime.UserRoom(suite.bob.ID), events[0].Room)
	push, ok := events[0].Payload.(MessagePush)
	require.True(t, ok)
	assert.Equal(t, view.ID, push.Message.ID)
}

func (suite *MessagingServiceTestSuite) TestSendValidation() {
	t := suite.T()
	convID, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)

	_, err = suite.service.Send(suite.ctx, suite.alice.ID, convID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = suite.service.Send(suite.ctx, suite.carol.ID, convID, "let me in")
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = suite.service.Send(suite.ctx, suite.alice.ID, convID, "a"+strings.Repeat("é", MaxMessageLength))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	var n int64
	suite.db.Model(&models.Message{}).Count(&n)
	assert.Zero(t, n)
	assert.Empty(t, suite.notifier.Events())
}

func (suite *MessagingServiceTestSuite) TestSendCountsCharactersNotBytes() {
	t := suite.T()
	convID, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)

	text := strings.Repeat("é", MaxMessageLength)
	view, err := suite.service.Send(suite.ctx, suite.alice.ID, convID, text)
	require.NoError(t, err)
	assert.Equal(t, text, view.Text)
	assert.True(t, utf8.ValidString(view.Text))

	var stored models.Message
	require.NoError(t, suite.db.First(&stored, "id = ?", view.ID).Error)
	assert.Equal(t, text, stored.Body)
}

func (suite *MessagingServiceTestSuite) TestSendSurvivesPushFailure() {
	t := suite.T()
	convID, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)

	suite.notifier.Err = assert.AnError
	_, err = suite.service.Send(suite.ctx, suite.alice.ID, convID, "still stored")
	require.NoError(t, err)

	var n int64
	suite.db.Model(&models.Message{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func (suite *MessagingServiceTestSuite) TestMessagesOldestFirst() {
	t := suite.T()
	convID, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	suite.message(convID, suite.bob.ID, "second", base.Add(2*time.Minute))
	suite.message(convID, suite.alice.ID, "first", base)

	msgs, err := suite.service.Messages(suite.ctx, suite.alice.ID, convID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "alice", msgs[0].SenderUsername)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, suite.bob.ID, msgs[1].SenderID)

	_, err = suite.service.Messages(suite.ctx, suite.carol.ID, convID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func (suite *MessagingServiceTestSuite) TestConversationsOrderAndUnread() {
	t := suite.T()
	withBob, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	withCarol, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.carol.ID)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	suite.message(withBob, suite.bob.ID, "old", base)
	suite.message(withBob, suite.alice.ID, "reply", base.Add(time.Minute))
	suite.message(withBob, suite.bob.ID, "new one", base.Add(2*time.Minute))
	suite.message(withBob, suite.bob.ID, "newer", base.Add(3*time.Minute))
	suite.message(withCarol, suite.carol.ID, "hi", base.Add(10*time.Minute))

	convs, err := suite.service.Conversations(suite.ctx, suite.alice.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, withCarol, convs[0].ID)
	assert.Equal(t, "carol", convs[0].User.Username)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "hi", *convs[0].LastMessage)
	assert.Equal(t, int64(1), convs[0].Unread)

	assert.Equal(t, withBob, convs[1].ID)
	assert.Equal(t, "newer", *convs[1].LastMessage)
	// only bob's messages after alice's reply count
	assert.Equal(t, int64(2), convs[1].Unread)

	bobView, err := suite.service.Conversations(suite.ctx, suite.bob.ID)
	require.NoError(t, err)
	require.Len(t, bobView, 1)
	assert.Equal(t, "alice", bobView[0].User.Username)
	assert.Zero(t, bobView[0].Unread)
}

func (suite *MessagingServiceTestSuite) TestConversationWithoutMessages() {
	t := suite.T()
	convID, err := suite.service.Start(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)

	var conv models.Conversation
	require.NoError(t, suite.db.First(&conv, "id = ?", convID).Error)

	convs, err := suite.service.Conversations(suite.ctx, suite.bob.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Nil(t, convs[0].LastMessage)
	assert.Zero(t, convs[0].Unread)
	assert.True(t, convs[0].Timestamp.Equal(conv.CreatedAt))
}

func (suite *MessagingServiceTestSuite) TestMalformedConversationID() {
	_, err := suite.service.Messages(suite.ctx, suite.alice.ID, "not-a-uuid")
	assert.ErrorIs(suite.T(), err, ErrNotParticipant)

	_, err = suite.service.Send(suite.ctx, suite.alice.ID, "not-a-uuid", "hi")
	assert.ErrorIs(suite.T(), err, ErrNotParticipant)

	_, err = suite.service.Start(suite.ctx, suite.alice.ID, "not-a-uuid")
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)
}

func (suite *MessagingServiceTestSuite) TestConversationsEmpty() {
	convs, err := suite.service.Conversations(suite.ctx, suite.carol.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), convs)
}
