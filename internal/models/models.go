package models

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Interest{},
		&UserInterest{},
		&Follow{},
		&UserBlock{},
		&Post{},
		&PostCounters{},
		&PostLike{},
		&Comment{},
		&Repost{},
		&Hashtag{},
		&PostHashtag{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&NotificationType{},
		&Notification{},
	}
}

// DefaultInterests are seeded by the migrator; each gets a hashtag of the
// same name with an explicit interest_id.
var DefaultInterests = []string{"Tech", "Art", "Music", "Sports", "Food", "Gaming"}
