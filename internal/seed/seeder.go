// Package seed fills a development database with fake users and activity.
// Everything goes through the domain services so counters, notifications
// and hashtag links end up exactly as real traffic would leave them.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/projecty/backend/internal/auth"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/messaging"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/posts"
	"github.com/projecty/backend/internal/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DevPassword is the password of every seeded account
const DevPassword = "password123"

// Options sizes a seeding run
type Options struct {
	Users           int
	PostsPerUser    int
	FollowsPerUser  int
	LikesPerPost    int
	CommentsPerPost int
	RepostRatio     float64
	Conversations   int
	Seed            uint64
}

// DevOptions is a small but well connected data set
func DevOptions() Options {
	return Options{
		Users:           40,
		PostsPerUser:    6,
		FollowsPerUser:  8,
		LikesPerPost:    4,
		CommentsPerPost: 2,
		RepostRatio:     0.1,
		Conversations:   20,
		Seed:            uint64(time.Now().UnixNano()),
	}
}

// TestOptions is the minimal deterministic data set
func TestOptions() Options {
	return Options{
		Users:           5,
		PostsPerUser:    2,
		FollowsPerUser:  2,
		LikesPerPost:    2,
		CommentsPerPost: 1,
		RepostRatio:     0.2,
		Conversations:   2,
		Seed:            42,
	}
}

// Stats counts what a run created
type Stats struct {
	Users         int
	Follows       int
	Posts         int
	Reposts       int
	Likes         int
	Comments      int
	Conversations int
	Messages      int
}

// Seeder handles database seeding operations
type Seeder struct {
	db        *gorm.DB
	auth      *auth.Service
	posts     *posts.Service
	social    *social.Service
	messaging *messaging.Service
	rng       *rand.Rand
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	_ = gofakeit.Seed(opts.Seed)
	return &Seeder{
		db:        db,
		auth:      auth.NewService(db, []byte("seed"), time.Hour),
		posts:     posts.NewService(db, nil),
		social:    social.NewService(db, nil),
		messaging: messaging.NewService(db, nil),
		rng:       rand.New(rand.NewPCG(opts.Seed, opts.Seed>>1|1)),
	}
}

// SeedDev seeds the database according to opts
func (s *Seeder) SeedDev(ctx context.Context, opts Options) (*Stats, error) {
	stats := &Stats{}

	interests, err := s.auth.Interests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load interests: %w", err)
	}
	if len(interests) < auth.MinInterests {
		return nil, fmt.Errorf("reference data missing: run migrations first")
	}

	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(ctx, opts.Users, interests)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	stats.Users = len(users)

	logger.Log.Info("Creating follows...")
	if stats.Follows, err = s.seedFollows(ctx, users, opts.FollowsPerUser); err != nil {
		return nil, fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating posts...")
	postIDs, err := s.seedPosts(ctx, users, interests, opts, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating likes and comments...")
	if err := s.seedInteractions(ctx, users, postIDs, opts, stats); err != nil {
		return nil, fmt.Errorf("failed to seed interactions: %w", err)
	}

	logger.Log.Info("Creating conversations...")
	if err := s.seedConversations(ctx, users, opts.Conversations, stats); err != nil {
		return nil, fmt.Errorf("failed to seed conversations: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", stats.Users),
		zap.Int("follows", stats.Follows),
		zap.Int("posts", stats.Posts),
		zap.Int("reposts", stats.Reposts),
		zap.Int("likes", stats.Likes),
		zap.Int("comments", stats.Comments),
		zap.Int("conversations", stats.Conversations),
		zap.Int("messages", stats.Messages))
	return stats, nil
}

var nonUsername = regexp.MustCompile(`[^a-z0-9_]`)

func (s *Seeder) username() string {
	base := nonUsername.ReplaceAllString(strings.ToLower(gofakeit.Username()), "")
	if len(base) > 20 {
		base = base[:20]
	}
	if len(base) < 3 {
		base = "user"
	}
	return fmt.Sprintf("%s%04d", base, s.rng.IntN(10000))
}

func (s *Seeder) seedUsers(ctx context.Context, count int, interests []models.Interest) ([]string, error) {
	ids := make([]string, 0, count)
	for len(ids) < count {
		username := s.username()
		resp, err := s.auth.Register(ctx, auth.RegisterRequest{
			Email:    username + "@example.com",
			Password: DevPassword,
			Username: username,
		})
		if errors.Is(err, auth.ErrUserExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		userID := resp.User.ID

		name := gofakeit.Name()
		bio := gofakeit.HipsterSentence()
		avatar := fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username)
		if _, err := s.social.UpdateProfile(ctx, userID, social.UpdateProfileInput{
			DisplayName: &name,
			Bio:         &bio,
			AvatarURL:   &avatar,
		}); err != nil {
			return nil, err
		}

		picks := s.pick(len(interests), auth.MinInterests+s.rng.IntN(2))
		interestIDs := make([]uint, 0, len(picks))
		for _, i := range picks {
			interestIDs = append(interestIDs, interests[i].ID)
		}
		if err := s.auth.CompleteOnboarding(ctx, userID, interestIDs); err != nil {
			return nil, err
		}

		ids = append(ids, userID)
	}
	return ids, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []string, perUser int) (int, error) {
	created := 0
	for _, follower := range users {
		for _, i := range s.pick(len(users), perUser) {
			target := users[i]
			if target == follower {
				continue
			}
			res, err := s.social.ToggleFollow(ctx, follower, target)
			if err != nil {
				return created, err
			}
			if res.Following {
				created++
			}
		}
	}
	return created, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []string, interests []models.Interest, opts Options, stats *Stats) ([]string, error) {
	var ids []string
	for _, author := range users {
		for n := 0; n < opts.PostsPerUser; n++ {
			in := posts.CreateInput{}
			if len(ids) > 0 && s.rng.Float64() < opts.RepostRatio {
				original := ids[s.rng.IntN(len(ids))]
				in.OriginalPostID = &original
				if s.rng.IntN(2) == 0 {
					quote := gofakeit.HipsterSentence()
					in.Content = &quote
				}
			} else {
				tag := strings.ToLower(interests[s.rng.IntN(len(interests))].Name)
				body := fmt.Sprintf("%s #%s", gofakeit.HipsterSentence(), tag)
				if s.rng.IntN(4) == 0 {
					body += " #" + strings.ToLower(gofakeit.Word())
				}
				in.Content = &body
			}

			res, err := s.posts.Create(ctx, author, in)
			if err != nil {
				return nil, err
			}
			ids = append(ids, res.PostID)
			stats.Posts++
			if res.IsRepost {
				stats.Reposts++
			}
		}
	}
	return ids, nil
}

func (s *Seeder) seedInteractions(ctx context.Context, users, postIDs []string, opts Options, stats *Stats) error {
	for _, postID := range postIDs {
		for _, i := range s.pick(len(users), opts.LikesPerPost) {
			res, err := s.posts.ToggleLike(ctx, users[i], postID)
			if err != nil {
				return err
			}
			if res.Liked {
				stats.Likes++
			}
		}
		for n := 0; n < opts.CommentsPerPost; n++ {
			commenter := users[s.rng.IntN(len(users))]
			if _, err := s.posts.AddComment(ctx, commenter, postID, gofakeit.HipsterSentence()); err != nil {
				return err
			}
			stats.Comments++
		}
	}
	return nil
}

func (s *Seeder) seedConversations(ctx context.Context, users []string, count int, stats *Stats) error {
	if len(users) < 2 {
		return nil
	}
	seen := make(map[string]bool)
	for n := 0; n < count; n++ {
		pair := s.pick(len(users), 2)
		a, b := users[pair[0]], users[pair[1]]
		convID, err := s.messaging.Start(ctx, a, b)
		if err != nil {
			return err
		}
		if !seen[convID] {
			seen[convID] = true
			stats.Conversations++
		}

		for m := 0; m < 1+s.rng.IntN(5); m++ {
			sender := a
			if m%2 == 1 {
				sender = b
			}
			if _, err := s.messaging.Send(ctx, sender, convID, gofakeit.HipsterSentence()); err != nil {
				return err
			}
			stats.Messages++
		}
	}
	return nil
}

// pick returns up to k distinct indexes in [0, n)
func (s *Seeder) pick(n, k int) []int {
	if k > n {
		k = n
	}
	return s.rng.Perm(n)[:k]
}

// Clean deletes all seeded and user data, keeping reference tables
func (s *Seeder) Clean(ctx context.Context) error {
	// Delete in reverse order of dependencies
	tables := []string{
		"notifications",
		"messages",
		"conversation_participants",
		"conversations",
		"post_hashtags",
		"reposts",
		"comments",
		"post_likes",
		"post_counters",
		"posts",
		"user_blocks",
		"follows",
		"user_interests",
		"profiles",
		"users",
	}
	db := s.db.WithContext(ctx)
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	// hashtags created by posts; interest tags are reference data
	if err := db.Exec("DELETE FROM hashtags WHERE interest_id IS NULL").Error; err != nil {
		return fmt.Errorf("failed to clean hashtags: %w", err)
	}
	return nil
}
