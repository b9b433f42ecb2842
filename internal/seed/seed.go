// Package seed provides database seeding utilities for development and
// demo environments.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"quill/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	NumComments int
	NumFollows  int
	ShouldClean bool
}

// DefaultOptions is a modest data set suitable for local development.
func DefaultOptions() Options {
	return Options{
		NumUsers:    25,
		NumPosts:    120,
		NumComments: 200,
		NumFollows:  60,
	}
}

// Seed populates the database with demo users, groups, posts, comments,
// and follow edges.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("seeding %d users, %d posts, %d comments, %d follows", opts.NumUsers, opts.NumPosts, opts.NumComments, opts.NumFollows)
	gofakeit.Seed(time.Now().UnixNano())

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return fmt.Errorf("clear data: %w", err)
		}
	}

	if err := Groups(db); err != nil {
		return fmt.Errorf("seed groups: %w", err)
	}
	var groups []*models.Group
	if err := db.Order("title ASC").Find(&groups).Error; err != nil {
		return fmt.Errorf("load groups: %w", err)
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	log.Printf("created %d users", len(users))

	posts, err := createPosts(db, users, groups, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	comments, err := createComments(db, users, posts, opts.NumComments)
	if err != nil {
		return fmt.Errorf("seed comments: %w", err)
	}
	log.Printf("created %d comments", comments)

	follows, err := createFollows(db, users, opts.NumFollows)
	if err != nil {
		return fmt.Errorf("seed follows: %w", err)
	}
	log.Printf("created %d follow edges", follows)

	log.Println("seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	sql := `TRUNCATE TABLE comments, follows, posts, groups, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createUsers(db *gorm.DB, count int) ([]*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, count)

	// A few fixed accounts so the demo environment is easy to log into.
	for _, name := range []string{"demo", "editor", "reader"} {
		if len(users) == count {
			break
		}
		user := &models.User{
			Username: name,
			Email:    fmt.Sprintf("%s@example.com", name),
			Password: string(hashedPassword),
			Bio:      gofakeit.Sentence(8),
		}
		if err := upsertUser(db, user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	for len(users) < count {
		user := &models.User{
			Username: gofakeit.Username(),
			Email:    gofakeit.Email(),
			Password: string(hashedPassword),
			Bio:      gofakeit.Sentence(10),
		}
		if err := upsertUser(db, user); err != nil {
			return nil, err
		}
		if user.ID != 0 {
			users = append(users, user)
		}
	}
	return users, nil
}

// upsertUser skips duplicate usernames or emails instead of failing the run.
func upsertUser(db *gorm.DB, user *models.User) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error
}

func createPosts(db *gorm.DB, users []*models.User, groups []*models.Group, count int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		post := &models.Post{
			Text:      gofakeit.Paragraph(1, 3, 12, " "),
			UserID:    author.ID,
			CreatedAt: pastTimestamp(90),
		}
		// Roughly two thirds of posts belong to a group.
		if len(groups) > 0 && rand.Intn(3) != 0 {
			post.GroupID = &groups[rand.Intn(len(groups))].ID
		}
		if err := db.Create(post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func createComments(db *gorm.DB, users []*models.User, posts []*models.Post, count int) (int, error) {
	if len(users) == 0 || len(posts) == 0 {
		return 0, nil
	}
	created := 0
	for i := 0; i < count; i++ {
		comment := &models.Comment{
			PostID:    posts[rand.Intn(len(posts))].ID,
			UserID:    users[rand.Intn(len(users))].ID,
			Text:      gofakeit.Sentence(12),
			CreatedAt: pastTimestamp(30),
		}
		if err := db.Create(comment).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// createFollows draws random directed edges, skipping self-loops. The
// conflict clause makes repeated draws of the same pair a no-op, so the
// returned count can be below the requested one.
func createFollows(db *gorm.DB, users []*models.User, count int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	created := 0
	for i := 0; i < count; i++ {
		follower := users[rand.Intn(len(users))]
		author := users[rand.Intn(len(users))]
		if follower.ID == author.ID {
			continue
		}
		follow := &models.Follow{FollowerID: follower.ID, AuthorID: author.ID}
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "author_id"}},
			DoNothing: true,
		}).Create(follow)
		if res.Error != nil {
			return created, res.Error
		}
		created += int(res.RowsAffected)
	}
	return created, nil
}

// pastTimestamp spreads records over the recent past so listings look lived-in.
func pastTimestamp(maxDays int) time.Time {
	daysBack := rand.Intn(maxDays)
	hoursBack := rand.Intn(24)
	minsBack := rand.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour -
		time.Duration(minsBack)*time.Minute)
}
