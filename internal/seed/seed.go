// Package seed populates the database with demo data for development.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"echofeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options controls how much data the seeder creates.
type Options struct {
	Users int
	Posts int
	Clean bool
}

// Seeder builds demo entities and persists them.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSeeder creates a Seeder bound to the given database.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // Weak randomness is fine for demo data.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Seeder{db: db, rng: rng}
}

// Run seeds users, posts, likes and comments according to opts.
func (s *Seeder) Run(opts Options) error {
	if opts.Clean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("clear existing data: %w", err)
		}
	}

	users, err := s.createUsers(opts.Users)
	if err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	posts, err := s.createPosts(users, opts.Posts)
	if err != nil {
		return fmt.Errorf("create posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	likes, comments, err := s.createEngagement(users, posts)
	if err != nil {
		return fmt.Errorf("create engagement: %w", err)
	}
	log.Printf("created %d likes and %d comments", likes, comments)

	return nil
}

// ClearAll removes all seedable rows, children before parents.
func (s *Seeder) ClearAll() error {
	for _, model := range []any{
		&models.Like{}, &models.Comment{}, &models.Post{}, &models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateUser persists one generated user. Overrides run before saving.
func (s *Seeder) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	username := sanitizeUsername(strings.ToLower(gofakeit.Username()))
	// Leave room for the numeric suffix under the 30 character cap.
	if len(username) > 27 {
		username = strings.Trim(username[:27], "_-")
	}
	username = fmt.Sprintf("%s%d", username, gofakeit.Number(100, 999))

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  username,
		Email:     fmt.Sprintf("%s@example.com", username),
		Password:  string(hashed),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists one generated post for the given author.
func (s *Seeder) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Title:    strings.TrimSuffix(gofakeit.Sentence(5), "."),
		Content:  gofakeit.Paragraph(1, 3, 12, "\n"),
		AuthorID: author.ID,
	}

	// Spread creation times over the past 90 days so the feed looks lived-in.
	daysBack := s.rng.Intn(90)
	post.CreatedAt = time.Now().
		Add(-time.Duration(daysBack)*24*time.Hour -
			time.Duration(s.rng.Intn(24))*time.Hour -
			time.Duration(s.rng.Intn(60))*time.Minute)

	if s.rng.Float32() < 0.4 {
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
	}

	for _, override := range overrides {
		override(post)
	}

	if err := s.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Seeder) createUsers(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)

	// A couple of fixed accounts so developers can log in without digging
	// through the generated ones.
	for _, name := range []string{"demo", "test"} {
		if len(users) >= count {
			break
		}
		name := name
		user, err := s.CreateUser(func(u *models.User) {
			u.Username = name
			u.Email = name + "@example.com"
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	for len(users) < count {
		user, err := s.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createPosts(users []*models.User, count int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.rng.Intn(len(users))]
		post, err := s.CreatePost(author)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// createEngagement sprinkles likes and comments over the posts.
func (s *Seeder) createEngagement(users []*models.User, posts []*models.Post) (int, int, error) {
	if len(users) == 0 {
		return 0, 0, nil
	}

	var likes, comments int
	for _, post := range posts {
		for _, user := range users {
			if s.rng.Float32() < 0.25 {
				like := models.Like{PostID: post.ID, UserID: user.ID, CreatedAt: time.Now().UTC()}
				if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
					return likes, comments, err
				}
				likes++
			}
		}

		for i := 0; i < s.rng.Intn(4); i++ {
			commenter := users[s.rng.Intn(len(users))]
			comment := models.Comment{
				PostID:   post.ID,
				AuthorID: commenter.ID,
				Text:     gofakeit.Sentence(s.rng.Intn(12) + 3),
			}
			if err := s.db.Create(&comment).Error; err != nil {
				return likes, comments, err
			}
			comments++
		}
	}
	return likes, comments, nil
}

// sanitizeUsername strips characters the username rules reject.
func sanitizeUsername(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		}
	}
	out := strings.Trim(sb.String(), "_-")
	if out == "" {
		return "user"
	}
	return out
}
