package server

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"quill/internal/models"
)

func TestIndex_ShowsPostWithGroupAndAuthor(t *testing.T) {
	s, app, db := setupTestServer(t)
	_ = s

	author := mustCreateUser(t, db, "leo")
	group := mustCreateGroup(t, db, "Test group", "test-slug")
	mustCreatePost(t, db, author, "test text", group)

	resp := doGet(t, app, "/", "")
	wantStatus(t, resp, http.StatusOK)
	payload := decodeBody(t, resp)

	posts := postsOf(t, payload)
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	post := posts[0].(map[string]any)
	if post["text"] != "test text" {
		t.Fatalf("expected post text, got %v", post["text"])
	}
	if post["author"] != "leo" {
		t.Fatalf("expected author leo, got %v", post["author"])
	}
	postGroup, ok := post["group"].(map[string]any)
	if !ok || postGroup["slug"] != "test-slug" {
		t.Fatalf("expected group test-slug, got %v", post["group"])
	}
}

func TestIndex_Pagination(t *testing.T) {
	s, app, db := setupTestServer(t)
	_ = s

	author := mustCreateUser(t, db, "prolific")
	for i := 1; i <= 13; i++ {
		mustCreatePost(t, db, author, fmt.Sprintf("post %d", i), nil)
	}

	resp := doGet(t, app, "/", "")
	wantStatus(t, resp, http.StatusOK)
	payload := decodeBody(t, resp)
	if got := len(postsOf(t, payload)); got != 10 {
		t.Fatalf("expected 10 posts on page 1, got %d", got)
	}

	resp = doGet(t, app, "/?page=2", "")
	wantStatus(t, resp, http.StatusOK)
	payload = decodeBody(t, resp)
	if got := len(postsOf(t, payload)); got != 3 {
		t.Fatalf("expected 3 posts on page 2, got %d", got)
	}
	page := pageOf(t, payload)
	if page["total_pages"] != float64(2) || page["total_items"] != float64(13) {
		t.Fatalf("unexpected page window: %v", page)
	}

	// A page past the end clamps to the last page.
	resp = doGet(t, app, "/?page=99", "")
	wantStatus(t, resp, http.StatusOK)
	payload = decodeBody(t, resp)
	if got := len(postsOf(t, payload)); got != 3 {
		t.Fatalf("expected clamp to last page with 3 posts, got %d", got)
	}
	if pageOf(t, payload)["page"] != float64(2) {
		t.Fatalf("expected clamped page number 2, got %v", pageOf(t, payload)["page"])
	}
}

func TestCreatePost_RedirectsToProfile(t *testing.T) {
	s, app, db := setupTestServer(t)

	author := mustCreateUser(t, db, "writer")
	cookie := sessionFor(t, s, author)

	resp := doForm(t, app, "/create/", cookie, url.Values{"text": {"fresh words"}})
	wantRedirect(t, resp, "/profile/writer/")

	var post models.Post
	if err := db.Where("text = ?", "fresh words").First(&post).Error; err != nil {
		t.Fatalf("created post missing: %v", err)
	}
	if post.UserID != author.ID {
		t.Fatalf("expected author %d, got %d", author.ID, post.UserID)
	}
}

func TestCreatePost_WithGroupAndImage(t *testing.T) {
	s, app, db := setupTestServer(t)

	author := mustCreateUser(t, db, "artist")
	group := mustCreateGroup(t, db, "Pictures", "pictures")
	cookie := sessionFor(t, s, author)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("text", "a picture post"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := w.WriteField("group", fmt.Sprintf("%d", group.ID)); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := w.CreateFormFile("image", "small.gif")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(tinyGIF); err != nil {
		t.Fatalf("write image: %v", err)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/create/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Cookie", cookie)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	wantRedirect(t, resp, "/profile/artist/")

	var post models.Post
	if err := db.Where("text = ?", "a picture post").First(&post).Error; err != nil {
		t.Fatalf("created post missing: %v", err)
	}
	if post.GroupID == nil || *post.GroupID != group.ID {
		t.Fatalf("expected group %d, got %v", group.ID, post.GroupID)
	}
	if post.ImagePath == "" {
		t.Fatal("expected stored image path")
	}
	if _, err := os.Stat(filepath.Join(s.config.MediaRoot, filepath.FromSlash(post.ImagePath))); err != nil {
		t.Fatalf("stored image missing on disk: %v", err)
	}
}

func TestCreatePost_GuestRedirectsToLogin(t *testing.T) {
	_, app, db := setupTestServer(t)

	resp := doForm(t, app, "/create/", "", url.Values{"text": {"anonymous words"}})
	wantRedirect(t, resp, "/auth/login/?next=%2Fcreate%2F")

	var count int64
	db.Model(&models.Post{}).Count(&count)
	if count != 0 {
		t.Fatalf("guest should not create posts, found %d", count)
	}
}

func TestCreatePost_EmptyTextRejected(t *testing.T) {
	s, app, db := setupTestServer(t)

	author := mustCreateUser(t, db, "quiet")
	cookie := sessionFor(t, s, author)

	resp := doForm(t, app, "/create/", cookie, url.Values{"text": {"   "}})
	wantStatus(t, resp, http.StatusBadRequest)
	payload := decodeBody(t, resp)
	fields, ok := payload["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected field errors, got %v", payload)
	}
	if _, ok := fields["text"]; !ok {
		t.Fatalf("expected text field error, got %v", fields)
	}
}

func TestEditPost_NonAuthorRedirectsUnchanged(t *testing.T) {
	s, app, db := setupTestServer(t)

	author := mustCreateUser(t, db, "owner")
	intruder := mustCreateUser(t, db, "intruder")
	post := mustCreatePost(t, db, author, "original text", nil)

	resp := doForm(t, app, pathFor(post)+"edit/", sessionFor(t, s, intruder),
		url.Values{"text": {"hijacked"}})
	wantRedirect(t, resp, pathFor(post))

	var reloaded models.Post
	if err := db.First(&reloaded, post.ID).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if reloaded.Text != "original text" {
		t.Fatalf("post text changed by non-author: %q", reloaded.Text)
	}
}

// A non-author is redirected even when the submission itself would not
// validate; the form is never inspected for someone else's post.
func TestEditPost_NonAuthorBadFormStillRedirects(t *testing.T) {
	s, app, db := setupTestServer(t)

	author := mustCreateUser(t, db, "owner")
	intruder := mustCreateUser(t, db, "intruder")
	post := mustCreatePost(t, db, author, "original text", nil)

	resp := doForm(t, app, pathFor(post)+"edit/", sessionFor(t, s, intruder),
		url.Values{"text": {"hijacked"}, "group": {"not-a-number"}})
	wantRedirect(t, resp, pathFor(post))

	var reloaded models.Post
	if err := db.First(&reloaded, post.ID).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if reloaded.Text != "original text" {
		t.Fatalf("post text changed by non-author: %q", reloaded.Text)
	}
}

func TestEditPost_AuthorEdits(t *testing.T) {
	s, app, db := setupTestServer(t)

	author := mustCreateUser(t, db, "owner")
	post := mustCreatePost(t, db, author, "original text", nil)

	resp := doForm(t, app, pathFor(post)+"edit/", sessionFor(t, s, author),
		url.Values{"text": {"edited text"}})
	wantRedirect(t, resp, pathFor(post))

	var reloaded models.Post
	if err := db.First(&reloaded, post.ID).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if reloaded.Text != "edited text" {
		t.Fatalf("expected edited text, got %q", reloaded.Text)
	}
	if reloaded.UserID != author.ID {
		t.Fatalf("authorship changed on edit")
	}
}

func TestPostDetail(t *testing.T) {
	s, app, db := setupTestServer(t)
	_ = s

	author := mustCreateUser(t, db, "detailauthor")
	post := mustCreatePost(t, db, author, "detailed post", nil)
	mustCreatePost(t, db, author, "another one", nil)
	commenter := mustCreateUser(t, db, "commenter")
	if err := db.Create(&models.Comment{Text: "well said", PostID: post.ID, UserID: commenter.ID}).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}

	resp := doGet(t, app, pathFor(post), "")
	wantStatus(t, resp, http.StatusOK)
	payload := decodeBody(t, resp)

	detail := payload["post"].(map[string]any)
	if detail["text"] != "detailed post" {
		t.Fatalf("unexpected post payload: %v", detail)
	}
	if detail["comments_count"] != float64(1) {
		t.Fatalf("expected comments_count 1, got %v", detail["comments_count"])
	}
	if payload["author_posts_count"] != float64(2) {
		t.Fatalf("expected author_posts_count 2, got %v", payload["author_posts_count"])
	}
	comments := payload["comments"].([]any)
	if len(comments) != 1 || comments[0].(map[string]any)["author"] != "commenter" {
		t.Fatalf("unexpected comments payload: %v", comments)
	}
}

func TestPostDetail_NotFound(t *testing.T) {
	_, app, _ := setupTestServer(t)

	resp := doGet(t, app, "/posts/9999/", "")
	wantStatus(t, resp, http.StatusNotFound)

	resp = doGet(t, app, "/posts/not-a-number/", "")
	wantStatus(t, resp, http.StatusNotFound)
}

func TestUnknownPath_404(t *testing.T) {
	_, app, _ := setupTestServer(t)

	resp := doGet(t, app, "/unexpected/", "")
	wantStatus(t, resp, http.StatusNotFound)
}
